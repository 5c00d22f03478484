package quorum

import (
	"context"

	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/tx"
)

// Peer casts one Organization's vote on a transaction.
type Peer interface {
	Name() string
	Check(ctx context.Context, t *tx.Transaction) (bool, error)
}

// PeerResolver returns the Peer that votes for org.
type PeerResolver func(org *federation.Organization) Peer

// LocalPeer votes by applying the Validator's policy for one Organization
// in-process.
type LocalPeer struct {
	validator *Validator
	org       *federation.Organization
}

// NewLocalPeer ...
func NewLocalPeer(v *Validator, org *federation.Organization) *LocalPeer {
	return &LocalPeer{validator: v, org: org}
}

// Name implements Peer.
func (p *LocalPeer) Name() string {
	return p.org.Handle()
}

// Check implements Peer.
func (p *LocalPeer) Check(ctx context.Context, t *tx.Transaction) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := p.validator.check(t, p.org); err != nil {
		return false, nil
	}
	return true, nil
}
