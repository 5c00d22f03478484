package quorum

import (
	"context"
	"fmt"
	"time"

	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/sirupsen/logrus"
)

// DefaultPeerTimeout bounds the wait for each vote of a distributed
// validation.
const DefaultPeerTimeout = time.Second

// Validator decides whether Organizations of a Federation accept a
// transaction.
type Validator struct {
	fed      *federation.Federation
	policy   Policy
	timeout  time.Duration
	resolver PeerResolver
	logger   *logrus.Entry
}

// NewValidator returns a Validator over fed. A nil policy accepts everything
// and a zero timeout means DefaultPeerTimeout. Votes are cast by LocalPeers
// until SetPeerResolver is called.
func NewValidator(fed *federation.Federation, policy Policy, timeout time.Duration, logger *logrus.Entry) *Validator {
	if policy == nil {
		policy = AcceptAll
	}
	if timeout <= 0 {
		timeout = DefaultPeerTimeout
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	v := &Validator{
		fed:     fed,
		policy:  policy,
		timeout: timeout,
		logger:  logger,
	}
	v.resolver = func(org *federation.Organization) Peer {
		return NewLocalPeer(v, org)
	}
	return v
}

// SetPeerResolver replaces the way votes are collected for each
// Organization.
func (v *Validator) SetPeerResolver(r PeerResolver) {
	v.resolver = r
}

// Federation ...
func (v *Validator) Federation() *federation.Federation {
	return v.fed
}

// Timeout ...
func (v *Validator) Timeout() time.Duration {
	return v.timeout
}

func (v *Validator) check(t *tx.Transaction, org *federation.Organization) error {
	return v.policy.Check(t, org)
}

// Validate asks the Organization named by orgIdent, found by handle, to attest
// t. On success it returns a human-readable attestation; otherwise a
// RejectedError.
func (v *Validator) Validate(t *tx.Transaction, orgIdent *ident.Identifier) (string, error) {
	handle := ""
	if orgIdent != nil {
		handle = orgIdent.Handle
	}

	org, ok := v.fed.Organization(orgIdent)
	if !ok {
		return "", &RejectedError{Tx: t.ID, Org: handle, Reason: ErrOrganizationNotFound}
	}

	if err := v.check(t, org); err != nil {
		v.logger.WithFields(logrus.Fields{
			"tx":  t.ID,
			"org": handle,
		}).WithError(err).Debug("Transaction rejected")
		return "", &RejectedError{Tx: t.ID, Org: handle, Reason: err}
	}

	return Attestation(org, t), nil
}

// Attestation formats the signature an Organization attaches to t.
func Attestation(org *federation.Organization, t *tx.Transaction) string {
	return fmt.Sprintf("%s validated %s at %s", org.Identifier().Local(), t.ID, time.Now().UTC().Format(time.RFC3339))
}

// Peers resolves one Peer per registered Organization, in registration order.
func (v *Validator) Peers() []Peer {
	orgs := v.fed.Organizations()
	res := make([]Peer, len(orgs))
	for i, o := range orgs {
		res[i] = v.resolver(o)
	}
	return res
}

// Outcome summarizes a distributed validation. Votes has one entry per peer,
// in the order of Peers; votes still outstanding when the decision was made
// are Pending.
type Outcome struct {
	Accepted  bool
	Yes       int
	No        int
	Total     int
	Threshold int
	Votes     []Ballot
}

// Err returns ErrNoQuorum when the outcome is negative.
func (o Outcome) Err() error {
	if o.Accepted {
		return nil
	}
	return ErrNoQuorum
}

type vote struct {
	index int
	ok    bool
}

// ValidateDistributed asks every Organization to vote on t concurrently and
// returns as soon as either side reaches N/2+1 votes. A peer that errors or
// does not answer within the peer timeout votes no. Without an affirmative
// majority, including with no Organizations at all, the outcome is negative.
// Votes arriving after the decision are discarded.
func (v *Validator) ValidateDistributed(ctx context.Context, t *tx.Transaction) Outcome {
	peers := v.Peers()
	n := len(peers)

	out := Outcome{
		Total:     n,
		Threshold: n/2 + 1,
		Votes:     make([]Ballot, n),
	}
	if n == 0 {
		return out
	}

	results := make(chan vote, n)
	for i, p := range peers {
		go func(i int, p Peer) {
			results <- vote{index: i, ok: v.ask(ctx, p, t)}
		}(i, p)
	}

	for i := 0; i < n; i++ {
		select {
		case r := <-results:
			out.Votes[r.index] = ballot(r.ok)
			if r.ok {
				out.Yes++
			} else {
				out.No++
			}
		case <-ctx.Done():
			v.logger.WithField("tx", t.ID).WithError(ctx.Err()).Debug("Distributed validation cancelled")
			return out
		}

		if out.Yes >= out.Threshold {
			out.Accepted = true
			break
		}
		if out.No >= out.Threshold {
			break
		}
	}

	v.logger.WithFields(logrus.Fields{
		"tx":        t.ID,
		"yes":       out.Yes,
		"no":        out.No,
		"total":     out.Total,
		"threshold": out.Threshold,
		"accepted":  out.Accepted,
	}).Debug("Distributed validation")

	return out
}

// ask collects one vote, bounded by the peer timeout.
func (v *Validator) ask(ctx context.Context, p Peer, t *tx.Transaction) bool {
	pctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	res := make(chan bool, 1)
	go func() {
		ok, err := p.Check(pctx, t)
		if err != nil {
			v.logger.WithField("peer", p.Name()).WithError(err).Debug("Peer check failed")
		}
		res <- ok && err == nil
	}()

	select {
	case ok := <-res:
		return ok
	case <-pctx.Done():
		v.logger.WithField("peer", p.Name()).Debug("Peer timed out")
		return false
	}
}
