package node

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fedledger/fedledger/src/dag"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/net"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRateLimited is returned to senders of Tx messages that exceed the
	// node's inbound budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoPeers is returned by Propose when the node knows no other node.
	ErrNoPeers = errors.New("no peers")
)

// Push pushes t into the local ledger on behalf of org. An accepted
// transaction is announced to the peers in the background.
func (n *Node) Push(t *tx.Transaction, org *ident.Identifier) error {
	if err := n.ledger.Push(t, org); err != nil {
		return err
	}
	n.announceAsync(t)
	return nil
}

// Propose asks the peers, in order, to run a distributed validation of t
// until one of them answers. An accepted transaction is confirmed locally
// and announced to every peer.
func (n *Node) Propose(t *tx.Transaction) (bool, error) {
	peers := n.Peers()
	if len(peers) == 0 {
		return false, ErrNoPeers
	}

	var lastErr error
	for _, p := range peers {
		valid, err := n.RequestValidation(p, t)
		if err != nil && !valid {
			n.logger.WithError(err).WithFields(logrus.Fields{
				"tx":   t.ID,
				"peer": p,
			}).Warn("ValidationRequest")
			lastErr = err
			continue
		}
		if err != nil || !valid {
			return valid, err
		}

		confirmed := t
		if stored, ok := n.ledger.Graph().Get(t.ID); ok {
			confirmed = stored
		}
		n.announce(confirmed, peers)
		return true, nil
	}

	return false, lastErr
}

func (n *Node) announceAsync(t *tx.Transaction) {
	peers := n.Peers()
	if len(peers) == 0 || n.getState() == Shutdown {
		return
	}
	work := func() { n.announce(t, peers) }
	if !n.goFunc(work) {
		work()
	}
}

func (n *Node) announce(t *tx.Transaction, peers []string) {
	for _, p := range peers {
		if err := n.AnnounceValidation(p, t, true); err != nil {
			n.logger.WithError(err).WithFields(logrus.Fields{
				"tx":   t.ID,
				"peer": p,
			}).Warn("Announcing validation")
		}
	}
}

// SubmitTx sends t to the node at target, to be pushed on behalf of org.
func (n *Node) SubmitTx(target string, t *tx.Transaction, org *ident.Identifier) error {
	_, err := n.trans.Send(target, net.NewTxMessage(t, org))
	return err
}

// RequestValidation asks the node at target to run a distributed validation
// of t. A positive outcome is confirmed into the local ledger.
func (n *Node) RequestValidation(target string, t *tx.Transaction) (bool, error) {
	resp, err := n.trans.Send(target, net.NewValidationRequest(t))
	if err != nil {
		return false, err
	}
	if resp == nil || resp.Type != net.ValidationResponse {
		return false, errors.New("unexpected reply to ValidationRequest")
	}

	n.logger.WithFields(logrus.Fields{
		"tx":    t.ID,
		"from":  target,
		"valid": resp.Valid,
	}).Debug("ValidationResponse")

	if err := n.processValidationResponse(resp); err != nil {
		return resp.Valid, err
	}
	return resp.Valid, nil
}

// AnnounceValidation sends the outcome of a validation of t to the node at
// target.
func (n *Node) AnnounceValidation(target string, t *tx.Transaction, valid bool) error {
	_, err := n.trans.Send(target, net.NewValidationResponse(t, valid))
	return err
}

func (n *Node) processRPC(rpc net.RPC) {
	cmd := rpc.Command
	if cmd == nil || cmd.Tx == nil {
		rpc.Respond(nil, errors.New("empty message"))
		return
	}

	switch cmd.Type {
	case net.TxMessage:
		n.processTx(rpc, cmd)
	case net.ValidationRequest:
		n.processValidationRequest(rpc, cmd)
	case net.ValidationResponse:
		rpc.Respond(nil, n.processValidationResponse(cmd))
	default:
		n.logger.WithField("type", cmd.Type).Error("Unexpected RPC command")
		rpc.Respond(nil, errors.New("unexpected command"))
	}
}

func (n *Node) processTx(rpc net.RPC, cmd *net.Message) {
	atomic.AddUint64(&n.txRequests, 1)

	logger := n.logger.WithFields(logrus.Fields{
		"tx":  cmd.Tx.ID,
		"org": cmd.Org,
	})

	if err := n.ledger.CheckFederation(cmd.Tx); err != nil {
		atomic.AddUint64(&n.txDropped, 1)
		logger.WithError(err).Info("Dropping cross-federation transaction")
		rpc.Respond(nil, err)
		return
	}

	if err := n.throttle(); err != nil {
		atomic.AddUint64(&n.txDropped, 1)
		logger.WithError(err).Warn("Dropping transaction")
		rpc.Respond(nil, err)
		return
	}

	err := n.Push(cmd.Tx, cmd.Org)
	switch {
	case err == nil:
		logger.Debug("Transaction pushed")
	case errors.Is(err, dag.ErrDeferred):
		logger.Debug("Transaction deferred")
		err = nil
	default:
		logger.WithError(err).Debug("Push")
	}

	rpc.Respond(nil, err)
}

// throttle waits for a token of the inbound Tx budget, as long as the node
// is running.
func (n *Node) throttle() error {
	r := n.limiter.Reserve()
	if !r.OK() {
		return ErrRateLimited
	}

	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-n.shutdownCh:
		r.Cancel()
		return net.ErrTransportShutdown
	}
}

func (n *Node) processValidationRequest(rpc net.RPC, cmd *net.Message) {
	atomic.AddUint64(&n.validationRequests, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-n.shutdownCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	out := n.ledger.Validator().ValidateDistributed(ctx, cmd.Tx)

	n.logger.WithFields(logrus.Fields{
		"tx":        cmd.Tx.ID,
		"accepted":  out.Accepted,
		"yes":       out.Yes,
		"no":        out.No,
		"threshold": out.Threshold,
	}).Debug("ValidationRequest")

	rpc.Respond(net.NewValidationResponse(cmd.Tx, out.Accepted), nil)
}

func (n *Node) processValidationResponse(cmd *net.Message) error {
	if !cmd.Valid {
		return nil
	}

	if err := n.ledger.Confirm(cmd.Tx); err != nil {
		if errors.Is(err, dag.ErrDeferred) {
			return nil
		}
		n.logger.WithError(err).WithField("tx", cmd.Tx.ID).Error("Confirm")
		return err
	}
	return nil
}
