package ledger

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fedledger/fedledger/src/dag"
	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
	"github.com/fedledger/fedledger/src/quorum"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/sirupsen/logrus"
)

// DefaultWindowSize is the number of confirmed transactions kept in the
// window.
const DefaultWindowSize = 10

// ErrCrossFederation is returned for transactions whose sender or receiver is
// outside the ledger's Federation.
var ErrCrossFederation = errors.New("cross-federation transaction")

// Ledger admits validated transactions into the graph and tracks the most
// recent ones in a bounded window.
//
// Locking: validation holds no lock, the graph and the window each have their
// own, and the window lock is only taken after the graph call has returned.
type Ledger struct {
	graph     *dag.Graph
	window    *Window
	validator *quorum.Validator
	logger    *logrus.Entry

	pushed    uint64
	confirmed uint64
	rejected  uint64
	deferred  uint64
	promoted  uint64
}

// New ...
func New(graph *dag.Graph, validator *quorum.Validator, windowSize int, logger *logrus.Entry) *Ledger {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Ledger{
		graph:     graph,
		window:    NewWindow(windowSize),
		validator: validator,
		logger:    logger,
	}
}

// CheckFederation returns ErrCrossFederation unless sender and receiver of t
// both belong to the ledger's Federation.
func (l *Ledger) CheckFederation(t *tx.Transaction) error {
	fed := l.Federation()
	if !fed.Contains(t.Sender) || !fed.Contains(t.Receiver) {
		s, r := t.FederationIDs()
		return fmt.Errorf("%w: sender %q receiver %q local %q", ErrCrossFederation, s, r, fed.ID())
	}
	return nil
}

// Push asks the Organization named by org to validate t. On success t is
// inserted into the graph with its declared parents and appended to the
// window, and the attestation is attached to t. A rejection is returned as a
// quorum.RejectedError. Any failure leaves t unsigned and the graph and
// window untouched. Under the defer parent policy, dag.ErrDeferred means an
// attested copy of t was parked.
func (l *Ledger) Push(t *tx.Transaction, org *ident.Identifier) error {
	if t.Attested() {
		return fmt.Errorf("push %s: %w", t.ID, tx.ErrAlreadyAttested)
	}

	sig, err := l.validator.Validate(t, org)
	if err != nil {
		atomic.AddUint64(&l.rejected, 1)
		l.logger.WithField("tx", t.ID).WithError(err).Info("Transaction rejected")
		return err
	}

	if err := l.admit(t, sig); err != nil {
		return err
	}

	atomic.AddUint64(&l.pushed, 1)
	return nil
}

// Confirm admits a transaction that a quorum already approved. It is
// idempotent: a transaction already in the graph is left as is. A missing
// attestation is filled in with a quorum attestation.
func (l *Ledger) Confirm(t *tx.Transaction) error {
	if l.graph.Contains(t.ID) {
		l.logger.WithFields(logrus.Fields{
			"tx":      t.ID,
			"parents": len(l.graph.Parents(t.ID)),
		}).Debug("Transaction already confirmed")
		return nil
	}

	var err error
	if t.Attested() {
		err = l.admit(t, "")
	} else {
		err = l.admit(t, QuorumAttestation(l.Federation(), t))
	}
	if err != nil {
		if errors.Is(err, dag.ErrDuplicateTransaction) {
			return nil
		}
		return err
	}

	atomic.AddUint64(&l.confirmed, 1)
	return nil
}

// admit inserts t, signed with sig unless sig is empty, and moves whatever
// the graph accepted into the window. The graph receives a copy; sig is only
// attached to t once the insert succeeded.
func (l *Ledger) admit(t *tx.Transaction, sig string) error {
	stored := t
	if sig != "" {
		var err error
		if stored, err = t.WithAttestation(sig); err != nil {
			return err
		}
	}

	inserted, err := l.graph.Insert(stored, stored.Parents)
	if err != nil {
		if errors.Is(err, dag.ErrDeferred) {
			atomic.AddUint64(&l.deferred, 1)
		}
		l.logger.WithField("tx", t.ID).WithError(err).Debug("Graph insert")
		return err
	}

	if sig != "" {
		if err := t.Attest(sig); err != nil {
			return err
		}
	}

	for _, x := range inserted {
		for _, ev := range l.window.Push(x) {
			l.logger.WithField("tx", ev.ID).Debug("Evicted from window")
		}
	}
	if len(inserted) > 1 {
		atomic.AddUint64(&l.promoted, uint64(len(inserted)-1))
	}

	l.logger.WithFields(logrus.Fields{
		"tx":       t.ID,
		"inserted": len(inserted),
		"graph":    l.graph.Len(),
		"window":   l.window.Len(),
	}).Debug("Transaction admitted")

	return nil
}

// Reload refills the window with the most recent transactions of the graph,
// typically after its store was loaded from disk. It returns the number of
// transactions placed in the window.
func (l *Ledger) Reload() int {
	txs := l.graph.Transactions()
	if n := l.window.Size(); len(txs) > n {
		txs = txs[len(txs)-n:]
	}
	for _, t := range txs {
		l.window.Push(t)
	}
	return len(txs)
}

// QuorumAttestation is the signature attached to transactions confirmed by a
// distributed validation.
func QuorumAttestation(fed *federation.Federation, t *tx.Transaction) string {
	return fmt.Sprintf("%s quorum confirmed %s at %s", fed.Identifier().Local(), t.ID, time.Now().UTC().Format(time.RFC3339))
}

// Window returns the confirmed transactions in the window, oldest first.
func (l *Ledger) Window() []*tx.Transaction {
	return l.window.Snapshot()
}

// WindowLen ...
func (l *Ledger) WindowLen() int {
	return l.window.Len()
}

// Graph ...
func (l *Ledger) Graph() *dag.Graph {
	return l.graph
}

// Validator ...
func (l *Ledger) Validator() *quorum.Validator {
	return l.validator
}

// Federation ...
func (l *Ledger) Federation() *federation.Federation {
	return l.validator.Federation()
}

// Stats counts ledger activity since start.
type Stats struct {
	Pushed     uint64 `json:"pushed"`
	Confirmed  uint64 `json:"confirmed"`
	Rejected   uint64 `json:"rejected"`
	Deferred   uint64 `json:"deferred"`
	Promoted   uint64 `json:"promoted"`
	GraphSize  int    `json:"graph_size"`
	Pending    int    `json:"pending"`
	WindowLen  int    `json:"window_len"`
	WindowSize int    `json:"window_size"`
}

// Stats ...
func (l *Ledger) Stats() Stats {
	return Stats{
		Pushed:     atomic.LoadUint64(&l.pushed),
		Confirmed:  atomic.LoadUint64(&l.confirmed),
		Rejected:   atomic.LoadUint64(&l.rejected),
		Deferred:   atomic.LoadUint64(&l.deferred),
		Promoted:   atomic.LoadUint64(&l.promoted),
		GraphSize:  l.graph.Len(),
		Pending:    l.graph.Pending(),
		WindowLen:  l.window.Len(),
		WindowSize: l.window.Size(),
	}
}

// Close closes the graph store.
func (l *Ledger) Close() error {
	return l.graph.Close()
}
