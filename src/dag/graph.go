package dag

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fedledger/fedledger/src/tx"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// DefaultDeferTTL is how long a deferred transaction waits for its parents.
const DefaultDeferTTL = 30 * time.Second

// deferred is a transaction parked under DeferDangling.
type deferred struct {
	tx       *tx.Transaction
	parents  []tx.TxID
	missing  map[tx.TxID]bool
	promoted int32
}

// Graph is the append-only causal graph of confirmed transactions. Edges go
// from parent to child. All methods are safe for concurrent use.
type Graph struct {
	l      sync.Mutex
	store  Store
	policy ParentPolicy

	// pending and waiting are only used under DeferDangling. waiting maps a
	// missing parent to the ids of the transactions parked on it.
	pending *cache.Cache
	waiting map[tx.TxID][]tx.TxID

	logger *logrus.Entry
}

// NewGraph wraps store. deferTTL only matters under DeferDangling; zero means
// DefaultDeferTTL.
func NewGraph(store Store, policy ParentPolicy, deferTTL time.Duration, logger *logrus.Entry) *Graph {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	if deferTTL <= 0 {
		deferTTL = DefaultDeferTTL
	}

	g := &Graph{
		store:   store,
		policy:  policy,
		pending: cache.New(deferTTL, deferTTL/2),
		waiting: make(map[tx.TxID][]tx.TxID),
		logger:  logger,
	}

	g.pending.OnEvicted(func(key string, v interface{}) {
		d := v.(*deferred)
		if atomic.LoadInt32(&d.promoted) == 1 {
			return
		}
		g.unpark(d)
	})

	return g
}

// Policy ...
func (g *Graph) Policy() ParentPolicy {
	return g.policy
}

// Insert adds t with edges from each of parents. Parents absent from the graph
// are handled according to the ParentPolicy. It returns the transactions that
// were actually added by this call, in insertion order: t itself, followed by
// any deferred transactions whose last missing parent was t.
func (g *Graph) Insert(t *tx.Transaction, parents []tx.TxID) ([]*tx.Transaction, error) {
	g.l.Lock()
	defer g.l.Unlock()

	if g.store.Contains(t.ID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, t.ID)
	}
	if _, ok := g.pending.Get(string(t.ID)); ok {
		return nil, fmt.Errorf("%w: %s is deferred", ErrDuplicateTransaction, t.ID)
	}

	present := make([]tx.TxID, 0, len(parents))
	var missing []tx.TxID
	for _, p := range parents {
		if g.store.Contains(p) {
			present = append(present, p)
		} else {
			missing = append(missing, p)
		}
	}

	if len(missing) > 0 {
		switch g.policy {
		case RejectDangling:
			return nil, &DanglingParentError{ID: t.ID, Missing: missing}
		case DeferDangling:
			g.park(t, parents, missing)
			return nil, ErrDeferred
		default:
			g.logger.WithFields(logrus.Fields{
				"tx":      t.ID,
				"missing": missing,
			}).Debug("Skipping unknown parents")
		}
	}

	if err := g.store.SetTransaction(t, present); err != nil {
		return nil, err
	}

	return append([]*tx.Transaction{t}, g.promote(t.ID)...), nil
}

func (g *Graph) park(t *tx.Transaction, parents []tx.TxID, missing []tx.TxID) {
	d := &deferred{
		tx:      t,
		parents: append([]tx.TxID(nil), parents...),
		missing: make(map[tx.TxID]bool, len(missing)),
	}
	for _, m := range missing {
		d.missing[m] = true
		g.waiting[m] = append(g.waiting[m], t.ID)
	}

	g.pending.Set(string(t.ID), d, cache.DefaultExpiration)

	g.logger.WithFields(logrus.Fields{
		"tx":      t.ID,
		"missing": missing,
	}).Debug("Deferring transaction")
}

// unpark forgets an expired deferred transaction. The eviction callback runs
// outside the cache lock, so taking g.l here is safe.
func (g *Graph) unpark(d *deferred) {
	g.l.Lock()
	defer g.l.Unlock()

	// The same transaction may have been parked again in the meantime.
	var live *deferred
	if v, ok := g.pending.Get(string(d.tx.ID)); ok {
		live = v.(*deferred)
	}

	for m := range d.missing {
		if live != nil && live.missing[m] {
			continue
		}
		ids := g.waiting[m][:0]
		for _, id := range g.waiting[m] {
			if id != d.tx.ID {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			delete(g.waiting, m)
		} else {
			g.waiting[m] = ids
		}
	}

	g.logger.WithFields(logrus.Fields{
		"tx":      d.tx.ID,
		"missing": len(d.missing),
	}).Warn("Dropping deferred transaction, parents never arrived")
}

// promote inserts every parked transaction whose parents are now all present,
// transitively starting from id. It must be called with g.l held.
func (g *Graph) promote(id tx.TxID) []*tx.Transaction {
	var res []*tx.Transaction

	queue := []tx.TxID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children := g.waiting[cur]
		delete(g.waiting, cur)

		for _, c := range children {
			v, ok := g.pending.Get(string(c))
			if !ok {
				continue
			}
			d := v.(*deferred)
			delete(d.missing, cur)
			if len(d.missing) > 0 {
				continue
			}

			atomic.StoreInt32(&d.promoted, 1)
			g.pending.Delete(string(c))

			if err := g.store.SetTransaction(d.tx, d.parents); err != nil {
				g.logger.WithError(err).WithField("tx", c).Error("Promoting deferred transaction")
				continue
			}

			g.logger.WithField("tx", c).Debug("Promoted deferred transaction")

			res = append(res, d.tx)
			queue = append(queue, c)
		}
	}

	return res
}

// Get returns the transaction with id.
func (g *Graph) Get(id tx.TxID) (*tx.Transaction, bool) {
	g.l.Lock()
	defer g.l.Unlock()

	t, err := g.store.GetTransaction(id)
	if err != nil {
		return nil, false
	}
	return t, true
}

// Contains ...
func (g *Graph) Contains(id tx.TxID) bool {
	g.l.Lock()
	defer g.l.Unlock()
	return g.store.Contains(id)
}

// Parents returns the parents of id in declaration order. It is empty when id
// is unknown or has no parents in the graph.
func (g *Graph) Parents(id tx.TxID) []*tx.Transaction {
	g.l.Lock()
	defer g.l.Unlock()

	ids, err := g.store.Parents(id)
	if err != nil {
		return []*tx.Transaction{}
	}
	return g.resolve(ids)
}

// Children returns the transactions that reference id.
func (g *Graph) Children(id tx.TxID) []*tx.Transaction {
	g.l.Lock()
	defer g.l.Unlock()

	ids, err := g.store.Children(id)
	if err != nil {
		return []*tx.Transaction{}
	}
	return g.resolve(ids)
}

// Ancestors returns every transaction reachable from id through parent edges,
// nearest first.
func (g *Graph) Ancestors(id tx.TxID) []*tx.Transaction {
	g.l.Lock()
	defer g.l.Unlock()

	seen := map[tx.TxID]bool{id: true}
	var order []tx.TxID

	queue := []tx.TxID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		ps, err := g.store.Parents(cur)
		if err != nil {
			continue
		}
		for _, p := range ps {
			if seen[p] {
				continue
			}
			seen[p] = true
			order = append(order, p)
			queue = append(queue, p)
		}
	}

	return g.resolve(order)
}

// Transactions returns all transactions in insertion order.
func (g *Graph) Transactions() []*tx.Transaction {
	g.l.Lock()
	defer g.l.Unlock()
	return g.resolve(g.store.TopologicalIDs())
}

func (g *Graph) resolve(ids []tx.TxID) []*tx.Transaction {
	res := make([]*tx.Transaction, 0, len(ids))
	for _, id := range ids {
		t, err := g.store.GetTransaction(id)
		if err != nil {
			g.logger.WithError(err).WithField("tx", id).Error("Resolving transaction")
			continue
		}
		res = append(res, t)
	}
	return res
}

// Len returns the number of transactions in the graph.
func (g *Graph) Len() int {
	g.l.Lock()
	defer g.l.Unlock()
	return g.store.Len()
}

// Pending returns the number of deferred transactions.
func (g *Graph) Pending() int {
	return g.pending.ItemCount()
}

// Store ...
func (g *Graph) Store() Store {
	return g.store
}

// Close closes the underlying store.
func (g *Graph) Close() error {
	g.l.Lock()
	defer g.l.Unlock()
	return g.store.Close()
}
