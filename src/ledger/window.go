package ledger

import (
	"sync"

	"github.com/fedledger/fedledger/src/tx"
)

// Window is a bounded FIFO of recently confirmed transactions. It has its own
// lock and never calls into the graph.
type Window struct {
	l     sync.Mutex
	size  int
	items []*tx.Transaction
}

// NewWindow returns a Window holding at most size transactions.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{
		size:  size,
		items: make([]*tx.Transaction, 0, size+1),
	}
}

// Push appends t and returns the entries evicted to stay within size, oldest
// first.
func (w *Window) Push(t *tx.Transaction) []*tx.Transaction {
	w.l.Lock()
	defer w.l.Unlock()

	w.items = append(w.items, t)

	var evicted []*tx.Transaction
	if over := len(w.items) - w.size; over > 0 {
		evicted = append(evicted, w.items[:over]...)
		w.items = append(w.items[:0:0], w.items[over:]...)
	}
	return evicted
}

// Snapshot returns the current entries, oldest first.
func (w *Window) Snapshot() []*tx.Transaction {
	w.l.Lock()
	defer w.l.Unlock()

	res := make([]*tx.Transaction, len(w.items))
	copy(res, w.items)
	return res
}

// Len ...
func (w *Window) Len() int {
	w.l.Lock()
	defer w.l.Unlock()
	return len(w.items)
}

// Size is the capacity of the window.
func (w *Window) Size() int {
	return w.size
}
