package dag

import (
	"github.com/fedledger/fedledger/src/tx"
)

// Store is the persistence layer of the transaction graph. Implementations are
// not required to be safe for concurrent use; the Graph serializes access.
type Store interface {
	// GetTransaction returns a KeyNotFound StoreErr when id is unknown.
	GetTransaction(id tx.TxID) (*tx.Transaction, error)
	// SetTransaction stores t together with the edges from each of parents,
	// in order. It fails with KeyAlreadyExists when t is already stored.
	SetTransaction(t *tx.Transaction, parents []tx.TxID) error
	// Parents returns the ids of the stored parents of id, in the order the
	// edges were added.
	Parents(id tx.TxID) ([]tx.TxID, error)
	// Children returns the ids of the transactions that reference id.
	Children(id tx.TxID) ([]tx.TxID, error)
	Contains(id tx.TxID) bool
	Len() int
	// TopologicalIDs lists every stored id in insertion order, which is a
	// topological order of the graph.
	TopologicalIDs() []tx.TxID
	Close() error
	StorePath() string
}
