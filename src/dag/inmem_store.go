package dag

import (
	cm "github.com/fedledger/fedledger/src/common"
	"github.com/fedledger/fedledger/src/tx"
)

// InmemStore keeps the whole graph in memory. It also serves as the cache of
// the BadgerStore.
type InmemStore struct {
	txs      map[tx.TxID]*tx.Transaction
	parents  map[tx.TxID][]tx.TxID
	children map[tx.TxID][]tx.TxID
	topo     []tx.TxID
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		txs:      make(map[tx.TxID]*tx.Transaction),
		parents:  make(map[tx.TxID][]tx.TxID),
		children: make(map[tx.TxID][]tx.TxID),
	}
}

// GetTransaction implements the Store interface.
func (s *InmemStore) GetTransaction(id tx.TxID) (*tx.Transaction, error) {
	t, ok := s.txs[id]
	if !ok {
		return nil, cm.NewStoreErr("Transaction", cm.KeyNotFound, string(id))
	}
	return t, nil
}

// SetTransaction implements the Store interface.
func (s *InmemStore) SetTransaction(t *tx.Transaction, parents []tx.TxID) error {
	if _, ok := s.txs[t.ID]; ok {
		return cm.NewStoreErr("Transaction", cm.KeyAlreadyExists, string(t.ID))
	}

	s.txs[t.ID] = t
	s.parents[t.ID] = append([]tx.TxID(nil), parents...)
	for _, p := range parents {
		s.children[p] = append(s.children[p], t.ID)
	}
	s.topo = append(s.topo, t.ID)

	return nil
}

// Parents implements the Store interface.
func (s *InmemStore) Parents(id tx.TxID) ([]tx.TxID, error) {
	ps, ok := s.parents[id]
	if !ok {
		return nil, cm.NewStoreErr("Parents", cm.KeyNotFound, string(id))
	}
	return append([]tx.TxID(nil), ps...), nil
}

// Children implements the Store interface.
func (s *InmemStore) Children(id tx.TxID) ([]tx.TxID, error) {
	if _, ok := s.txs[id]; !ok {
		return nil, cm.NewStoreErr("Children", cm.KeyNotFound, string(id))
	}
	return append([]tx.TxID(nil), s.children[id]...), nil
}

// Contains implements the Store interface.
func (s *InmemStore) Contains(id tx.TxID) bool {
	_, ok := s.txs[id]
	return ok
}

// Len implements the Store interface.
func (s *InmemStore) Len() int {
	return len(s.topo)
}

// TopologicalIDs implements the Store interface.
func (s *InmemStore) TopologicalIDs() []tx.TxID {
	return append([]tx.TxID(nil), s.topo...)
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}
