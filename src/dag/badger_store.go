package dag

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	cm "github.com/fedledger/fedledger/src/common"
	"github.com/fedledger/fedledger/src/tx"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const (
	txPrefix      = "tx"
	parentsPrefix = "parents"
	topoPrefix    = "topo"
)

// BadgerStore persists the graph in a Badger database and keeps an InmemStore
// in front of it for reads.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
	logger     *logrus.Entry
}

// NewBadgerStore opens the database at path, creating it if necessary. The
// in-memory cache starts empty; use LoadBadgerStore to replay an existing
// database.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true).
		WithLogger(logger.WithField("ns", "badger"))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(),
		db:         handle,
		path:       path,
		logger:     logger,
	}
	return store, nil
}

// LoadBadgerStore opens an existing database and rebuilds the in-memory cache
// by replaying transactions in topological order.
func LoadBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store, err := NewBadgerStore(path, logger)
	if err != nil {
		return nil, err
	}

	if err := store.bootstrap(); err != nil {
		store.db.Close()
		return nil, err
	}

	return store, nil
}

// LoadOrCreateBadgerStore loads the database at path if there is one and
// creates a fresh one otherwise.
func LoadOrCreateBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	store, err := LoadBadgerStore(path, logger)
	if err == nil {
		return store, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	return NewBadgerStore(path, logger)
}

//==============================================================================
//Keys

func txKey(id tx.TxID) []byte {
	return []byte(fmt.Sprintf("%s_%s", txPrefix, id))
}

func parentsKey(id tx.TxID) []byte {
	return []byte(fmt.Sprintf("%s_%s", parentsPrefix, id))
}

func topologicalKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", topoPrefix, index))
}

//==============================================================================
//Implement the Store interface

// GetTransaction implements the Store interface. Misses in the cache fall back
// to the database.
func (s *BadgerStore) GetTransaction(id tx.TxID) (*tx.Transaction, error) {
	t, err := s.inmemStore.GetTransaction(id)
	if err == nil {
		return t, nil
	}
	return s.dbGetTransaction(id)
}

// SetTransaction implements the Store interface.
func (s *BadgerStore) SetTransaction(t *tx.Transaction, parents []tx.TxID) error {
	if s.inmemStore.Contains(t.ID) {
		return cm.NewStoreErr("Transaction", cm.KeyAlreadyExists, string(t.ID))
	}

	if err := s.dbSetTransaction(t, parents, s.inmemStore.Len()); err != nil {
		return err
	}

	return s.inmemStore.SetTransaction(t, parents)
}

// Parents implements the Store interface.
func (s *BadgerStore) Parents(id tx.TxID) ([]tx.TxID, error) {
	return s.inmemStore.Parents(id)
}

// Children implements the Store interface.
func (s *BadgerStore) Children(id tx.TxID) ([]tx.TxID, error) {
	return s.inmemStore.Children(id)
}

// Contains implements the Store interface.
func (s *BadgerStore) Contains(id tx.TxID) bool {
	return s.inmemStore.Contains(id)
}

// Len implements the Store interface.
func (s *BadgerStore) Len() int {
	return s.inmemStore.Len()
}

// TopologicalIDs implements the Store interface.
func (s *BadgerStore) TopologicalIDs() []tx.TxID {
	return s.inmemStore.TopologicalIDs()
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//DB Methods

func (s *BadgerStore) bootstrap() error {
	ids, err := s.dbTopologicalIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		t, err := s.dbGetTransaction(id)
		if err != nil {
			return err
		}
		parents, err := s.dbGetParents(id)
		if err != nil {
			return err
		}
		if err := s.inmemStore.SetTransaction(t, parents); err != nil {
			return err
		}
	}

	s.logger.WithField("transactions", len(ids)).Debug("Loaded transactions from database")

	return nil
}

func (s *BadgerStore) dbGetTransaction(id tx.TxID) (*tx.Transaction, error) {
	var txBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(txKey(id))
		if err != nil {
			return err
		}
		txBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Transaction", string(id))
	}

	t := new(tx.Transaction)
	if err := t.Unmarshal(txBytes); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *BadgerStore) dbGetParents(id tx.TxID) ([]tx.TxID, error) {
	var parentsBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(parentsKey(id))
		if err != nil {
			return err
		}
		parentsBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Parents", string(id))
	}

	var parents []tx.TxID
	if err := decodeJSON(parentsBytes, &parents); err != nil {
		return nil, err
	}

	return parents, nil
}

// dbSetTransaction writes the transaction, its parent list, and its
// topological index in a single database transaction.
func (s *BadgerStore) dbSetTransaction(t *tx.Transaction, parents []tx.TxID, index int) error {
	txBytes, err := t.Marshal()
	if err != nil {
		return err
	}

	parentsBytes, err := encodeJSON(parents)
	if err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set(txKey(t.ID), txBytes); err != nil {
		return err
	}
	if err := txn.Set(parentsKey(t.ID), parentsBytes); err != nil {
		return err
	}
	if err := txn.Set(topologicalKey(index), []byte(t.ID)); err != nil {
		return err
	}

	return txn.Commit()
}

func (s *BadgerStore) dbTopologicalIDs() ([]tx.TxID, error) {
	res := []tx.TxID{}
	i := 0
	err := s.db.View(func(txn *badger.Txn) error {
		item, errr := txn.Get(topologicalKey(i))
		for errr == nil {
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			res = append(res, tx.TxID(v))

			i++
			item, errr = txn.Get(topologicalKey(i))
		}

		if !isDBKeyNotFound(errr) {
			return errr
		}

		return nil
	})

	return res, err
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++

func encodeJSON(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	if err := codec.NewEncoder(b, jh).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decodeJSON(data []byte, v interface{}) error {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return codec.NewDecoder(bytes.NewBuffer(data), jh).Decode(v)
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
