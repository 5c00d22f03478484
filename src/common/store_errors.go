package common

import (
	"errors"
	"fmt"
)

// StoreErrType enumerates the failure modes of ledger stores.
type StoreErrType uint32

const (
	// KeyNotFound is returned when a transaction, edge or index is not in the
	// store.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists is returned when inserting a transaction whose ID is
	// already stored.
	KeyAlreadyExists
	// Empty is returned when reading from a store that holds nothing yet.
	Empty
	// Closed is returned by stores that were already closed.
	Closed
)

// StoreErr carries the type of object being looked up, the key, and the kind
// of failure.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	case Closed:
		m = "Closed"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code. Wrapped errors are unwrapped.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.errType == t
}
