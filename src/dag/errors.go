package dag

import (
	"errors"
	"fmt"

	"github.com/fedledger/fedledger/src/tx"
)

var (
	// ErrDuplicateTransaction is returned when inserting an id that is already
	// in the graph or waiting for its parents.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrDeferred is returned by Insert under DeferDangling when the
	// transaction was parked.
	ErrDeferred = errors.New("transaction deferred until its parents arrive")
)

// DanglingParentError is returned by Insert under RejectDangling.
type DanglingParentError struct {
	ID      tx.TxID
	Missing []tx.TxID
}

// Error ...
func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("transaction %s references unknown parents %v", e.ID, e.Missing)
}
