package quorum

import (
	"errors"
	"fmt"

	"github.com/fedledger/fedledger/src/tx"
)

var (
	// ErrOrganizationNotFound is the reason of a RejectedError when the
	// issuing Organization is not registered in the Federation.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrNoQuorum is returned when a distributed validation did not reach an
	// affirmative majority.
	ErrNoQuorum = errors.New("no affirmative quorum")
)

// RejectedError explains why a transaction was not attested.
type RejectedError struct {
	Tx     tx.TxID
	Org    string
	Reason error
}

// Error ...
func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction %s rejected by %q: %v", e.Tx, e.Org, e.Reason)
}

// Unwrap ...
func (e *RejectedError) Unwrap() error {
	return e.Reason
}

// IsRejected reports whether err is a RejectedError.
func IsRejected(err error) bool {
	var r *RejectedError
	return errors.As(err, &r)
}
