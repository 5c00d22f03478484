package quorum

import (
	"fmt"

	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/tx"
)

// Policy is the predicate an Organization applies to a transaction before
// attesting it. A nil error means the Organization accepts it.
type Policy interface {
	Check(t *tx.Transaction, org *federation.Organization) error
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(t *tx.Transaction, org *federation.Organization) error

// Check implements Policy.
func (f PolicyFunc) Check(t *tx.Transaction, org *federation.Organization) error {
	return f(t, org)
}

// AcceptAll accepts every transaction.
var AcceptAll Policy = PolicyFunc(func(*tx.Transaction, *federation.Organization) error {
	return nil
})

// SameFederation accepts transactions whose sender and receiver both belong
// to fed.
func SameFederation(fed *federation.Federation) Policy {
	return PolicyFunc(func(t *tx.Transaction, _ *federation.Organization) error {
		if !fed.Contains(t.Sender) || !fed.Contains(t.Receiver) {
			s, r := t.FederationIDs()
			return fmt.Errorf("federation mismatch: sender %q receiver %q local %q", s, r, fed.ID())
		}
		return nil
	})
}

// All accepts a transaction only if every policy does, checking them in order.
func All(policies ...Policy) Policy {
	return PolicyFunc(func(t *tx.Transaction, org *federation.Organization) error {
		for _, p := range policies {
			if err := p.Check(t, org); err != nil {
				return err
			}
		}
		return nil
	})
}
