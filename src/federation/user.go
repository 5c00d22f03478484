package federation

import (
	"sort"
	"sync"

	"github.com/fedledger/fedledger/src/ident"
)

// OrganizationUser holds balances inside an Organization.
type OrganizationUser struct {
	ident *ident.Identifier

	l        sync.RWMutex
	balances map[string]*Balance
}

// NewOrganizationUser creates a user under the Organization identified by org.
func NewOrganizationUser(gen *ident.Generator, org *ident.Identifier, handle string) (*OrganizationUser, error) {
	id, err := gen.New(ident.OrganizationUser, handle, org)
	if err != nil {
		return nil, err
	}
	return &OrganizationUser{
		ident:    id,
		balances: make(map[string]*Balance),
	}, nil
}

// Identifier ...
func (u *OrganizationUser) Identifier() *ident.Identifier {
	return u.ident
}

// Handle ...
func (u *OrganizationUser) Handle() string {
	return u.ident.Handle
}

// Balance returns the balance for symbol, creating an empty one if needed.
func (u *OrganizationUser) Balance(symbol string) *Balance {
	u.l.RLock()
	b, ok := u.balances[symbol]
	u.l.RUnlock()
	if ok {
		return b
	}

	u.l.Lock()
	defer u.l.Unlock()
	if b, ok := u.balances[symbol]; ok {
		return b
	}
	b = NewBalance(symbol, 0)
	u.balances[symbol] = b
	return b
}

// AddBalance credits v units of symbol.
func (u *OrganizationUser) AddBalance(symbol string, v uint64) uint64 {
	return u.Balance(symbol).Add(v)
}

// SubBalance debits v units of symbol.
func (u *OrganizationUser) SubBalance(symbol string, v uint64) (uint64, error) {
	return u.Balance(symbol).Sub(v)
}

// Balances returns a snapshot of all amounts, keyed by symbol.
func (u *OrganizationUser) Balances() map[string]uint64 {
	u.l.RLock()
	defer u.l.RUnlock()

	res := make(map[string]uint64, len(u.balances))
	for s, b := range u.balances {
		res[s] = b.Get()
	}
	return res
}

// Symbols returns the symbols the user holds, sorted.
func (u *OrganizationUser) Symbols() []string {
	u.l.RLock()
	defer u.l.RUnlock()

	res := make([]string, 0, len(u.balances))
	for s := range u.balances {
		res = append(res, s)
	}
	sort.Strings(res)
	return res
}
