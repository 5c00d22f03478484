package federation

import (
	"strings"
	"sync"

	"github.com/fedledger/fedledger/src/ident"
)

// Organization groups users under a Federation and names the currency its
// users trade in.
type Organization struct {
	ident  *ident.Identifier
	symbol string

	l     sync.RWMutex
	users []*OrganizationUser
}

// NewOrganization creates an Organization under the Federation identified by
// fed. An empty symbol defaults to the upper-cased handle.
func NewOrganization(gen *ident.Generator, fed *ident.Identifier, handle, symbol string) (*Organization, error) {
	id, err := gen.New(ident.Organization, handle, fed)
	if err != nil {
		return nil, err
	}
	return newOrganization(id, symbol), nil
}

// OrganizationFromIdentifier wraps an existing identifier, for instance one
// read back from the peer directory.
func OrganizationFromIdentifier(id *ident.Identifier, symbol string) *Organization {
	return newOrganization(id.Clone(), symbol)
}

func newOrganization(id *ident.Identifier, symbol string) *Organization {
	if symbol == "" {
		symbol = strings.ToUpper(id.Handle)
	}
	return &Organization{
		ident:  id,
		symbol: symbol,
	}
}

// Identifier ...
func (o *Organization) Identifier() *ident.Identifier {
	return o.ident
}

// Handle ...
func (o *Organization) Handle() string {
	return o.ident.Handle
}

// Symbol is the display symbol of the Organization's currency.
func (o *Organization) Symbol() string {
	return o.symbol
}

// String ...
func (o *Organization) String() string {
	return o.ident.Local()
}

// RegisterUser appends u. Handles are not de-duplicated.
func (o *Organization) RegisterUser(u *OrganizationUser) {
	o.l.Lock()
	defer o.l.Unlock()
	o.users = append(o.users, u)
}

// NewUser creates and registers a user.
func (o *Organization) NewUser(gen *ident.Generator, handle string) (*OrganizationUser, error) {
	u, err := NewOrganizationUser(gen, o.ident, handle)
	if err != nil {
		return nil, err
	}
	o.RegisterUser(u)
	return u, nil
}

// FindUser returns the first user registered with handle.
func (o *Organization) FindUser(handle string) (*OrganizationUser, bool) {
	o.l.RLock()
	defer o.l.RUnlock()

	for _, u := range o.users {
		if u.Handle() == handle {
			return u, true
		}
	}
	return nil, false
}

// HasUser ...
func (o *Organization) HasUser(handle string) bool {
	_, ok := o.FindUser(handle)
	return ok
}

// GetOrCreateUser returns the first user with handle or registers a new one.
func (o *Organization) GetOrCreateUser(gen *ident.Generator, handle string) (*OrganizationUser, error) {
	o.l.Lock()
	defer o.l.Unlock()

	for _, u := range o.users {
		if u.Handle() == handle {
			return u, nil
		}
	}

	u, err := NewOrganizationUser(gen, o.ident, handle)
	if err != nil {
		return nil, err
	}
	o.users = append(o.users, u)
	return u, nil
}

// Users returns a copy of the user list in registration order.
func (o *Organization) Users() []*OrganizationUser {
	o.l.RLock()
	defer o.l.RUnlock()

	res := make([]*OrganizationUser, len(o.users))
	copy(res, o.users)
	return res
}
