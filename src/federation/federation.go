package federation

import (
	"sync"

	"github.com/fedledger/fedledger/src/ident"
)

// Federation is the root of the hierarchy and the trust domain of the ledger.
type Federation struct {
	ident *ident.Identifier

	l    sync.RWMutex
	orgs []*Organization
}

// NewFederation creates a Federation with a fresh id.
func NewFederation(gen *ident.Generator, handle string) (*Federation, error) {
	id, err := gen.New(ident.Federation, handle, nil)
	if err != nil {
		return nil, err
	}
	return &Federation{ident: id}, nil
}

// FederationFromIdentifier wraps an existing Federation identifier.
func FederationFromIdentifier(id *ident.Identifier) *Federation {
	return &Federation{ident: id.Clone()}
}

// Identifier ...
func (f *Federation) Identifier() *ident.Identifier {
	return f.ident
}

// Handle ...
func (f *Federation) Handle() string {
	return f.ident.Handle
}

// ID ...
func (f *Federation) ID() string {
	return f.ident.ID
}

// RegisterOrganization appends o. Handles are not de-duplicated.
func (f *Federation) RegisterOrganization(o *Organization) {
	f.l.Lock()
	defer f.l.Unlock()
	f.orgs = append(f.orgs, o)
}

// NewOrganization creates and registers an Organization.
func (f *Federation) NewOrganization(gen *ident.Generator, handle, symbol string) (*Organization, error) {
	o, err := NewOrganization(gen, f.ident, handle, symbol)
	if err != nil {
		return nil, err
	}
	f.RegisterOrganization(o)
	return o, nil
}

// FindOrganization returns the first Organization registered with handle.
func (f *Federation) FindOrganization(handle string) (*Organization, bool) {
	f.l.RLock()
	defer f.l.RUnlock()

	for _, o := range f.orgs {
		if o.Handle() == handle {
			return o, true
		}
	}
	return nil, false
}

// Organization looks an Organization up by the handle of id.
func (f *Federation) Organization(id *ident.Identifier) (*Organization, bool) {
	if id == nil {
		return nil, false
	}
	return f.FindOrganization(id.Handle)
}

// GetOrCreateOrganization returns the first Organization with handle or
// registers a new one with the default symbol.
func (f *Federation) GetOrCreateOrganization(gen *ident.Generator, handle string) (*Organization, error) {
	f.l.Lock()
	defer f.l.Unlock()

	for _, o := range f.orgs {
		if o.Handle() == handle {
			return o, nil
		}
	}

	o, err := NewOrganization(gen, f.ident, handle, "")
	if err != nil {
		return nil, err
	}
	f.orgs = append(f.orgs, o)
	return o, nil
}

// Organizations returns a copy of the Organization list in registration
// order.
func (f *Federation) Organizations() []*Organization {
	f.l.RLock()
	defer f.l.RUnlock()

	res := make([]*Organization, len(f.orgs))
	copy(res, f.orgs)
	return res
}

// Len returns the number of registered Organizations.
func (f *Federation) Len() int {
	f.l.RLock()
	defer f.l.RUnlock()
	return len(f.orgs)
}

// Contains reports whether id belongs to this Federation, comparing the id of
// its Federation ancestor.
func (f *Federation) Contains(id *ident.Identifier) bool {
	if id == nil {
		return false
	}
	anc, ok := id.Ancestor(ident.Federation)
	return ok && anc.ID == f.ident.ID
}
