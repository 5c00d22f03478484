package ident

import (
	"fmt"
	"strings"
)

const reservedChars = ":; "

// Identifier addresses one entity of the hierarchy. Parent holds a copy of the
// parent identifier and is nil only for a Federation.
type Identifier struct {
	Kind   Kind        `json:"kind"`
	ID     string      `json:"id"`
	Handle string      `json:"handle"`
	Parent *Identifier `json:"parent,omitempty"`

	// Placeholder marks identifiers fabricated while parsing a string that
	// did not carry this level of the chain.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Local returns "{handle}:{discriminator}:{id};".
func (i *Identifier) Local() string {
	return fmt.Sprintf("%s:%s:%s;", i.Handle, i.Kind.Discriminator(), i.ID)
}

// ParentInclusive returns the parent's local segment, a space, and the local
// segment. The root returns its local segment.
func (i *Identifier) ParentInclusive() string {
	if i.Parent == nil {
		return i.Local()
	}
	return i.Parent.Local() + " " + i.Local()
}

// Global returns every segment of the chain, root first.
func (i *Identifier) Global() string {
	if i.Parent == nil {
		return i.Local()
	}
	return i.Parent.Global() + " " + i.Local()
}

// Format serializes the identifier in the given scope.
func (i *Identifier) Format(s Scope) string {
	switch s {
	case Local:
		return i.Local()
	case ParentInclusive:
		return i.ParentInclusive()
	default:
		return i.Global()
	}
}

// String returns the local form.
func (i *Identifier) String() string {
	return i.Local()
}

// Ancestor walks up the chain and returns the first identifier of kind k,
// possibly i itself.
func (i *Identifier) Ancestor(k Kind) (*Identifier, bool) {
	for cur := i; cur != nil; cur = cur.Parent {
		if cur.Kind == k {
			return cur, true
		}
	}
	return nil, false
}

// Equal compares kinds, ids and handles along the whole chain.
func (i *Identifier) Equal(o *Identifier) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Kind == o.Kind &&
		i.ID == o.ID &&
		i.Handle == o.Handle &&
		i.Parent.Equal(o.Parent)
}

// Clone returns a deep copy.
func (i *Identifier) Clone() *Identifier {
	if i == nil {
		return nil
	}
	c := *i
	c.Parent = i.Parent.Clone()
	return &c
}

// ValidateHandle checks the handle length against the kind table and rejects
// the separator characters.
func ValidateHandle(k Kind, handle string) error {
	if err := k.checkValid(); err != nil {
		return err
	}
	if !k.HandleRange().Contains(len(handle)) {
		return &Error{
			Kind:   k,
			Code:   InvalidHandle,
			Input:  handle,
			Reason: fmt.Sprintf("length %d outside %s", len(handle), k.HandleRange()),
		}
	}
	if strings.ContainsAny(handle, reservedChars) {
		return &Error{
			Kind:   k,
			Code:   InvalidHandle,
			Input:  handle,
			Reason: "handle contains a separator",
		}
	}
	return nil
}
