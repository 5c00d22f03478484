package ident

import "fmt"

// Kind is the level of an entity in the Federation > Organization >
// OrganizationUser hierarchy.
type Kind uint8

const (
	// Federation is the root of the hierarchy.
	Federation Kind = iota
	// Organization belongs to a Federation.
	Organization
	// OrganizationUser belongs to an Organization.
	OrganizationUser
)

type kindInfo struct {
	name          string
	discriminator string
	idLen         int
	handle        Range
	parent        Kind
	root          bool
}

var kinds = [...]kindInfo{
	Federation: {
		name:          "Federation",
		discriminator: "F",
		idLen:         2,
		handle:        Range{2, 16},
		root:          true,
	},
	Organization: {
		name:          "Organization",
		discriminator: "O",
		idLen:         2,
		handle:        Range{3, 16},
		parent:        Federation,
	},
	OrganizationUser: {
		name:          "OrganizationUser",
		discriminator: "OU",
		idLen:         4,
		handle:        Range{2, 16},
		parent:        Organization,
	},
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return int(k) < len(kinds)
}

func (k Kind) checkValid() error {
	if !k.Valid() {
		return &Error{Kind: k, Code: InvalidKind}
	}
	return nil
}

func (k Kind) info() kindInfo {
	if !k.Valid() {
		panic(fmt.Sprintf("ident: unknown kind %d", k))
	}
	return kinds[k]
}

// String returns the name of the kind.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kinds[k].name
}

// Discriminator returns the tag written in the middle field of a segment.
func (k Kind) Discriminator() string {
	return k.info().discriminator
}

// IDLen returns the fixed length of the random id token.
func (k Kind) IDLen() int {
	return k.info().idLen
}

// HandleRange returns the inclusive range of accepted handle lengths.
func (k Kind) HandleRange() Range {
	return k.info().handle
}

// IsRoot reports whether the kind has no parent.
func (k Kind) IsRoot() bool {
	return k.info().root
}

// Parent returns the kind of the enclosing entity. ok is false for the root.
func (k Kind) Parent() (parent Kind, ok bool) {
	s := k.info()
	return s.parent, !s.root
}

// Depth is the number of ancestors of the kind.
func (k Kind) Depth() int {
	d := 0
	for !k.IsRoot() {
		k, _ = k.Parent()
		d++
	}
	return d
}

// chain returns the kinds from the root down to k.
func (k Kind) chain() []Kind {
	res := make([]Kind, k.Depth()+1)
	for i := len(res) - 1; i >= 0; i-- {
		res[i] = k
		k, _ = k.Parent()
	}
	return res
}

// KindFromDiscriminator maps a discriminator tag back to its Kind.
func KindFromDiscriminator(d string) (Kind, bool) {
	for i, s := range kinds {
		if s.discriminator == d {
			return Kind(i), true
		}
	}
	return 0, false
}
