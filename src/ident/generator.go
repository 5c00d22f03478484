package ident

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces random tokens and new identifiers from an explicit
// source, so that tests can seed it.
type Generator struct {
	l   sync.Mutex
	rnd *rand.Rand
}

// NewGenerator wraps src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// NewSeededGenerator returns a Generator over rand.NewSource(seed). A zero seed
// picks one from the clock.
func NewSeededGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewGenerator(rand.NewSource(seed))
}

// Token returns n random alphanumeric characters.
func (g *Generator) Token(n int) string {
	g.l.Lock()
	defer g.l.Unlock()

	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[g.rnd.Intn(len(alphanumeric))]
	}
	return string(b)
}

// ID returns a fresh id token for kind k.
func (g *Generator) ID(k Kind) string {
	return g.Token(k.IDLen())
}

// New creates an identifier of kind k. The parent is required for every kind
// but Federation, must be of the parent kind, and is copied.
func (g *Generator) New(k Kind, handle string, parent *Identifier) (*Identifier, error) {
	if err := ValidateHandle(k, handle); err != nil {
		return nil, err
	}

	pk, hasParent := k.Parent()
	switch {
	case !hasParent && parent != nil:
		return nil, &Error{Kind: k, Code: InvalidParent, Reason: "root kind takes no parent"}
	case hasParent && parent == nil:
		return nil, &Error{Kind: k, Code: InvalidParent, Reason: fmt.Sprintf("missing %s parent", pk)}
	case hasParent && parent.Kind != pk:
		return nil, &Error{Kind: k, Code: InvalidParent, Reason: fmt.Sprintf("parent is %s, want %s", parent.Kind, pk)}
	}

	return &Identifier{
		Kind:   k,
		ID:     g.ID(k),
		Handle: handle,
		Parent: parent.Clone(),
	}, nil
}

// placeholder fabricates an identifier for a level missing from a parsed
// string.
func (g *Generator) placeholder(k Kind, parent *Identifier) *Identifier {
	return &Identifier{
		Kind:        k,
		ID:          g.ID(k),
		Handle:      g.Token(k.HandleRange().Min),
		Parent:      parent,
		Placeholder: true,
	}
}
