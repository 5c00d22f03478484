package ident

import (
	"fmt"
	"strings"
)

// Parse reads a k identifier serialized in any scope. The scope is inferred
// from the length of s; when several scopes are possible they are tried
// smallest first and the first one whose segments are well formed wins.
// Ancestors that the string does not carry are filled in with placeholders
// drawn from gen.
func Parse(k Kind, s string, gen *Generator) (*Identifier, error) {
	candidates, err := InferScope(k, len(s))
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Input = s
		}
		return nil, err
	}

	var lastErr error
	for _, scope := range candidates {
		id, err := ParseScoped(k, scope, s, gen)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// ParseScoped parses s assuming it was written in scope.
func ParseScoped(k Kind, scope Scope, s string, gen *Generator) (*Identifier, error) {
	if err := k.checkValid(); err != nil {
		return nil, err
	}

	levels := scope.Levels(k)

	segments, err := split(s, levels)
	if err != nil {
		return nil, &Error{Kind: k, Code: MalformedSegment, Input: s, Reason: fmt.Sprintf("%s: %v", scope, err)}
	}

	chain := k.chain()
	present := chain[len(chain)-levels:]
	missing := chain[:len(chain)-levels]

	var parent *Identifier
	for _, mk := range missing {
		parent = gen.placeholder(mk, parent)
	}

	for i, seg := range segments {
		id, err := parseSegment(present[i], seg)
		if err != nil {
			return nil, &Error{Kind: k, Code: MalformedSegment, Input: s, Reason: fmt.Sprintf("%s: %v", scope, err)}
		}
		id.Parent = parent
		parent = id
	}

	return parent, nil
}

// split cuts s into exactly n segments. Every segment ends with ';' and
// consecutive segments are separated by a single space.
func split(s string, n int) ([]string, error) {
	if !strings.HasSuffix(s, ";") {
		return nil, fmt.Errorf("missing terminator")
	}

	parts := strings.Split(strings.TrimSuffix(s, ";"), "; ")
	if len(parts) != n {
		return nil, fmt.Errorf("%d segments, want %d", len(parts), n)
	}

	for _, p := range parts {
		if strings.ContainsAny(p, "; ") {
			return nil, fmt.Errorf("stray separator in %q", p)
		}
	}

	return parts, nil
}

func parseSegment(k Kind, seg string) (*Identifier, error) {
	fields := strings.Split(seg, ":")
	if len(fields) != 3 {
		return nil, fmt.Errorf("segment %q has %d fields", seg, len(fields))
	}

	handle, disc, id := fields[0], fields[1], fields[2]

	if disc != k.Discriminator() {
		return nil, fmt.Errorf("discriminator %q, want %q", disc, k.Discriminator())
	}
	if len(id) != k.IDLen() {
		return nil, fmt.Errorf("id %q has length %d, want %d", id, len(id), k.IDLen())
	}
	if !k.HandleRange().Contains(len(handle)) {
		return nil, fmt.Errorf("handle %q has length %d outside %s", handle, len(handle), k.HandleRange())
	}

	return &Identifier{
		Kind:   k,
		ID:     id,
		Handle: handle,
	}, nil
}
