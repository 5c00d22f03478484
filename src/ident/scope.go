package ident

import "fmt"

// Range is an inclusive range of string lengths.
type Range struct {
	Min int
	Max int
}

// Contains reports whether n lies within the range.
func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

func (r Range) add(o Range) Range {
	return Range{r.Min + o.Min, r.Max + o.Max}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// segmentOverhead counts the two ':' separators and the ';' terminator.
const segmentOverhead = 3

// Scope says how much of the ancestor chain a serialized identifier carries.
type Scope uint8

const (
	// Local is the identifier's own segment.
	Local Scope = iota
	// ParentInclusive is the parent's local segment followed by the local one.
	ParentInclusive
	// Global is the full chain, root first.
	Global
)

var scopes = []string{"Local", "ParentInclusive", "Global"}

// String ...
func (s Scope) String() string {
	if int(s) >= len(scopes) {
		return fmt.Sprintf("Scope(%d)", s)
	}
	return scopes[s]
}

// Levels is the number of segments a k identifier has in scope s.
func (s Scope) Levels(k Kind) int {
	switch s {
	case Local:
		return 1
	case ParentInclusive:
		if k.IsRoot() {
			return 1
		}
		return 2
	default:
		return k.Depth() + 1
	}
}

// Range returns the length range of a k identifier serialized in scope s.
func (s Scope) Range(k Kind) Range {
	switch s {
	case Local:
		return LocalRange(k)
	case ParentInclusive:
		return ParentInclusiveRange(k)
	default:
		return GlobalRange(k)
	}
}

// LocalRange is the length range of the local segment of k:
// handle range + separators + discriminator + id. It panics on an invalid
// Kind.
func LocalRange(k Kind) Range {
	s := k.info()
	fixed := segmentOverhead + len(s.discriminator) + s.idLen
	return s.handle.add(Range{fixed, fixed})
}

// ParentInclusiveRange is LocalRange(parent) + 1 + LocalRange(k), or
// LocalRange(k) for the root.
func ParentInclusiveRange(k Kind) Range {
	p, ok := k.Parent()
	if !ok {
		return LocalRange(k)
	}
	return LocalRange(p).add(Range{1, 1}).add(LocalRange(k))
}

// GlobalRange is GlobalRange(parent) + 1 + LocalRange(k), or LocalRange(k)
// for the root.
func GlobalRange(k Kind) Range {
	p, ok := k.Parent()
	if !ok {
		return LocalRange(k)
	}
	return GlobalRange(p).add(Range{1, 1}).add(LocalRange(k))
}

// InferScope returns the scopes a k identifier of the given length could be
// written in, smallest first. Scopes with the same number of segments are
// reported once.
func InferScope(k Kind, length int) ([]Scope, error) {
	if err := k.checkValid(); err != nil {
		return nil, err
	}
	if length < LocalRange(k).Min {
		return nil, &Error{Kind: k, Code: TooShort, Reason: fmt.Sprintf("length %d below %d", length, LocalRange(k).Min)}
	}
	if length > GlobalRange(k).Max {
		return nil, &Error{Kind: k, Code: TooLong, Reason: fmt.Sprintf("length %d above %d", length, GlobalRange(k).Max)}
	}

	var res []Scope
	seen := map[int]bool{}
	for _, s := range []Scope{Local, ParentInclusive, Global} {
		if !s.Range(k).Contains(length) {
			continue
		}
		lv := s.Levels(k)
		if seen[lv] {
			continue
		}
		seen[lv] = true
		res = append(res, s)
	}

	if len(res) == 0 {
		return nil, &Error{Kind: k, Code: MalformedSegment, Reason: fmt.Sprintf("no scope accepts length %d", length)}
	}

	return res, nil
}
