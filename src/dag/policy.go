package dag

import (
	"fmt"
	"strings"
)

// ParentPolicy decides what Insert does with a declared parent that is not in
// the graph yet.
type ParentPolicy uint8

const (
	// AcceptOrphan inserts the transaction and skips the missing edges.
	AcceptOrphan ParentPolicy = iota
	// RejectDangling refuses the transaction without touching the graph.
	RejectDangling
	// DeferDangling parks the transaction until all its parents are present,
	// or until the hold expires.
	DeferDangling
)

var policies = []string{"accept-orphan", "reject", "defer"}

// String ...
func (p ParentPolicy) String() string {
	if int(p) >= len(policies) {
		return fmt.Sprintf("ParentPolicy(%d)", p)
	}
	return policies[p]
}

// ParsePolicy reads the names returned by String.
func ParsePolicy(s string) (ParentPolicy, error) {
	for i, name := range policies {
		if strings.EqualFold(s, name) {
			return ParentPolicy(i), nil
		}
	}
	return AcceptOrphan, fmt.Errorf("unknown parent policy %q, want one of %v", s, policies)
}
