package ident

import (
	"errors"
	"fmt"
)

// Code classifies identifier errors.
type Code int

const (
	// TooShort means the input is shorter than any local identifier of the kind.
	TooShort Code = iota
	// TooLong means the input is longer than the global form of the kind.
	TooLong
	// MalformedSegment means no candidate scope produced a well-formed split.
	MalformedSegment
	// InvalidHandle means a handle has the wrong length or a reserved character.
	InvalidHandle
	// InvalidParent means the parent is missing or of the wrong kind.
	InvalidParent
	// InvalidKind means the Kind is not one of the declared kinds.
	InvalidKind
)

var codes = []string{"TooShort", "TooLong", "MalformedSegment", "InvalidHandle", "InvalidParent", "InvalidKind"}

// String ...
func (c Code) String() string {
	if int(c) >= len(codes) {
		return fmt.Sprintf("Code(%d)", c)
	}
	return codes[c]
}

// Error is returned by the constructors and parsers of this package.
type Error struct {
	Kind   Kind
	Code   Code
	Input  string
	Reason string
}

// Error ...
func (e *Error) Error() string {
	msg := fmt.Sprintf("ident: %s %s", e.Kind, e.Code)
	if e.Input != "" {
		msg += fmt.Sprintf(" %q", e.Input)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is reports whether err is an ident Error with the given code.
func Is(err error, c Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == c
}
