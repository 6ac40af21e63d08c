// Package regtypes holds the value-type constants, typed-error convention,
// and small shared structs used across the overlay store, the .reg codec,
// and the API interceptors.
package regtypes

import "errors"

// Type is a raw 32-bit registry value type id, preserved verbatim even for
// ids this package does not otherwise interpret.
type Type uint32

const (
	NONE                       Type = 0
	SZ                         Type = 1
	EXPAND_SZ                  Type = 2
	BINARY                     Type = 3
	DWORD                      Type = 4
	DWORD_BIG_ENDIAN           Type = 5
	LINK                       Type = 6
	MULTI_SZ                   Type = 7
	RESOURCE_LIST              Type = 8
	FULL_RESOURCE_DESCRIPTOR   Type = 9
	RESOURCE_REQUIREMENTS_LIST Type = 10
	QWORD                      Type = 11
)

// ErrKind classifies errors so callers can branch on intent rather than
// text, matching the status-code space the interceptors must preserve
// exactly.
type ErrKind int

const (
	ErrKindNotFound    ErrKind = iota // ERROR_FILE_NOT_FOUND equivalent
	ErrKindMoreData                  // ERROR_MORE_DATA
	ErrKindNoMoreItems               // ERROR_NO_MORE_ITEMS
	ErrKindAccessDenied
	ErrKindStoreFailure // generic store I/O failure
	ErrKindInvalidArg
)

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels. Use errors.Is against these, not string comparison.
var (
	ErrNotFound     = &Error{Kind: ErrKindNotFound, Msg: "registry: not found"}
	ErrMoreData     = &Error{Kind: ErrKindMoreData, Msg: "registry: more data"}
	ErrNoMoreItems  = &Error{Kind: ErrKindNoMoreItems, Msg: "registry: no more items"}
	ErrAccessDenied = &Error{Kind: ErrKindAccessDenied, Msg: "registry: access denied"}
	ErrStoreFailure = &Error{Kind: ErrKindStoreFailure, Msg: "registry: store failure"}
	ErrInvalidArg   = &Error{Kind: ErrKindInvalidArg, Msg: "registry: invalid argument"}
)

// Wrap produces a *Error of the given kind wrapping cause, or nil if cause
// is nil.
func Wrap(kind ErrKind, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf extracts the ErrKind from err, defaulting to ErrKindStoreFailure
// when err is not one of our typed errors: unexpected errors from the
// store are surfaced as store failures.
func KindOf(err error) ErrKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return ErrKindStoreFailure
}

// Value is the decoded shape of a single overlay row, as returned by
// GetValue/ListValues.
type Value struct {
	Name      string
	Type      Type
	Data      []byte
	IsDeleted bool
	UpdatedAt int64
}
