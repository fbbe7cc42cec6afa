// Package dbcodes defines the SQLSTATE-style error taxonomy shared by every
// catalog-mutation component. Errors are *Error values built by New with a
// Code; (*Error).Is matches on Code alone, so callers use errors.Is/errors.As
// instead of string matching, matching the pattern in
// internal/storage/sqlite/errors.go.
package dbcodes

import (
	"errors"
	"fmt"
)

// Code is a SQLSTATE-shaped error class.
type Code string

const (
	DuplicateTable             Code = "42P07"
	DuplicateColumn            Code = "42701"
	UndefinedTable             Code = "42P01"
	UndefinedColumn            Code = "42703"
	WrongObjectType            Code = "42809"
	InvalidTableDefinition     Code = "42P16"
	InvalidObjectDefinition    Code = "42P17"
	DatatypeMismatch           Code = "42804"
	CollationMismatch          Code = "42P21"
	FeatureNotSupported        Code = "0A000"
	InsufficientPrivilege      Code = "42501"
	TooManyColumns             Code = "54011"
	InvalidForeignKey          Code = "42830"
	CheckViolation             Code = "23514"
	NotNullViolation           Code = "23502"
	InvalidColumnReference     Code = "42P10"
	ObjectInUse                Code = "55006"
	ObjectNotInPrerequisite    Code = "55000"
	DependentObjectsStillExist Code = "2BP01"
)

// Error is a catalog-mutation error carrying a SQLSTATE-shaped code plus
// optional detail/hint text, mirroring spec.md's (severity, sqlstate,
// message, detail?, hint?, position?) error tuple.
type Error struct {
	Code    Code
	Message string
	Detail  string
	Hint    string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an *Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches row/constraint-pointing detail text and returns the
// same error for chaining at the call site.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint attaches a hint and returns the same error for chaining.
func (e *Error) WithHint(format string, args ...any) *Error {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// Is lets errors.Is match on Code alone, e.g. errors.Is(err, dbcodes.New(dbcodes.DuplicateTable, "")).
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == e.Code
	}
	return false
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
