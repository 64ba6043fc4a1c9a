// Package service implements the credential store, tag allocator, session
// manager and presence tracker on top of the repositories.
package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrExhaustedRetries = errors.New("exhausted retries")
)

// OpError is a failed operation with a stable Kind and a client safe Msg.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// PublicMessage is the text safe to show to API clients.
func (e OpError) PublicMessage() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

func opErr(op string, kind error, msg string) error {
	return OpError{Op: op, Kind: kind, Msg: msg}
}
