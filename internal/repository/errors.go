// Package repository holds the SQL access for users, sessions and presence.
// Sentinel errors below let services tell a missing row from a clash on a
// unique column without looking at driver specific error values.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a unique constraint
// (email, full tag, uid or token hash).
var ErrDuplicate = errors.New("duplicate key")
