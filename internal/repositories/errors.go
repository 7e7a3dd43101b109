package repositories

import "errors"

var (
	// ErrNotFound indicates the row, or a row it references, does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique or check constraint rejected the write: a taken
	// username or email, a duplicate follow edge or a self follow.
	ErrConflict = errors.New("constraint violation")
)
