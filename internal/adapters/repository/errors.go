package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyLinked     = errors.New("result already linked")
	ErrNotLinked         = errors.New("result not linked")
	ErrDuplicateKey      = errors.New("idempotency key already used")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
