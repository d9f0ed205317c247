package persistence

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("persistence: record not found")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation indicates a check or not-null constraint failed.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation indicates a referenced record does not exist.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
