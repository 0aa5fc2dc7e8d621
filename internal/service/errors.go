package service

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest   = errors.New("missing required field")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrConflict     = errors.New("already exists")
)

// StorageError wraps a datastore failure. Callers see it as an opaque
// internal error; the wrapped error is for server-side logs only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
