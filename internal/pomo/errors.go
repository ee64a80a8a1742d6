package pomo

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a category id does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a blank required input.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must not be blank", e.Field)
}

// DuplicateNameError reports a case-insensitive category name collision.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a category named %q already exists", e.Name)
}

// LastCategoryError is returned when deleting the only remaining category.
type LastCategoryError struct{}

func (e *LastCategoryError) Error() string {
	return "cannot delete the last category"
}

// PersistenceError wraps a storage read or write failure.
type PersistenceError struct {
	Op  string // "load" or "save"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
