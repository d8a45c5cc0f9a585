package core

import "fmt"

// NotFoundError reports a mutation referencing an unknown transaction or
// category id.
type NotFoundError struct {
	Kind string // "transaction", "main category", "subcategory"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError reports malformed input: a bad reorder list, an invalid
// date, or a category-tree integrity violation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// LockedError reports an attempt to categorize a locked transaction.
// Locked transactions are only changed through an explicit unlock.
type LockedError struct {
	TransactionID string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("transaction %q is locked", e.TransactionID)
}

// PersistenceError wraps an I/O failure on save, load or backup. The
// in-memory state stays authoritative when one occurs.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
