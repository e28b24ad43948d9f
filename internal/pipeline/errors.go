package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSuperseded is returned by an Upload whose read finished after a newer
	// Upload began. Its result is discarded.
	ErrSuperseded = errors.New("upload superseded by a newer upload")
	// ErrTransactionNotFound is returned when no transaction has the given ID.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrAmbiguousID is returned when an ID prefix matches several transactions.
	ErrAmbiguousID = errors.New("transaction ID prefix is ambiguous")
)

// FileError rejects a file before any of it is read.
type FileError struct {
	Name   string
	Reason string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// BatchError is a failure that invalidates a whole upload. Results from
// earlier uploads are left in place.
type BatchError struct {
	Name string
	Err  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("importing %s: %v", e.Name, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
