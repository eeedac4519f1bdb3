package storage

import "fmt"

var (
	// ErrNotFound is returned when a document / tenant pair does not exist
	// in the underlying store, or when a resource lookup misses.
	ErrNotFound = fmt.Errorf("document not found")
)
