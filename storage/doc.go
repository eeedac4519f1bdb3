// Package storage contains concrete implementations of core.DocumentStore.
//
// The canonical DocumentStore interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. Implementation
// packages like this one provide backends that can be swapped without
// touching calling code; callers should depend on the core interface so they
// can substitute the host application's real record store in production.
package storage
