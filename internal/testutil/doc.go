// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing producer scripts and asserting
// editing-surface behavior. These helpers are intentionally minimal and not
// intended for production usage.
package testutil
