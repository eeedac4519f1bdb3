// Package jobstore contains concrete implementations of core.JobStore.
//
// The canonical JobStore interface lives in the core package to keep domain
// contracts central. Job state is deliberately volatile: a job that outlives
// the process is out of scope, so the in-memory arena is the primary
// implementation rather than a test stand-in.
package jobstore
