// Package core provides the foundational domain types and interfaces used by
// docgen. It defines the core abstractions for:
//
//   - GenerationJob (one invocation of the pipeline with its append-only event log)
//   - GenerationEvent (immutable progress records delivered through polling)
//   - Blocks and block specifications (the structural units of a generated document)
//   - Pluggable stores for job state and document ownership / secondary resources
//   - The Surface contract through which streamed content reaches the host's
//     structured-document editor
//
// The package intentionally keeps implementation concerns (in-memory arenas,
// provider adapters, orchestration) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
