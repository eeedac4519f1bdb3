package core

import (
	"context"
	"time"
)

// JobStore is the arena holding live jobs keyed by id. The orchestrator owns
// the only reference; implementations must be safe for concurrent access
// because the sweep ticker and request paths race on the map.
type JobStore interface {
	Put(job *GenerationJob)
	Get(id string) (*GenerationJob, bool)
	Remove(id string)
	// Sweep removes every completed job older than retention and returns the
	// number removed. Incomplete jobs are never swept regardless of age.
	Sweep(now time.Time, retention time.Duration) int
}

// DocumentStore is the external storage collaborator: it answers tenancy
// checks for generation targets and materializes secondary resources declared
// by generated blocks.
type DocumentStore interface {
	// ValidateOwnership reports whether the target document belongs to the
	// tenant. A false result is not an error.
	ValidateOwnership(ctx context.Context, targetID, tenantID string) (bool, error)
	// MaterializeSecondaryResource creates the tabular resource under the
	// parent document and returns its id.
	MaterializeSecondaryResource(ctx context.Context, spec TableSpec, parentID, tenantID string) (string, error)
}

// Cursor marks a position in the external editing surface.
type Cursor int

// Surface is the external structured-document editing collaborator. The drip
// buffer drives it one transform at a time; implementations are expected to
// apply each call synchronously.
type Surface interface {
	// InsertEmptyNode inserts an empty node of the given type at the current
	// cursor and returns the position marking the end of the new node.
	InsertEmptyNode(nodeType string, attrs map[string]any) (Cursor, error)
	// InsertTextAtCursor appends text at the end of the streaming node.
	InsertTextAtCursor(text string) error
	// UndoLastTransform reverts the draft content inserted for the current block.
	UndoLastTransform() error
	// InsertFinalNode applies the fully-specified final content in one transform.
	InsertFinalNode(spec BlockSpec) error
}
