package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the variants of a GenerationEvent.
type EventType string

const (
	// EventBlockStart marks the beginning of a structural block.
	EventBlockStart EventType = "block_start"
	// EventContentDelta carries a verbatim text fragment for the current block.
	EventContentDelta EventType = "content_delta"
	// EventBlockEnd marks the completion of the current structural block.
	EventBlockEnd EventType = "block_end"
	// EventSideEffectCreated records the creation of a secondary resource for a block.
	EventSideEffectCreated EventType = "side_effect_created"
	// EventComplete terminates a job after natural exhaustion of the producer.
	EventComplete EventType = "complete"
	// EventError carries a failure message. Terminal for job-fatal failures,
	// block-scoped for secondary-resource failures.
	EventError EventType = "error"
)

// GenerationEvent is the unit of progress a job exposes through polling.
// After emission it is immutable. Only the fields relevant to the event's
// Type are populated; the remaining fields keep their zero values so the
// struct stays trivially copyable across the log / poll boundary.
type GenerationEvent struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// block_start
	BlockType string         `json:"block_type,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`

	// content_delta
	Text string `json:"text,omitempty"`

	// side_effect_created
	ResourceID string `json:"resource_id,omitempty"`
	BlockIndex int    `json:"block_index,omitempty"`
	Label      string `json:"label,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// NewID generates a new unique identifier for jobs, events and resources.
func NewID() string { return uuid.NewString() }

func newEvent(jobID string, t EventType) GenerationEvent {
	return GenerationEvent{
		ID:        NewID(),
		JobID:     jobID,
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// NewBlockStartEvent announces a new structural block of the given type.
func NewBlockStartEvent(jobID, blockType string, attrs map[string]any) GenerationEvent {
	ev := newEvent(jobID, EventBlockStart)
	ev.BlockType = blockType
	ev.Attrs = attrs
	return ev
}

// NewContentDeltaEvent carries a verbatim text fragment for the current block.
func NewContentDeltaEvent(jobID, text string) GenerationEvent {
	ev := newEvent(jobID, EventContentDelta)
	ev.Text = text
	return ev
}

// NewBlockEndEvent closes the current structural block.
func NewBlockEndEvent(jobID string) GenerationEvent {
	return newEvent(jobID, EventBlockEnd)
}

// NewSideEffectCreatedEvent records a secondary resource created for the block
// at the given index.
func NewSideEffectCreatedEvent(jobID, resourceID string, blockIndex int, label string) GenerationEvent {
	ev := newEvent(jobID, EventSideEffectCreated)
	ev.ResourceID = resourceID
	ev.BlockIndex = blockIndex
	ev.Label = label
	return ev
}

// NewCompleteEvent terminates a job after the producer stream drained naturally.
func NewCompleteEvent(jobID string) GenerationEvent {
	return newEvent(jobID, EventComplete)
}

// NewErrorEvent carries a failure message. Whether it terminates the job
// depends on how it is appended (see GenerationJob.CompleteWith).
func NewErrorEvent(jobID, message string) GenerationEvent {
	ev := newEvent(jobID, EventError)
	ev.Message = message
	return ev
}

// IsTerminal reports whether the event type can end a well-formed log.
// Note that error events are only terminal when appended through a
// completion path; a block-scoped side-effect failure is an error event
// inside a job that keeps running.
func (e GenerationEvent) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
