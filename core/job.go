package core

import (
	"sync"
	"time"
)

// GenerationJob tracks one invocation of the generation pipeline: an
// append-only event log, block bookkeeping, the side-effect index and the
// single poll cursor. It is safe for concurrent access.
//
// Contract:
//   - Events are append-only; they are never mutated or reordered
//   - The completion flag transitions at most once, false -> true
//   - TakeNewEvents returns defensive copies and advances the cursor; the
//     cursor is single-owner (one logical poller per job)
//   - The worker is the sole writer during normal operation; Cancel competes
//     only on the completion transition, which CompleteWith serializes
type GenerationJob struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu          sync.RWMutex
	events      []GenerationEvent
	blocks      []Block
	sideEffects map[int]string
	complete    bool
	lastPolled  int
}

// NewGenerationJob creates an empty job with the given id.
func NewGenerationJob(id string) *GenerationJob {
	return &GenerationJob{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		sideEffects: map[int]string{},
	}
}

// Append adds an event to the log unconditionally. Completion paths use
// CompleteWith instead so the terminal event and the flag flip stay atomic.
func (j *GenerationJob) Append(ev GenerationEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
}

// AppendIfActive adds an event only while the job is still running. The
// worker emits through this so that events produced by an already-received
// upstream unit are discarded after cancellation rather than appended behind
// the terminal event.
func (j *GenerationJob) AppendIfActive(ev GenerationEvent) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.complete {
		return false
	}
	j.events = append(j.events, ev)
	return true
}

// CompleteWith flips the completion flag and appends the terminal event in
// one step. It returns false without appending if the job already completed,
// so a worker finishing naturally and a racing Cancel produce exactly one
// terminal event between them.
func (j *GenerationJob) CompleteWith(ev GenerationEvent) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.complete {
		return false
	}
	j.complete = true
	j.events = append(j.events, ev)
	return true
}

// IsComplete reports whether the job reached a terminal state.
func (j *GenerationJob) IsComplete() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.complete
}

// Events returns a defensive copy of the full log.
func (j *GenerationJob) Events() []GenerationEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()
	events := make([]GenerationEvent, len(j.events))
	copy(events, j.events)
	return events
}

// TakeNewEvents returns the events appended since the previous call and
// advances the poll cursor past them. The returned slice is a copy. The
// second result reports job completion as of the same snapshot, so a caller
// observing isComplete=true has already received every event.
func (j *GenerationJob) TakeNewEvents() ([]GenerationEvent, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fresh := make([]GenerationEvent, len(j.events)-j.lastPolled)
	copy(fresh, j.events[j.lastPolled:])
	j.lastPolled = len(j.events)
	return fresh, j.complete
}

// RecordBlock appends a block bookkeeping record and returns its index.
func (j *GenerationJob) RecordBlock(blockType string, attrs map[string]any) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	idx := len(j.blocks)
	j.blocks = append(j.blocks, Block{Index: idx, Type: blockType, Attrs: attrs})
	return idx
}

// AppendBlockText accumulates fragment text into the block record at idx.
func (j *GenerationJob) AppendBlockText(idx int, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if idx < 0 || idx >= len(j.blocks) {
		return
	}
	j.blocks[idx].Text += text
}

// SetBlockTable attaches the embedded table specification to the block at idx.
func (j *GenerationJob) SetBlockTable(idx int, table *TableSpec) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if idx < 0 || idx >= len(j.blocks) {
		return
	}
	j.blocks[idx].Table = table.Clone()
}

// Blocks returns a copy of the block bookkeeping records emitted so far.
func (j *GenerationJob) Blocks() []Block {
	j.mu.RLock()
	defer j.mu.RUnlock()
	blocks := make([]Block, len(j.blocks))
	copy(blocks, j.blocks)
	return blocks
}

// SetSideEffect records the resource created for a block index. It returns
// false without overwriting if the index already has a resource, enforcing
// the at-most-one-resource-per-block discipline even across worker retries.
func (j *GenerationJob) SetSideEffect(idx int, resourceID string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, exists := j.sideEffects[idx]; exists {
		return false
	}
	j.sideEffects[idx] = resourceID
	return true
}

// SideEffect returns the resource id recorded for a block index, if any.
func (j *GenerationJob) SideEffect(idx int) (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	id, ok := j.sideEffects[idx]
	return id, ok
}

// SideEffectIndex returns a copy of the block-index -> resource-id mapping.
func (j *GenerationJob) SideEffectIndex() map[int]string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	idx := make(map[int]string, len(j.sideEffects))
	for k, v := range j.sideEffects {
		idx[k] = v
	}
	return idx
}

// Age returns how long ago the job was created relative to now.
func (j *GenerationJob) Age(now time.Time) time.Duration {
	return now.Sub(j.CreatedAt)
}

// PollResult is the response shape of one poll: the events appended since the
// previous poll, the completion flag, and the cumulative side-effect index.
type PollResult struct {
	Events          []GenerationEvent `json:"events"`
	IsComplete      bool              `json:"is_complete"`
	SideEffectIndex map[int]string    `json:"side_effect_index,omitempty"`
}
