// Package drip implements the per-block character-streaming state machine
// that animates generated text into the editing surface. Queued text drains
// one chunk per frame; the chunk size is selected per cycle from three
// regimes (normal, backpressure, finalize-accelerated) and the draft content
// is atomically replaced by the final block specification only once the
// queue is empty, so the caller never sees a mid-animation content jump.
package drip

import (
	"sync"

	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/logging"
)

// Config tunes the drain regimes. Chunk sizes are in characters per frame.
type Config struct {
	// NormalChunk applies while the queue is below the backpressure
	// threshold and no finalize is pending.
	NormalChunk int
	// BackpressureChunk applies whenever the queued length exceeds
	// BackpressureThreshold, bounding queue growth during upstream bursts.
	BackpressureChunk int
	// FinalizeChunk applies once a finalize is pending, draining the
	// remainder quickly while staying visually smooth.
	FinalizeChunk int
	// BackpressureThreshold is the queued length above which the
	// backpressure regime engages.
	BackpressureThreshold int
}

// DefaultConfig returns the standard regime tuning.
func DefaultConfig() Config {
	return Config{
		NormalChunk:           3,
		BackpressureChunk:     10,
		FinalizeChunk:         15,
		BackpressureThreshold: 50,
	}
}

// Options holds dependency + configuration overrides passed to NewBuffer().
type Options struct {
	Scheduler FrameScheduler
	Config    Config
	Logger    logging.Logger
}

type pendingFinalize struct {
	spec         core.BlockSpec
	sideEffectID string
}

// Buffer is the drip buffer for one block at a time. At most one block is in
// flight: starting a new block while the previous one still has a pending
// finalize flushes and finalizes the previous block synchronously first.
//
// Surface mutation failures are swallowed and the in-flight block abandoned
// rather than propagated; a partially-applied animation frame cannot be
// meaningfully retried.
type Buffer struct {
	mu      sync.Mutex
	surface core.Surface
	sched   FrameScheduler
	cfg     Config
	logger  logging.Logger

	active      bool
	cursor      core.Cursor
	queue       []rune
	cancelFrame func()
	pending     *pendingFinalize
	finalized   int
}

// NewBuffer constructs a Buffer draining into surface with optional overrides.
func NewBuffer(surface core.Surface, optFns ...func(o *Options)) *Buffer {
	opts := Options{
		Scheduler: TimerScheduler{},
		Config:    DefaultConfig(),
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Buffer{
		surface: surface,
		sched:   opts.Scheduler,
		cfg:     opts.Config,
		logger:  opts.Logger,
	}
}

// StartBlock begins streaming a new block: an empty node of the requested
// type is inserted at the current cursor. If the previous block has a
// pending finalize, its remaining queue is flushed and its finalize executed
// synchronously first, preserving the one-block-at-a-time invariant even
// when the caller pipelines quickly.
func (b *Buffer) StartBlock(blockType string, attrs map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		b.flushAndFinalizeLocked()
	}

	cursor, err := b.surface.InsertEmptyNode(blockType, attrs)
	if err != nil {
		b.logger.Warn("drip: insert empty node failed, abandoning block", "block_type", blockType, "error", err)
		b.abandonLocked()
		return
	}
	b.cursor = cursor
	b.active = true
}

// AppendText queues a chunk of streaming text and ensures a drain is
// scheduled. Text arriving outside a block is dropped.
func (b *Buffer) AppendText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	b.queue = append(b.queue, []rune(text)...)
	b.ensureScheduledLocked()
}

// FinalizeBlock replaces the block's draft content with the final
// specification. With an empty queue the undo-and-replace executes
// immediately; otherwise it is deferred until the drain loop observes an
// empty queue, avoiding a visible jump while text is still animating.
func (b *Buffer) FinalizeBlock(spec core.BlockSpec, sideEffectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	if len(b.queue) == 0 {
		b.finalizeLocked(spec, sideEffectID)
		return
	}
	b.pending = &pendingFinalize{spec: spec, sideEffectID: sideEffectID}
	b.ensureScheduledLocked()
}

// Reset cancels any scheduled drain and clears all state. It returns the
// number of fully finalized blocks, counting a pending-but-unexecuted
// finalize as one more: the started draft still counts as one insertion.
func (b *Buffer) Reset() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := b.finalized
	if b.pending != nil {
		count++
	}
	if b.cancelFrame != nil {
		b.cancelFrame()
		b.cancelFrame = nil
	}
	b.queue = nil
	b.pending = nil
	b.active = false
	b.finalized = 0
	b.cursor = 0
	return count
}

// QueuedLen returns the number of characters waiting to drain.
func (b *Buffer) QueuedLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Buffer) ensureScheduledLocked() {
	if b.cancelFrame != nil {
		return
	}
	b.cancelFrame = b.sched.Schedule(b.drainFrame)
}

// drainFrame is one drain cycle: consume one chunk, then either finalize,
// re-schedule, or go idle. It runs to completion synchronously; the yield
// between cycles is the scheduler's frame delay.
func (b *Buffer) drainFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelFrame = nil

	if !b.active {
		return
	}

	if len(b.queue) > 0 {
		n := b.chunkSizeLocked()
		if n > len(b.queue) {
			n = len(b.queue)
		}
		text := string(b.queue[:n])
		b.queue = b.queue[n:]
		if err := b.surface.InsertTextAtCursor(text); err != nil {
			b.logger.Warn("drip: insert text failed, abandoning block", "error", err)
			b.abandonLocked()
			return
		}
	}

	if len(b.queue) == 0 && b.pending != nil {
		p := b.pending
		b.pending = nil
		b.finalizeLocked(p.spec, p.sideEffectID)
		return
	}
	if len(b.queue) > 0 || b.pending != nil {
		b.ensureScheduledLocked()
	}
}

// chunkSizeLocked selects the regime for this cycle: backpressure whenever
// the queue exceeds the threshold, finalize-accelerated once a finalize is
// pending; the larger of the two applies when both hold.
func (b *Buffer) chunkSizeLocked() int {
	n := b.cfg.NormalChunk
	if len(b.queue) > b.cfg.BackpressureThreshold {
		n = b.cfg.BackpressureChunk
	}
	if b.pending != nil && b.cfg.FinalizeChunk > n {
		n = b.cfg.FinalizeChunk
	}
	return n
}

// flushAndFinalizeLocked drains the entire remaining queue in one transform
// and executes the pending finalize immediately, with no further animation.
func (b *Buffer) flushAndFinalizeLocked() {
	if b.cancelFrame != nil {
		b.cancelFrame()
		b.cancelFrame = nil
	}
	if len(b.queue) > 0 {
		text := string(b.queue)
		b.queue = nil
		if err := b.surface.InsertTextAtCursor(text); err != nil {
			b.logger.Warn("drip: flush failed, abandoning block", "error", err)
			b.abandonLocked()
			return
		}
	}
	p := b.pending
	b.pending = nil
	b.finalizeLocked(p.spec, p.sideEffectID)
}

// finalizeLocked performs the atomic draft-to-final replacement: undo the
// draft node(s) inserted for this block, then insert the fully-specified
// final content. Executes exactly once per block, never with a non-empty
// queue.
func (b *Buffer) finalizeLocked(spec core.BlockSpec, sideEffectID string) {
	spec.SideEffectID = sideEffectID
	if err := b.surface.UndoLastTransform(); err != nil {
		b.logger.Warn("drip: undo failed, abandoning block", "error", err)
		b.abandonLocked()
		return
	}
	if err := b.surface.InsertFinalNode(spec); err != nil {
		b.logger.Warn("drip: final insert failed, abandoning block", "error", err)
		b.abandonLocked()
		return
	}
	b.finalized++
	b.active = false
	b.cursor = 0
}

func (b *Buffer) abandonLocked() {
	if b.cancelFrame != nil {
		b.cancelFrame()
		b.cancelFrame = nil
	}
	b.queue = nil
	b.pending = nil
	b.active = false
	b.cursor = 0
}
