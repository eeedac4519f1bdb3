// Package insert implements the progressive insertion engine: it replays
// polled generation events in order into one drip buffer at a time, turning
// the event stream into live editing-surface mutations.
package insert

import (
	"strings"

	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/drip"
	"github.com/dealdesk/docgen/logging"
)

// Options holds overrides passed to New().
type Options struct {
	Logger logging.Logger
}

// Engine drives one drip buffer by replaying poll batches. Blocks are
// processed strictly sequentially. The engine is single-owner, like the poll
// cursor feeding it: one goroutine polls and applies.
type Engine struct {
	buf    *drip.Buffer
	logger logging.Logger

	blockIndex  int
	blockType   string
	blockAttrs  map[string]any
	text        strings.Builder
	sideEffects map[int]string

	done   bool
	errMsg string
}

// New constructs an Engine draining into buf.
func New(buf *drip.Buffer, optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		buf:         buf,
		logger:      opts.Logger,
		blockIndex:  -1,
		sideEffects: map[int]string{},
	}
}

// Apply replays one poll batch: block_start starts a block, content_delta
// appends text, block_end finalizes with the accumulated specification and
// any side-effect resource known for that index. A terminal error or
// complete event ends the replay; the caller surfaces the error text and
// stops polling.
//
// Error events are terminal only when the batch's completion snapshot says
// so: the job appends the terminal event last and never after, so a terminal
// error is always the final event of a batch with IsComplete set. Any other
// error event is block-scoped (a failed secondary resource) and must not
// strand the blocks still streaming behind it.
func (e *Engine) Apply(res core.PollResult) {
	if e.done {
		return
	}
	for i, ev := range res.Events {
		switch ev.Type {
		case core.EventBlockStart:
			e.blockIndex++
			e.blockType = ev.BlockType
			e.blockAttrs = ev.Attrs
			e.text.Reset()
			e.buf.StartBlock(ev.BlockType, ev.Attrs)

		case core.EventContentDelta:
			e.text.WriteString(ev.Text)
			e.buf.AppendText(ev.Text)

		case core.EventBlockEnd:
			spec := core.BlockSpec{
				Type:  e.blockType,
				Attrs: e.blockAttrs,
				Text:  e.text.String(),
			}
			e.buf.FinalizeBlock(spec, e.sideEffectFor(res, e.blockIndex))

		case core.EventSideEffectCreated:
			// Usually consumed at block_end via the cumulative index; an
			// event landing after its block finalized is bookkeeping only.
			e.sideEffects[ev.BlockIndex] = ev.ResourceID

		case core.EventComplete:
			e.done = true
			return

		case core.EventError:
			if res.IsComplete && i == len(res.Events)-1 {
				e.errMsg = ev.Message
				e.done = true
				e.logger.Warn("insertion stopped on error event", "message", ev.Message)
				return
			}
			e.logger.Warn("skipping block-scoped error event", "message", ev.Message)
		}
	}
	if res.IsComplete {
		e.done = true
	}
}

func (e *Engine) sideEffectFor(res core.PollResult, idx int) string {
	if id, ok := res.SideEffectIndex[idx]; ok {
		return id
	}
	return e.sideEffects[idx]
}

// Done reports whether a terminal event ended the replay.
func (e *Engine) Done() bool { return e.done }

// Err returns the message of the error event that ended the replay, if any.
func (e *Engine) Err() string { return e.errMsg }

// Reset discards in-flight animation state and returns the insertion count
// from the underlying buffer. Used on discard/cancel.
func (e *Engine) Reset() int {
	e.blockIndex = -1
	e.blockType = ""
	e.blockAttrs = nil
	e.text.Reset()
	e.sideEffects = map[int]string{}
	e.done = false
	e.errMsg = ""
	return e.buf.Reset()
}
