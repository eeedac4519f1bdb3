// Package worker implements the background generation task: it consumes the
// producer's unit stream and translates it into the job's event log, creating
// at most one secondary resource per structural block along the way.
package worker

import (
	"context"
	"fmt"

	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/logging"
	"github.com/dealdesk/docgen/producer"
)

// Worker drives one job to completion. It is the sole writer of the job's
// event log while running; the orchestrator's cancel path competes only on
// the completion transition, which the job type serializes.
type Worker struct {
	job    *core.GenerationJob
	prod   producer.Producer
	docs   core.DocumentStore
	req    producer.Request
	logger logging.Logger
}

// New constructs a Worker for the given job.
func New(job *core.GenerationJob, prod producer.Producer, docs core.DocumentStore, req producer.Request, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Worker{job: job, prod: prod, docs: docs, req: req, logger: logger}
}

// Run consumes the producer stream until natural exhaustion, upstream
// failure or cancellation.
//
// Cancellation is cooperative and checked before receiving the next unit, so
// one already-in-flight unit may still be produced after cancel; its events
// are discarded rather than appended behind the terminal event. This is a
// best-effort bound, not a hard guarantee.
func (w *Worker) Run(ctx context.Context) {
	unitCh, errCh := w.prod.Produce(ctx, w.req)
	blockIndex := -1

	for {
		select {
		case <-ctx.Done():
			// The cancel path already appended its terminal event.
			w.logger.Debug("worker stopped on cancellation", "job_id", w.job.ID)
			return

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			w.job.CompleteWith(core.NewErrorEvent(w.job.ID, err.Error()))
			w.logger.Warn("worker stopped on producer failure", "job_id", w.job.ID, "error", err)
			return

		case u, ok := <-unitCh:
			if !ok {
				w.finish(errCh)
				return
			}
			blockIndex = w.handle(ctx, u, blockIndex)
		}
	}
}

// finish resolves the terminal event once the unit stream has closed. A
// producer that fails sends on the error channel and then closes both
// channels, so both select cases can be ready at once; the pending error must
// win over the closed unit channel or an upstream failure would be reported
// as natural completion.
func (w *Worker) finish(errCh <-chan error) {
	if errCh != nil {
		if err, ok := <-errCh; ok && err != nil {
			w.job.CompleteWith(core.NewErrorEvent(w.job.ID, err.Error()))
			w.logger.Warn("worker stopped on producer failure", "job_id", w.job.ID, "error", err)
			return
		}
	}
	w.job.CompleteWith(core.NewCompleteEvent(w.job.ID))
	w.logger.Debug("worker completed", "job_id", w.job.ID, "blocks", len(w.job.Blocks()))
}

func (w *Worker) handle(ctx context.Context, u producer.Unit, blockIndex int) int {
	switch u.Kind {
	case producer.UnitBlockBegin:
		idx := w.job.RecordBlock(u.BlockType, u.Attrs)
		w.job.AppendIfActive(core.NewBlockStartEvent(w.job.ID, u.BlockType, u.Attrs))
		return idx

	case producer.UnitContentFragment:
		if w.job.AppendIfActive(core.NewContentDeltaEvent(w.job.ID, u.Text)) {
			w.job.AppendBlockText(blockIndex, u.Text)
		}
		return blockIndex

	case producer.UnitBlockComplete:
		if !w.job.AppendIfActive(core.NewBlockEndEvent(w.job.ID)) {
			return blockIndex
		}
		if u.Table != nil {
			w.job.SetBlockTable(blockIndex, u.Table)
			w.materialize(ctx, blockIndex, u.Table)
		}
		return blockIndex
	}
	return blockIndex
}

// materialize creates the secondary resource declared by a completed block.
// A failure here is block-scoped: it is surfaced as an error event and the
// job keeps running. Duplicate block-complete signals for the same index are
// ignored via the side-effect index.
func (w *Worker) materialize(ctx context.Context, idx int, spec *core.TableSpec) {
	if w.docs == nil || w.req.DocumentID == "" {
		return
	}
	if _, exists := w.job.SideEffect(idx); exists {
		return
	}
	id, err := w.docs.MaterializeSecondaryResource(ctx, *spec, w.req.DocumentID, w.req.TenantID)
	if err != nil {
		w.job.AppendIfActive(core.NewErrorEvent(w.job.ID, fmt.Sprintf("secondary resource for block %d: %v", idx, err)))
		w.logger.Warn("secondary resource creation failed", "job_id", w.job.ID, "block_index", idx, "error", err)
		return
	}
	if w.job.SetSideEffect(idx, id) {
		w.job.AppendIfActive(core.NewSideEffectCreatedEvent(w.job.ID, id, idx, spec.Name))
		w.logger.Debug("secondary resource created", "job_id", w.job.ID, "block_index", idx, "resource_id", id)
	}
}
