// Package orchestrator owns generation job lifecycle: it validates tenancy,
// spawns the background worker, answers poll and cancel requests against the
// append-only event log, and reclaims completed jobs after a retention
// window. Progress is observable through polling only; there is no push
// interface.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/jobstore"
	"github.com/dealdesk/docgen/logging"
	"github.com/dealdesk/docgen/producer"
	"github.com/dealdesk/docgen/storage"
	"github.com/dealdesk/docgen/worker"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Retention is how long completed jobs stay pollable before a sweep
	// reclaims them.
	Retention time.Duration
	// SweepInterval is the cadence of the background sweep that bounds
	// memory even when no further Start calls arrive.
	SweepInterval time.Duration
	// JobStore is the arena holding live jobs.
	JobStore core.JobStore
	// DocumentStore answers tenancy checks and materializes secondary
	// resources. The in-memory default requires documents to be registered
	// before Start will accept them.
	DocumentStore core.DocumentStore
	// Logger receives structured progress logs.
	Logger logging.Logger
	// Now supplies the sweep clock; overridable for tests.
	Now func() time.Time
}

// Orchestrator coordinates generation jobs: Start validates and spawns,
// Poll drains new events, Cancel signals the worker cooperatively. Public
// methods are safe for concurrent use across jobs; polls for one job must be
// serialized by a single caller because the poll cursor is single-owner.
type Orchestrator struct {
	prod producer.Producer

	retention     time.Duration
	sweepInterval time.Duration
	store         core.JobStore
	docs          core.DocumentStore
	logger        logging.Logger
	now           func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	stopSweep chan struct{}
	stopOnce  sync.Once
}

// New constructs an Orchestrator with optional overrides and starts the
// background sweep ticker. Call Close to stop it.
func New(prod producer.Producer, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Retention:     10 * time.Minute,
		SweepInterval: 5 * time.Minute,
		JobStore:      jobstore.NewInMemoryStore(),
		DocumentStore: storage.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
		Now:           time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	o := &Orchestrator{
		prod:          prod,
		retention:     opts.Retention,
		sweepInterval: opts.SweepInterval,
		store:         opts.JobStore,
		docs:          opts.DocumentStore,
		logger:        opts.Logger,
		now:           opts.Now,
		cancels:       make(map[string]context.CancelFunc),
		stopSweep:     make(chan struct{}),
	}

	go o.sweepLoop()

	return o
}

// Start validates that the target document and any related entities belong
// to the caller's tenant, creates a job with an empty log and spawns the
// worker as a detached background task. It returns the job id immediately
// and never blocks on generation progress. An opportunistic sweep runs as a
// side effect before the job is created.
func (o *Orchestrator) Start(ctx context.Context, req producer.Request) (string, error) {
	targets := append([]string{req.DocumentID}, req.RelatedIDs...)
	for _, target := range targets {
		ok, err := o.docs.ValidateOwnership(ctx, target, req.TenantID)
		if err != nil {
			return "", fmt.Errorf("validate ownership of %s: %w", target, err)
		}
		if !ok {
			return "", fmt.Errorf("document %s: %w", target, storage.ErrNotFound)
		}
	}

	o.sweep()

	job := core.NewGenerationJob(core.NewID())
	o.store.Put(job)

	// The worker outlives the Start call; only Cancel ends it early.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	w := worker.New(job, o.prod, o.docs, req, o.logger)
	go func() {
		defer func() {
			o.mu.Lock()
			delete(o.cancels, job.ID)
			o.mu.Unlock()
			cancel()
		}()
		w.Run(runCtx)
	}()

	o.logger.Debug("job started", "job_id", job.ID, "document_id", req.DocumentID)

	return job.ID, nil
}

// Poll returns the events appended since the previous poll and advances the
// cursor past them. Polling an unknown id (never existed, or already swept)
// is a normal race, not an exceptional condition: the result carries a single
// synthetic error event with IsComplete=true. Repeated polls with no new
// events return an empty slice each time.
//
// Polls for one job must be serialized by the same caller; concurrent
// pollers would race on the cursor and are unsupported.
func (o *Orchestrator) Poll(jobID string) core.PollResult {
	job, ok := o.store.Get(jobID)
	if !ok {
		return core.PollResult{
			Events:     []core.GenerationEvent{core.NewErrorEvent(jobID, "job not found")},
			IsComplete: true,
		}
	}
	events, complete := job.TakeNewEvents()
	return core.PollResult{
		Events:          events,
		IsComplete:      complete,
		SideEffectIndex: job.SideEffectIndex(),
	}
}

// Cancel signals the job's worker cooperatively, force-completes the job and
// appends the terminal error event. It returns false with no side effect if
// the job is unknown. The worker is not preempted mid-step: it observes the
// signal before receiving its next upstream unit, so one in-flight unit may
// still be produced and discarded.
func (o *Orchestrator) Cancel(jobID string) bool {
	job, ok := o.store.Get(jobID)
	if !ok {
		return false
	}

	o.mu.Lock()
	cancel := o.cancels[jobID]
	delete(o.cancels, jobID)
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	job.CompleteWith(core.NewErrorEvent(jobID, "cancelled by user"))
	o.logger.Debug("job cancelled", "job_id", jobID)

	return true
}

// Snapshot returns a read-only copy of a job's full log and bookkeeping for
// host diagnostics. It does not advance the poll cursor.
func (o *Orchestrator) Snapshot(jobID string) (*Snapshot, bool) {
	job, ok := o.store.Get(jobID)
	if !ok {
		return nil, false
	}
	return &Snapshot{
		JobID:           job.ID,
		CreatedAt:       job.CreatedAt,
		Events:          job.Events(),
		Blocks:          job.Blocks(),
		SideEffectIndex: job.SideEffectIndex(),
		IsComplete:      job.IsComplete(),
	}, true
}

// Snapshot is a point-in-time copy of one job's observable state.
type Snapshot struct {
	JobID           string                 `json:"job_id"`
	CreatedAt       time.Time              `json:"created_at"`
	Events          []core.GenerationEvent `json:"events"`
	Blocks          []core.Block           `json:"blocks"`
	SideEffectIndex map[int]string         `json:"side_effect_index,omitempty"`
	IsComplete      bool                   `json:"is_complete"`
}

// Close stops the background sweep ticker. Running workers are unaffected;
// cancel them individually if needed.
func (o *Orchestrator) Close() {
	o.stopOnce.Do(func() { close(o.stopSweep) })
}

func (o *Orchestrator) sweepLoop() {
	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopSweep:
			return
		case <-ticker.C:
			o.sweep()
		}
	}
}

func (o *Orchestrator) sweep() {
	removed := o.store.Sweep(o.now(), o.retention)
	if removed > 0 {
		o.logger.Debug("sweep reclaimed jobs", "removed", removed, "retention", o.retention)
	}
}
