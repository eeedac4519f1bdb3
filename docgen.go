// Package docgen provides a high-level façade over the generation job
// orchestrator and the progressive insertion engine, enabling hosts to wire
// the asynchronous content-generation pipeline with in-memory defaults. Most
// applications interact with this package by:
//  1. Creating a Docgen via New() with a producer (optionally overriding the
//     default in-memory stores and tuning)
//  2. Starting jobs (Start) and polling them (Poll), or using GenerateSync
//  3. Feeding poll results into an insert.Engine to animate the document
//
// The façade delegates lifecycle to orchestrator.Orchestrator while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; production deployments supply the host's DocumentStore and a
// structured logger.
package docgen

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dealdesk/docgen/config"
	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/drip"
	"github.com/dealdesk/docgen/insert"
	"github.com/dealdesk/docgen/logging"
	"github.com/dealdesk/docgen/orchestrator"
	"github.com/dealdesk/docgen/producer"
)

// Options configures the Docgen instance.
type Options struct {
	// Retention is how long completed jobs stay pollable.
	Retention time.Duration
	// SweepInterval is the background reclamation cadence.
	SweepInterval time.Duration
	// PollInterval is the cadence GenerateSync polls on.
	PollInterval time.Duration
	// Stores (default to in-memory implementations if not provided).
	JobStore      core.JobStore
	DocumentStore core.DocumentStore
	// Drip tunes the insertion engines created by NewInserter.
	Drip drip.Config
	// FrameInterval paces the drip drain loop.
	FrameInterval time.Duration
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Docgen is the high-level façade aggregating the orchestrator and the
// insertion-engine factory.
type Docgen struct {
	opts Options
	orch *orchestrator.Orchestrator
}

// New creates a new Docgen instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(prod producer.Producer, optFns ...func(o *Options)) *Docgen {
	opts := Options{
		Retention:     10 * time.Minute,
		SweepInterval: 5 * time.Minute,
		PollInterval:  100 * time.Millisecond,
		Drip:          drip.DefaultConfig(),
		FrameInterval: drip.DefaultFrameInterval,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	orch := orchestrator.New(prod, func(o *orchestrator.Options) {
		o.Retention = opts.Retention
		o.SweepInterval = opts.SweepInterval
		if opts.JobStore != nil {
			o.JobStore = opts.JobStore
		}
		if opts.DocumentStore != nil {
			o.DocumentStore = opts.DocumentStore
		}
		o.Logger = opts.Logger
	})

	return &Docgen{opts: opts, orch: orch}
}

// FromConfig translates a loaded config file into façade options. Apply it
// before any code-level overrides:
//
//	d := docgen.New(prod, docgen.FromConfig(cfg), func(o *docgen.Options) { ... })
func FromConfig(cfg *config.Config) func(o *Options) {
	return func(o *Options) {
		if cfg == nil {
			return
		}
		o.Retention = cfg.Orchestrator.Retention.AsDuration()
		o.SweepInterval = cfg.Orchestrator.SweepInterval.AsDuration()
		o.Drip = drip.Config{
			NormalChunk:           cfg.Drip.NormalChunk,
			BackpressureChunk:     cfg.Drip.BackpressureChunk,
			FinalizeChunk:         cfg.Drip.FinalizeChunk,
			BackpressureThreshold: cfg.Drip.BackpressureThreshold,
		}
		o.FrameInterval = cfg.Drip.FrameInterval.AsDuration()
		o.Logger = logging.NewLogger(&logging.LoggerConfig{
			Level:  logging.ParseLevel(cfg.Logging.Level),
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})
	}
}

// Start begins a generation job and returns its id immediately.
func (d *Docgen) Start(ctx context.Context, req producer.Request) (string, error) {
	return d.orch.Start(ctx, req)
}

// Poll returns the events appended since the previous poll for the job.
func (d *Docgen) Poll(jobID string) core.PollResult {
	return d.orch.Poll(jobID)
}

// Cancel signals the job's worker cooperatively. Returns false if unknown.
func (d *Docgen) Cancel(jobID string) bool {
	return d.orch.Cancel(jobID)
}

// Snapshot returns a read-only copy of a job's state for diagnostics.
func (d *Docgen) Snapshot(jobID string) (*orchestrator.Snapshot, bool) {
	return d.orch.Snapshot(jobID)
}

// NewInserter builds a progressive insertion engine draining into surface,
// using the façade's drip tuning.
func (d *Docgen) NewInserter(surface core.Surface) *insert.Engine {
	buf := drip.NewBuffer(surface, func(o *drip.Options) {
		o.Config = d.opts.Drip
		o.Scheduler = drip.TimerScheduler{Interval: d.opts.FrameInterval}
		o.Logger = d.opts.Logger
	})
	return insert.New(buf, func(o *insert.Options) { o.Logger = d.opts.Logger })
}

// GenerateSync is a synchronous helper that starts a job and polls until a
// terminal event, accumulating all events. It returns the job id, the full
// event slice and an error if the job ended with a terminal error event.
func (d *Docgen) GenerateSync(ctx context.Context, req producer.Request) (string, []core.GenerationEvent, error) {
	jobID, err := d.orch.Start(ctx, req)
	if err != nil {
		return "", nil, err
	}

	var events []core.GenerationEvent
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.orch.Cancel(jobID)
			return jobID, events, ctx.Err()
		case <-ticker.C:
			res := d.orch.Poll(jobID)
			events = append(events, res.Events...)
			if !res.IsComplete {
				continue
			}
			if len(events) > 0 {
				if last := events[len(events)-1]; last.Type == core.EventError {
					return jobID, events, fmt.Errorf("generation failed: %s", last.Message)
				}
			}
			return jobID, events, nil
		}
	}
}

// Close stops the orchestrator's background sweep.
func (d *Docgen) Close() { d.orch.Close() }
