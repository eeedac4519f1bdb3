package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/internal/testutil"
	"github.com/dealdesk/docgen/producer"
)

// stubDocStore is an in-test DocumentStore with an injectable materialize
// failure.
type stubDocStore struct {
	materializeErr error
	created        []core.TableSpec
}

func (s *stubDocStore) ValidateOwnership(context.Context, string, string) (bool, error) {
	return true, nil
}

func (s *stubDocStore) MaterializeSecondaryResource(_ context.Context, spec core.TableSpec, _, _ string) (string, error) {
	if s.materializeErr != nil {
		return "", s.materializeErr
	}
	s.created = append(s.created, spec)
	return core.NewID(), nil
}

// chanProducer hands the test direct control over the unit stream.
type chanProducer struct {
	units chan producer.Unit
	errs  chan error
}

func (p *chanProducer) Produce(context.Context, producer.Request) (<-chan producer.Unit, <-chan error) {
	return p.units, p.errs
}

func runToCompletion(t *testing.T, units []producer.Unit, docs core.DocumentStore, req producer.Request) *core.GenerationJob {
	t.Helper()
	prod := producer.NewMockProducer()
	prod.AddScript(req.Prompt, units)
	job := core.NewGenerationJob(core.NewID())
	w := New(job, prod, docs, req, nil)
	w.Run(context.Background())
	return job
}

func eventTypes(events []core.GenerationEvent) []core.EventType {
	out := make([]core.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestWorker_TranslatesUnitsIntoEventLog(t *testing.T) {
	units := testutil.NewScriptBuilder().
		Heading(1, "Hi").
		Build()
	job := runToCompletion(t, units, nil, producer.Request{Prompt: "p"})

	if !job.IsComplete() {
		t.Fatal("job should complete after the stream drains")
	}
	got := eventTypes(job.Events())
	// "Hi" splits per rune into two deltas.
	want := []core.EventType{
		core.EventBlockStart,
		core.EventContentDelta, core.EventContentDelta,
		core.EventBlockEnd,
		core.EventComplete,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	blocks := job.Blocks()
	if len(blocks) != 1 || blocks[0].Text != "Hi" || blocks[0].Type != "heading" {
		t.Errorf("unexpected block bookkeeping: %+v", blocks)
	}
}

func TestWorker_MaterializesTableBlocks(t *testing.T) {
	docs := &stubDocStore{}
	units := testutil.NewScriptBuilder().
		Table("pricing", []string{"Item", "Price"}, [][]string{{"Seat", "10"}}).
		Build()
	job := runToCompletion(t, units, docs, producer.Request{
		Prompt: "p", DocumentID: "doc-1", TenantID: "tenant-1",
	})

	if len(docs.created) != 1 || docs.created[0].Name != "pricing" {
		t.Fatalf("expected one materialized resource, got %+v", docs.created)
	}

	idx := job.SideEffectIndex()
	if len(idx) != 1 {
		t.Fatalf("expected one side-effect entry, got %v", idx)
	}
	resourceID, ok := job.SideEffect(0)
	if !ok || resourceID == "" {
		t.Fatal("expected side effect recorded for block 0")
	}

	var sideEvent *core.GenerationEvent
	for _, ev := range job.Events() {
		if ev.Type == core.EventSideEffectCreated {
			ev := ev
			sideEvent = &ev
		}
	}
	if sideEvent == nil {
		t.Fatal("expected a side_effect_created event")
	}
	if sideEvent.ResourceID != resourceID || sideEvent.BlockIndex != 0 || sideEvent.Label != "pricing" {
		t.Errorf("unexpected side effect event: %+v", sideEvent)
	}
}

func TestWorker_MaterializeFailureIsBlockScoped(t *testing.T) {
	docs := &stubDocStore{materializeErr: errors.New("storage down")}
	units := testutil.NewScriptBuilder().
		Table("pricing", []string{"Item"}, nil).
		Paragraph("still generated").
		Build()
	job := runToCompletion(t, units, docs, producer.Request{
		Prompt: "p", DocumentID: "doc-1", TenantID: "tenant-1",
	})

	events := job.Events()
	if last := events[len(events)-1]; last.Type != core.EventComplete {
		t.Fatalf("job must finish despite the side-effect failure, last=%s", last.Type)
	}

	var sawError, sawLaterBlock bool
	for _, ev := range events {
		if ev.Type == core.EventError && strings.Contains(ev.Message, "storage down") {
			sawError = true
		}
		if sawError && ev.Type == core.EventBlockStart {
			sawLaterBlock = true
		}
	}
	if !sawError {
		t.Error("expected a block-scoped error event")
	}
	if !sawLaterBlock {
		t.Error("generation should continue past the failed block")
	}
	if len(job.SideEffectIndex()) != 0 {
		t.Error("failed materialization must not record a side effect")
	}
}

func TestWorker_DuplicateBlockCompleteCreatesOneResource(t *testing.T) {
	docs := &stubDocStore{}
	table := &core.TableSpec{Name: "pricing", Columns: []string{"Item"}}
	units := []producer.Unit{
		{Kind: producer.UnitBlockBegin, BlockType: "table"},
		{Kind: producer.UnitBlockComplete, Table: table},
		// Upstream retry replays the completion signal for the same block.
		{Kind: producer.UnitBlockComplete, Table: table},
	}
	job := runToCompletion(t, units, docs, producer.Request{
		Prompt: "p", DocumentID: "doc-1", TenantID: "tenant-1",
	})

	if len(docs.created) != 1 {
		t.Fatalf("expected exactly one materialized resource, got %d", len(docs.created))
	}
	sideEvents := 0
	for _, ev := range job.Events() {
		if ev.Type == core.EventSideEffectCreated {
			sideEvents++
		}
	}
	if sideEvents != 1 {
		t.Errorf("expected exactly one side_effect_created event, got %d", sideEvents)
	}
}

func TestWorker_SkipsMaterializeWithoutDocumentTarget(t *testing.T) {
	docs := &stubDocStore{}
	units := testutil.NewScriptBuilder().
		Table("pricing", []string{"Item"}, nil).
		Build()
	runToCompletion(t, units, docs, producer.Request{Prompt: "p"})

	if len(docs.created) != 0 {
		t.Errorf("no document target, nothing should be materialized: %+v", docs.created)
	}
}

func TestWorker_ProducerErrorIsJobFatal(t *testing.T) {
	prod := producer.NewMockProducer()
	prod.AddScript("p", testutil.NewScriptBuilder().Paragraph("partial").Build())
	prod.Err = errors.New("provider unavailable")

	job := core.NewGenerationJob(core.NewID())
	New(job, prod, nil, producer.Request{Prompt: "p"}, nil).Run(context.Background())

	if !job.IsComplete() {
		t.Fatal("job should be complete")
	}
	events := job.Events()
	last := events[len(events)-1]
	if last.Type != core.EventError || last.Message != "provider unavailable" {
		t.Fatalf("expected terminal error event, got %+v", last)
	}
}

func TestWorker_PendingErrorWinsOverStreamClose(t *testing.T) {
	// A failing producer sends the error and then closes both channels, so
	// the worker's select sees the closed unit channel and the pending error
	// ready at the same time. The error must win every time, not just when
	// the scheduler happens to pick the error case first.
	for i := 0; i < 200; i++ {
		units := make(chan producer.Unit)
		close(units)
		errs := make(chan error, 1)
		errs <- errors.New("provider unavailable")
		close(errs)

		job := core.NewGenerationJob(core.NewID())
		New(job, &chanProducer{units: units, errs: errs}, nil, producer.Request{Prompt: "p"}, nil).
			Run(context.Background())

		events := job.Events()
		if len(events) != 1 {
			t.Fatalf("run %d: expected a single terminal event, got %v", i, eventTypes(events))
		}
		if events[0].Type != core.EventError || events[0].Message != "provider unavailable" {
			t.Fatalf("run %d: upstream failure reported as %+v", i, events[0])
		}
	}
}

func TestWorker_DiscardsUnitsAfterCancellation(t *testing.T) {
	prod := &chanProducer{units: make(chan producer.Unit), errs: make(chan error)}
	job := core.NewGenerationJob(core.NewID())
	w := New(job, prod, nil, producer.Request{Prompt: "p"}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(context.Background())
	}()

	prod.units <- producer.Unit{Kind: producer.UnitBlockBegin, BlockType: "paragraph"}
	waitFor(t, func() bool { return len(job.Events()) == 1 })

	// The cancel path force-completes the job while one unit is in flight.
	job.CompleteWith(core.NewErrorEvent(job.ID, "cancelled by user"))
	prod.units <- producer.Unit{Kind: producer.UnitContentFragment, Text: "late"}
	close(prod.units)
	close(prod.errs)
	<-done

	events := job.Events()
	last := events[len(events)-1]
	if last.Type != core.EventError || last.Message != "cancelled by user" {
		t.Fatalf("terminal event must stay last, got %+v", last)
	}
	for _, ev := range events {
		if ev.Type == core.EventContentDelta && ev.Text == "late" {
			t.Fatal("unit received after cancellation must be discarded")
		}
	}
	terminals := 0
	for _, ev := range events {
		if ev.IsTerminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("expected exactly one terminal event, got %d", terminals)
	}
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	prod := &chanProducer{units: make(chan producer.Unit), errs: make(chan error)}
	job := core.NewGenerationJob(core.NewID())
	w := New(job, prod, nil, producer.Request{Prompt: "p"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not observe cancellation")
	}
	// The terminal event belongs to the cancel path, not the worker.
	if job.IsComplete() {
		t.Error("worker must not complete the job on context cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
