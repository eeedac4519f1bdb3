package docgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/internal/testutil"
	"github.com/dealdesk/docgen/producer"
	"github.com/dealdesk/docgen/storage"
)

func newTestDocgen(t *testing.T, prod producer.Producer) *Docgen {
	t.Helper()
	docs := storage.NewInMemoryStore()
	docs.RegisterDocument("doc-1", "tenant-1")
	d := New(prod, func(o *Options) {
		o.DocumentStore = docs
		o.PollInterval = 5 * time.Millisecond
	})
	t.Cleanup(d.Close)
	return d
}

func TestGenerateSync_ReturnsFullEventLog(t *testing.T) {
	prod := producer.NewMockProducer()
	prod.AddScript("p", testutil.NewScriptBuilder().
		Heading(1, "Summary").
		Paragraph("All good.").
		Build())
	d := newTestDocgen(t, prod)

	jobID, events, err := d.GenerateSync(context.Background(), producer.Request{
		DocumentID: "doc-1", TenantID: "tenant-1", Prompt: "p",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a job id")
	}
	if events[len(events)-1].Type != core.EventComplete {
		t.Fatalf("expected a complete event last, got %+v", events[len(events)-1])
	}

	starts := 0
	for _, ev := range events {
		if ev.Type == core.EventBlockStart {
			starts++
		}
	}
	if starts != 2 {
		t.Errorf("expected 2 blocks, got %d", starts)
	}
}

func TestGenerateSync_SurfacesTerminalError(t *testing.T) {
	prod := producer.NewMockProducer()
	prod.AddScript("p", testutil.NewScriptBuilder().Paragraph("partial").Build())
	prod.Err = errors.New("provider unavailable")
	d := newTestDocgen(t, prod)

	_, events, err := d.GenerateSync(context.Background(), producer.Request{
		DocumentID: "doc-1", TenantID: "tenant-1", Prompt: "p",
	})
	if err == nil {
		t.Fatal("expected an error for a failed job")
	}
	if len(events) == 0 || events[len(events)-1].Type != core.EventError {
		t.Errorf("expected the partial log ending in the error event")
	}
}

func TestGenerateSync_ContextCancellation(t *testing.T) {
	prod := producer.NewMockProducer()
	prod.AddScript("p", testutil.NewScriptBuilder().Paragraph("slow").Build())
	prod.UnitDelay = time.Hour
	d := newTestDocgen(t, prod)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := d.GenerateSync(ctx, producer.Request{
		DocumentID: "doc-1", TenantID: "tenant-1", Prompt: "p",
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestCancelUnknownJob(t *testing.T) {
	d := newTestDocgen(t, producer.NewMockProducer())
	if d.Cancel("no-such-job") {
		t.Error("cancel of an unknown job should report false")
	}
}

func TestNewInserter_AnimatesPolledEvents(t *testing.T) {
	prod := producer.NewMockProducer()
	prod.AddScript("p", testutil.NewScriptBuilder().Heading(1, "Hello World").Build())
	d := New(prod, func(o *Options) {
		o.DocumentStore = func() core.DocumentStore {
			docs := storage.NewInMemoryStore()
			docs.RegisterDocument("doc-1", "tenant-1")
			return docs
		}()
		o.FrameInterval = time.Millisecond
	})
	t.Cleanup(d.Close)

	surface := testutil.NewRecordingSurface()
	inserter := d.NewInserter(surface)

	jobID, err := d.Start(context.Background(), producer.Request{
		DocumentID: "doc-1", TenantID: "tenant-1", Prompt: "p",
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !inserter.Done() && time.Now().Before(deadline) {
		inserter.Apply(d.Poll(jobID))
		time.Sleep(5 * time.Millisecond)
	}
	if !inserter.Done() {
		t.Fatal("insertion did not finish in time")
	}

	// The trailing animation drains shortly after the terminal event.
	for time.Now().Before(deadline) {
		nodes := surface.Nodes()
		if len(nodes) == 1 && nodes[0].Final {
			if nodes[0].Text != "Hello World" {
				t.Fatalf("unexpected final text %q", nodes[0].Text)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("final node never appeared, nodes=%+v", surface.Nodes())
}

func TestSnapshotAfterCompletion(t *testing.T) {
	prod := producer.NewMockProducer()
	prod.AddScript("p", testutil.NewScriptBuilder().Paragraph("done").Build())
	d := newTestDocgen(t, prod)

	jobID, _, err := d.GenerateSync(context.Background(), producer.Request{
		DocumentID: "doc-1", TenantID: "tenant-1", Prompt: "p",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	snap, ok := d.Snapshot(jobID)
	if !ok {
		t.Fatal("completed job should still be pollable within retention")
	}
	if !snap.IsComplete || len(snap.Events) == 0 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
