package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LogLevelDebug || ParseLevel("error") != LogLevelError {
		t.Error("known names should map to their levels")
	}
	if ParseLevel("nonsense") != LogLevelInfo {
		t.Error("unknown names should default to info")
	}
}

func TestDocgenLogger_WithJobAttachesIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf}).
		WithComponent("orchestrator").
		WithJob("job-1", "doc-1")

	logger.Info("job started")

	entry := decodeEntry(t, &buf)
	if entry["component"] != "orchestrator" || entry["job_id"] != "job-1" || entry["document_id"] != "doc-1" {
		t.Errorf("missing identifiers: %v", entry)
	}
}

func TestDocgenLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should pass at warn level")
	}
}

func TestDocgenLogger_WithContextDoesNotMutateParent(t *testing.T) {
	var parentBuf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &parentBuf})
	_ = parent.WithContext("tenant", "tenant-1")

	parent.Info("plain")
	entry := decodeEntry(t, &parentBuf)
	if _, ok := entry["tenant"]; ok {
		t.Errorf("parent logger must not see the child's context: %v", entry)
	}
}

func TestDocgenLogger_LogProducerCall(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.LogProducerCall("openai", 42, 150*time.Millisecond, nil)
	entry := decodeEntry(t, &buf)
	if entry["provider"] != "openai" || entry["unit_count"] != float64(42) {
		t.Errorf("unexpected entry: %v", entry)
	}

	buf.Reset()
	logger.LogProducerCall("openai", 0, time.Millisecond, errors.New("provider unavailable"))
	entry = decodeEntry(t, &buf)
	if entry["error"] != "provider unavailable" {
		t.Errorf("expected error field: %v", entry)
	}
}

func TestNoOpLoggerImplementsLogger(t *testing.T) {
	var _ Logger = NoOpLogger{}
	var _ Logger = (*DocgenLogger)(nil)
	var _ Logger = (*SlogAdapter)(nil)
}
