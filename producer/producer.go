// Package producer defines the opaque asynchronous generation engine consumed
// by the worker: a typed sequence of structural production units delivered
// over channels, terminating naturally or with an error. Provider adapters
// live in subpackages; MockProducer covers tests and examples.
package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/dealdesk/docgen/core"
)

// UnitKind discriminates the production units a producer emits.
type UnitKind string

const (
	// UnitBlockBegin signals that a new structural block begins.
	UnitBlockBegin UnitKind = "block_begin"
	// UnitContentFragment carries a verbatim text fragment for the open block.
	UnitContentFragment UnitKind = "content_fragment"
	// UnitBlockComplete closes the open block, optionally declaring an
	// embedded tabular resource.
	UnitBlockComplete UnitKind = "block_complete"
)

// Unit is one semantic production step. Only the fields relevant to Kind are
// populated.
type Unit struct {
	Kind      UnitKind
	BlockType string
	Attrs     map[string]any
	Text      string
	Table     *core.TableSpec
}

// Request captures the normalized generation input handed to a producer.
type Request struct {
	DocumentID string
	TenantID   string
	Prompt     string
	Template   *core.Template
	RelatedIDs []string
}

// Producer is the minimal interface required to drive generation. The unit
// channel is closed on natural exhaustion; a value on the error channel is
// job-fatal and must be sent before the channels close, so a consumer
// observing the closed unit channel can still collect a pending failure.
// Implementations close both channels when production ends and must respect
// ctx cancellation between units.
type Producer interface {
	Produce(ctx context.Context, req Request) (<-chan Unit, <-chan error)
}

// MockProducer is a lightweight in-memory Producer useful for tests and
// examples. Scripts registered per prompt are replayed unit by unit; content
// fragments are split per rune to exercise streaming consumers. Unscripted
// prompts fall back to a single paragraph echoing the prompt.
type MockProducer struct {
	scripts map[string][]Unit
	// Delay inserted between units, letting tests exercise cancellation
	// checkpoints mid-stream.
	UnitDelay time.Duration
	// Err, when set, is delivered after the scripted units instead of
	// closing the unit channel.
	Err error
}

// NewMockProducer constructs an empty MockProducer.
func NewMockProducer() *MockProducer {
	return &MockProducer{scripts: make(map[string][]Unit)}
}

// AddScript registers the units replayed for a prompt.
func (m *MockProducer) AddScript(prompt string, units []Unit) { m.scripts[prompt] = units }

// Produce implements Producer.
func (m *MockProducer) Produce(ctx context.Context, req Request) (<-chan Unit, <-chan error) {
	unitCh := make(chan Unit, 16)
	errCh := make(chan error, 1)

	units, ok := m.scripts[req.Prompt]
	if !ok {
		units = []Unit{
			{Kind: UnitBlockBegin, BlockType: "paragraph"},
			{Kind: UnitContentFragment, Text: fmt.Sprintf("Mock response to: %s", req.Prompt)},
			{Kind: UnitBlockComplete},
		}
	}

	go func() {
		defer close(unitCh)
		defer close(errCh)
		for _, u := range units {
			if m.UnitDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.UnitDelay):
				}
			}
			if u.Kind == UnitContentFragment {
				for _, r := range u.Text {
					select {
					case <-ctx.Done():
						return
					case unitCh <- Unit{Kind: UnitContentFragment, Text: string(r)}:
					}
				}
				continue
			}
			select {
			case <-ctx.Done():
				return
			case unitCh <- u:
			}
		}
		if m.Err != nil {
			errCh <- m.Err
		}
	}()

	return unitCh, errCh
}
