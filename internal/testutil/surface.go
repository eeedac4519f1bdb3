package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dealdesk/docgen/core"
)

// Node is one entry on the RecordingSurface: either a streaming draft or a
// finalized block.
type Node struct {
	Type  string
	Attrs map[string]any
	Text  string
	Final bool
	Spec  core.BlockSpec
}

// RecordingSurface implements core.Surface, recording every transform so
// tests can assert on the resulting document and on call ordering. Failures
// can be injected per method.
type RecordingSurface struct {
	mu    sync.Mutex
	nodes []Node
	calls []string

	FailInsertEmpty bool
	FailInsertText  bool
	FailUndo        bool
	FailInsertFinal bool
}

// NewRecordingSurface returns an empty surface.
func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{}
}

// InsertEmptyNode implements core.Surface.
func (s *RecordingSurface) InsertEmptyNode(nodeType string, attrs map[string]any) (core.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "insertEmpty")
	if s.FailInsertEmpty {
		return 0, fmt.Errorf("insert empty node rejected")
	}
	s.nodes = append(s.nodes, Node{Type: nodeType, Attrs: attrs})
	return core.Cursor(len(s.nodes)), nil
}

// InsertTextAtCursor implements core.Surface.
func (s *RecordingSurface) InsertTextAtCursor(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "insertText:"+text)
	if s.FailInsertText {
		return fmt.Errorf("insert text rejected")
	}
	if len(s.nodes) == 0 {
		return fmt.Errorf("no node to insert into")
	}
	s.nodes[len(s.nodes)-1].Text += text
	return nil
}

// UndoLastTransform implements core.Surface. It removes the draft node for
// the current block.
func (s *RecordingSurface) UndoLastTransform() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "undo")
	if s.FailUndo {
		return fmt.Errorf("undo rejected")
	}
	if len(s.nodes) == 0 {
		return fmt.Errorf("nothing to undo")
	}
	s.nodes = s.nodes[:len(s.nodes)-1]
	return nil
}

// InsertFinalNode implements core.Surface.
func (s *RecordingSurface) InsertFinalNode(spec core.BlockSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "insertFinal")
	if s.FailInsertFinal {
		return fmt.Errorf("final insert rejected")
	}
	s.nodes = append(s.nodes, Node{Type: spec.Type, Attrs: spec.Attrs, Text: spec.Text, Final: true, Spec: spec})
	return nil
}

// Nodes returns a snapshot of the document.
func (s *RecordingSurface) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := make([]Node, len(s.nodes))
	copy(nodes, s.nodes)
	return nodes
}

// Calls returns the ordered transform log.
func (s *RecordingSurface) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]string, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// StreamedText concatenates the text of every insertText call in order,
// regardless of later undos. Useful for no-drop/no-reorder assertions.
func (s *RecordingSurface) StreamedText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, c := range s.calls {
		if t, ok := strings.CutPrefix(c, "insertText:"); ok {
			b.WriteString(t)
		}
	}
	return b.String()
}

// CountCalls returns how many recorded calls have the given prefix.
func (s *RecordingSurface) CountCalls(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
