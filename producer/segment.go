package producer

import (
	"strings"

	"github.com/dealdesk/docgen/core"
)

// Segmenter turns streamed markdown-ish completion text into structural
// production units. Provider adapters feed it raw text deltas; it buffers the
// current line, classifies each completed line, and emits block boundaries:
//
//   - "# ..." lines become standalone heading blocks (level from the prefix)
//   - "| ... |" runs become one table block carrying an embedded TableSpec
//   - anything else accumulates into paragraph blocks, closed on blank lines
//
// Fragments are emitted per completed line; the consumer's drip buffer is the
// smoothing layer, so intra-line granularity is not required here.
type Segmenter struct {
	line      strings.Builder
	open      bool
	inTable   bool
	firstLine bool
	columns   []string
	rows      [][]string
}

// NewSegmenter returns an empty segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{firstLine: true}
}

// Feed consumes a raw text delta and returns the units it completes.
func (s *Segmenter) Feed(text string) []Unit {
	var units []Unit
	for _, r := range text {
		if r == '\n' {
			units = append(units, s.endLine()...)
			continue
		}
		s.line.WriteRune(r)
	}
	return units
}

// Flush terminates the stream, closing the trailing line and any open block.
func (s *Segmenter) Flush() []Unit {
	units := s.endLine()
	units = append(units, s.closeBlock()...)
	return units
}

func (s *Segmenter) endLine() []Unit {
	line := s.line.String()
	s.line.Reset()
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return s.closeBlock()

	case strings.HasPrefix(trimmed, "#"):
		units := s.closeBlock()
		level := 0
		for level < len(trimmed) && trimmed[level] == '#' {
			level++
		}
		text := strings.TrimSpace(trimmed[level:])
		units = append(units,
			Unit{Kind: UnitBlockBegin, BlockType: "heading", Attrs: map[string]any{"level": level}},
			Unit{Kind: UnitContentFragment, Text: text},
		)
		s.open = true
		return append(units, s.closeBlock()...)

	case strings.HasPrefix(trimmed, "|"):
		var units []Unit
		if !s.inTable {
			units = s.closeBlock()
			units = append(units, Unit{Kind: UnitBlockBegin, BlockType: "table"})
			s.open = true
			s.inTable = true
			s.firstLine = true
		}
		cells := splitRow(trimmed)
		switch {
		case isSeparatorRow(cells):
			// alignment row, structural only
		case s.columns == nil:
			s.columns = cells
		default:
			s.rows = append(s.rows, cells)
		}
		units = append(units, s.fragment(trimmed)...)
		return units

	default:
		var units []Unit
		if s.inTable {
			units = s.closeBlock()
		}
		if !s.open {
			units = append(units, Unit{Kind: UnitBlockBegin, BlockType: "paragraph"})
			s.open = true
			s.firstLine = true
		}
		return append(units, s.fragment(trimmed)...)
	}
}

// fragment emits line text, joining continuation lines of the same block with
// a newline.
func (s *Segmenter) fragment(text string) []Unit {
	if !s.firstLine {
		text = "\n" + text
	}
	s.firstLine = false
	return []Unit{{Kind: UnitContentFragment, Text: text}}
}

func (s *Segmenter) closeBlock() []Unit {
	if !s.open {
		return nil
	}
	unit := Unit{Kind: UnitBlockComplete}
	if s.inTable && len(s.columns) > 0 {
		unit.Table = &core.TableSpec{
			Name:    "table",
			Columns: s.columns,
			Rows:    s.rows,
		}
	}
	s.open = false
	s.inTable = false
	s.firstLine = true
	s.columns = nil
	s.rows = nil
	return []Unit{unit}
}

func splitRow(line string) []string {
	parts := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if strings.Trim(c, ":-") != "" {
			return false
		}
	}
	return true
}
