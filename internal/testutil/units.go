package testutil

import (
	"github.com/dealdesk/docgen/core"
	"github.com/dealdesk/docgen/producer"
)

// ScriptBuilder assembles producer unit scripts for tests. Example:
//
//	units := NewScriptBuilder().
//		Heading(1, "Summary").
//		Paragraph("Hello World").
//		Table("pricing", []string{"Item", "Price"}, [][]string{{"Seat", "10"}}).
//		Build()
type ScriptBuilder struct {
	units []producer.Unit
}

// NewScriptBuilder creates an empty builder.
func NewScriptBuilder() *ScriptBuilder { return &ScriptBuilder{} }

// Heading appends a complete heading block (chainable).
func (b *ScriptBuilder) Heading(level int, text string) *ScriptBuilder {
	b.units = append(b.units,
		producer.Unit{Kind: producer.UnitBlockBegin, BlockType: "heading", Attrs: map[string]any{"level": level}},
		producer.Unit{Kind: producer.UnitContentFragment, Text: text},
		producer.Unit{Kind: producer.UnitBlockComplete},
	)
	return b
}

// Paragraph appends a complete paragraph block with one fragment per given
// piece of text (chainable).
func (b *ScriptBuilder) Paragraph(fragments ...string) *ScriptBuilder {
	b.units = append(b.units, producer.Unit{Kind: producer.UnitBlockBegin, BlockType: "paragraph"})
	for _, f := range fragments {
		b.units = append(b.units, producer.Unit{Kind: producer.UnitContentFragment, Text: f})
	}
	b.units = append(b.units, producer.Unit{Kind: producer.UnitBlockComplete})
	return b
}

// Table appends a complete table block declaring an embedded tabular
// resource (chainable).
func (b *ScriptBuilder) Table(name string, columns []string, rows [][]string) *ScriptBuilder {
	b.units = append(b.units,
		producer.Unit{Kind: producer.UnitBlockBegin, BlockType: "table"},
		producer.Unit{Kind: producer.UnitBlockComplete, Table: &core.TableSpec{Name: name, Columns: columns, Rows: rows}},
	)
	return b
}

// Raw appends an arbitrary unit (chainable).
func (b *ScriptBuilder) Raw(u producer.Unit) *ScriptBuilder {
	b.units = append(b.units, u)
	return b
}

// Build returns the assembled script.
func (b *ScriptBuilder) Build() []producer.Unit { return b.units }
