package core

// Block is the bookkeeping record for one structural block a job has emitted.
// The worker accumulates fragment text into it so the final specification can
// be rebuilt without replaying the log.
type Block struct {
	Index int            `json:"index"`
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
	Text  string         `json:"text,omitempty"`
	Table *TableSpec     `json:"table,omitempty"`
}

// BlockSpec is the fully-specified final content for one block, applied to the
// editing surface in a single transform when the block finalizes.
type BlockSpec struct {
	Type         string         `json:"type"`
	Attrs        map[string]any `json:"attrs,omitempty"`
	Text         string         `json:"text,omitempty"`
	Table        *TableSpec     `json:"table,omitempty"`
	SideEffectID string         `json:"side_effect_id,omitempty"`
}

// TableSpec describes an embedded tabular resource declared by a generated
// block. It is both the payload materialized through the DocumentStore and
// part of the final block specification.
type TableSpec struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (t *TableSpec) Clone() *TableSpec {
	if t == nil {
		return nil
	}
	cp := &TableSpec{Name: t.Name, Columns: append([]string{}, t.Columns...)}
	if len(t.Rows) > 0 {
		cp.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			cp.Rows[i] = append([]string{}, r...)
		}
	}
	return cp
}

// Template names a generation preset: the instructions handed to the producer
// plus optional section hints constraining document shape.
type Template struct {
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	Sections     []string `json:"sections,omitempty"`
}
