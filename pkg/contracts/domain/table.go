package domain

import "math"

// Column is one identifier and its ordered, non-missing values.
type Column[K ColumnKey] struct {
	Key    K
	Values []float64
}

// Len returns the number of non-missing values.
func (c Column[K]) Len() int { return len(c.Values) }

// WideTable maps identifiers to value sequences in a fixed column order.
// Columns are stored densely: a value past a column's length is missing,
// and NaN is never stored. A column with no data is present but empty.
// A WideTable is immutable once built.
type WideTable[K ColumnKey] struct {
	name    string
	columns []Column[K]
	index   map[K]int
}

// NewWideTable builds a table from columns in the given order. When a key
// repeats, the first occurrence wins. Values are copied and NaN entries
// dropped.
func NewWideTable[K ColumnKey](name string, columns []Column[K]) *WideTable[K] {
	t := &WideTable[K]{
		name:    name,
		columns: make([]Column[K], 0, len(columns)),
		index:   make(map[K]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.index[c.Key]; dup {
			continue
		}
		vals := make([]float64, 0, len(c.Values))
		for _, v := range c.Values {
			if math.IsNaN(v) {
				continue
			}
			vals = append(vals, v)
		}
		t.index[c.Key] = len(t.columns)
		t.columns = append(t.columns, Column[K]{Key: c.Key, Values: vals})
	}
	return t
}

// Name returns the metric family the table holds.
func (t *WideTable[K]) Name() string { return t.name }

// Keys returns the column identifiers in order.
func (t *WideTable[K]) Keys() []K {
	keys := make([]K, len(t.columns))
	for i, c := range t.columns {
		keys[i] = c.Key
	}
	return keys
}

// Columns returns a copy of every column in order.
func (t *WideTable[K]) Columns() []Column[K] {
	out := make([]Column[K], len(t.columns))
	for i, c := range t.columns {
		out[i] = Column[K]{Key: c.Key, Values: append([]float64(nil), c.Values...)}
	}
	return out
}

// Values returns a copy of one column's values.
func (t *WideTable[K]) Values(key K) ([]float64, bool) {
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), t.columns[i].Values...), true
}

// Has reports whether the column exists, even if empty.
func (t *WideTable[K]) Has(key K) bool {
	_, ok := t.index[key]
	return ok
}

// Width returns the number of columns.
func (t *WideTable[K]) Width() int { return len(t.columns) }

// Height returns the length of the longest column.
func (t *WideTable[K]) Height() int {
	h := 0
	for _, c := range t.columns {
		if len(c.Values) > h {
			h = len(c.Values)
		}
	}
	return h
}

// Count returns the number of non-missing entries across all columns.
func (t *WideTable[K]) Count() int {
	n := 0
	for _, c := range t.columns {
		n += len(c.Values)
	}
	return n
}

// Cell returns the value at row i of a column, or false if missing.
func (t *WideTable[K]) Cell(key K, i int) (float64, bool) {
	ci, ok := t.index[key]
	if !ok || i < 0 || i >= len(t.columns[ci].Values) {
		return 0, false
	}
	return t.columns[ci].Values[i], true
}

// Rename returns the same columns under a different family name.
func (t *WideTable[K]) Rename(name string) *WideTable[K] {
	return NewWideTable(name, t.columns)
}

// TidyRow is one observation with explicit identity columns.
type TidyRow struct {
	Label     string  `json:"label"`
	Batch     string  `json:"batch,omitempty"`
	Group     string  `json:"group"`
	Timepoint string  `json:"timepoint,omitempty"`
	Organoid  int     `json:"organoid,omitempty"`
	Value     float64 `json:"value"`
}

// Key returns the group key of the row.
func (r TidyRow) Key() GroupKey {
	return GroupKey{Batch: r.Batch, Group: r.Group, Timepoint: r.Timepoint}
}

// Identity returns the organoid identity of the row.
func (r TidyRow) Identity() Identity {
	return Identity{Batch: r.Batch, Group: r.Group, Timepoint: r.Timepoint, Organoid: r.Organoid}
}

// TidyTable is the un-pivoted form of a WideTable. It never holds
// missing entries.
type TidyTable struct {
	Name string
	Rows []TidyRow
}

// Len returns the number of rows.
func (t TidyTable) Len() int { return len(t.Rows) }

// ByLabel collects the values per label, preserving row order.
func (t TidyTable) ByLabel() map[string][]float64 {
	out := make(map[string][]float64)
	for _, r := range t.Rows {
		out[r.Label] = append(out[r.Label], r.Value)
	}
	return out
}
