// Package tables assembles wide and tidy tables from per-organoid data
// and rolls organoid columns up into per-group columns.
package tables

import (
	"organoidcli/internal/dataprocessing"
	"organoidcli/pkg/contracts/domain"
)

// BuildWide creates one column per key in order. A key with no entry in
// values still gets a column, left empty. Repeated keys keep their first
// position.
func BuildWide[K domain.ColumnKey](name string, values map[K][]float64, order []K) *domain.WideTable[K] {
	cols := make([]domain.Column[K], 0, len(order))
	for _, k := range order {
		cols = append(cols, domain.Column[K]{Key: k, Values: values[k]})
	}
	return domain.NewWideTable(name, cols)
}

// BuildScalar creates a wide table holding a single value per organoid.
// Organoids without a value get an empty column.
func BuildScalar(name string, values map[domain.Identity]float64, order []domain.Identity) *domain.WideTable[domain.Identity] {
	cols := make([]domain.Column[domain.Identity], 0, len(order))
	for _, id := range order {
		col := domain.Column[domain.Identity]{Key: id}
		if v, ok := values[id]; ok {
			col.Values = []float64{v}
		}
		cols = append(cols, col)
	}
	return domain.NewWideTable(name, cols)
}

// BuildPositions lays out X, Y and Z columns per organoid, namespaced by
// identity so tables from different organoids concatenate cleanly.
func BuildPositions(name string, positions map[domain.Identity]dataprocessing.Positions, order []domain.Identity) *domain.WideTable[domain.PositionKey] {
	cols := make([]domain.Column[domain.PositionKey], 0, len(order)*len(domain.Axes))
	for _, id := range order {
		p, ok := positions[id]
		for _, axis := range domain.Axes {
			col := domain.Column[domain.PositionKey]{Key: domain.PositionKey{Axis: axis, ID: id}}
			if ok {
				col.Values = p.Axis(axis)
			}
			cols = append(cols, col)
		}
	}
	return domain.NewWideTable(name, cols)
}

// BuildTidy un-pivots a wide table into one row per value, column by
// column. Empty columns contribute no rows.
func BuildTidy[K domain.ColumnKey](wide *domain.WideTable[K]) domain.TidyTable {
	rows := make([]domain.TidyRow, 0, wide.Count())
	for _, col := range wide.Columns() {
		gk := col.Key.Key()
		label := col.Key.String()
		for _, v := range col.Values {
			rows = append(rows, domain.TidyRow{
				Label:     label,
				Batch:     gk.Batch,
				Group:     gk.Group,
				Timepoint: gk.Timepoint,
				Organoid:  col.Key.Index(),
				Value:     v,
			})
		}
	}
	return domain.TidyTable{Name: wide.Name(), Rows: rows}
}

// FromTidy rebuilds a wide table from tidy rows. Columns appear in the
// order their first row appears.
func FromTidy[K domain.ColumnKey](tidy domain.TidyTable, keyOf func(domain.TidyRow) K) *domain.WideTable[K] {
	var order []K
	values := make(map[K][]float64)
	for _, r := range tidy.Rows {
		k := keyOf(r)
		if _, seen := values[k]; !seen {
			order = append(order, k)
			values[k] = nil
		}
		values[k] = append(values[k], r.Value)
	}
	return BuildWide(tidy.Name, values, order)
}
