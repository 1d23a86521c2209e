package tables

import (
	"organoidcli/pkg/contracts/domain"
)

// Combine rolls a wide table up to one column per declared group key.
// Each group column concatenates the values of every matching column in
// the input's column order, so organoid order inside a group is kept.
// Declared groups without data get an empty column; columns whose group
// is not declared are dropped.
func Combine[K domain.ColumnKey](wide *domain.WideTable[K], ordering *domain.GroupOrdering) *domain.WideTable[domain.GroupKey] {
	byGroup := make(map[domain.GroupKey][]float64, ordering.Len())
	for _, col := range wide.Columns() {
		gk := col.Key.Key()
		if !ordering.Contains(gk) {
			continue
		}
		byGroup[gk] = append(byGroup[gk], col.Values...)
	}
	return BuildWide(wide.Name(), byGroup, ordering.Keys())
}

// Views bundles the four shapes every metric family is exported in.
type Views[K domain.ColumnKey] struct {
	Wide        *domain.WideTable[K]
	Tidy        domain.TidyTable
	ByGroup     *domain.WideTable[domain.GroupKey]
	ByGroupTidy domain.TidyTable
}

// Name returns the family name.
func (v *Views[K]) Name() string { return v.Wide.Name() }

// NewViews derives the tidy and per-group forms of a wide table.
func NewViews[K domain.ColumnKey](wide *domain.WideTable[K], ordering *domain.GroupOrdering) *Views[K] {
	byGroup := Combine(wide, ordering)
	return &Views[K]{
		Wide:        wide,
		Tidy:        BuildTidy(wide),
		ByGroup:     byGroup,
		ByGroupTidy: BuildTidy(byGroup),
	}
}

// Reorder rebuilds an organoid table with columns sorted by declared
// group position and then organoid index. Undeclared organoids are
// dropped and returned.
func Reorder(wide *domain.WideTable[domain.Identity], ordering *domain.GroupOrdering) (*domain.WideTable[domain.Identity], []domain.Identity) {
	ordered, undeclared := ordering.OrderIdentities(wide.Keys())
	cols := make([]domain.Column[domain.Identity], 0, len(ordered))
	for _, id := range ordered {
		vals, _ := wide.Values(id)
		cols = append(cols, domain.Column[domain.Identity]{Key: id, Values: vals})
	}
	return domain.NewWideTable(wide.Name(), cols), undeclared
}

// Concat appends the columns of several tables in argument order. When a
// key repeats, the first table's column wins.
func Concat[K domain.ColumnKey](name string, parts ...*domain.WideTable[K]) *domain.WideTable[K] {
	var cols []domain.Column[K]
	for _, p := range parts {
		if p != nil {
			cols = append(cols, p.Columns()...)
		}
	}
	return domain.NewWideTable(name, cols)
}
