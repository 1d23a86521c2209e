package pipeline

import (
	"organoidcli/internal/dataprocessing"
	"organoidcli/internal/derived"
	"organoidcli/pkg/contracts/domain"
)

// TableSet keeps organoid tables by family name in insertion order.
type TableSet struct {
	names  []string
	byName map[string]*domain.WideTable[domain.Identity]
}

func newTableSet() *TableSet {
	return &TableSet{byName: make(map[string]*domain.WideTable[domain.Identity])}
}

// Add stores t under its name. Nil tables are ignored and a repeated name
// keeps the first table.
func (s *TableSet) Add(t *domain.WideTable[domain.Identity]) {
	if t == nil {
		return
	}
	if _, ok := s.byName[t.Name()]; ok {
		return
	}
	s.names = append(s.names, t.Name())
	s.byName[t.Name()] = t
}

// Get returns the table of a family.
func (s *TableSet) Get(name string) (*domain.WideTable[domain.Identity], bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Names returns the family names in insertion order.
func (s *TableSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of tables.
func (s *TableSet) Len() int { return len(s.names) }

// Result is everything one run produced. It is not modified after Run
// returns.
type Result struct {
	RunID        string
	Ordering     *domain.GroupOrdering
	Measurements *dataprocessing.Measurements
	// Undeclared lists organoids whose group key is not in the ordering.
	Undeclared []domain.Identity

	Tables *TableSet
	// SkippedTables lists add-on families left out because a baseline
	// was zero or missing.
	SkippedTables []string
	Positions     *domain.WideTable[domain.PositionKey]
	Derived       *derived.Metrics
	Above         derived.Threshold

	Anova      map[string]*domain.AnovaResult
	Kruskal    map[string]*domain.KruskalResult
	Regression *domain.RegressionResult

	Written []string
	Stages  []StageRecord
}

// Stage returns the record of a named stage.
func (r *Result) Stage(name string) (StageRecord, bool) {
	return findStage(r.Stages, name)
}

func findStage(stages []StageRecord, name string) (StageRecord, bool) {
	for _, s := range stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageRecord{}, false
}
