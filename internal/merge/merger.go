package merge

import (
	"context"
	"fmt"
	"log/slog"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/infrastructure"
	"organoidcli/internal/normalize"
	"organoidcli/internal/tables"
	"organoidcli/pkg/contracts/domain"
)

// Offsets records, per group key, the highest organoid index contributed
// by the replicates merged so far.
type Offsets map[domain.GroupKey]int

// Advance raises the offsets past every organoid in ids.
func (o Offsets) Advance(ids []domain.Identity) {
	local := make(map[domain.GroupKey]int)
	for _, id := range ids {
		if id.Organoid > local[id.Key()] {
			local[id.Key()] = id.Organoid
		}
	}
	for k, n := range local {
		o[k] += n
	}
}

// Renumber shifts every organoid index by its group's offset. Column
// order is kept.
func Renumber(t *domain.WideTable[domain.Identity], offsets Offsets) *domain.WideTable[domain.Identity] {
	if t == nil {
		return nil
	}
	cols := t.Columns()
	for i := range cols {
		id := cols[i].Key
		cols[i].Key = id.WithOrganoid(id.Organoid + offsets[id.Key()])
	}
	return domain.NewWideTable(t.Name(), cols)
}

// identities returns every organoid a replicate mentions in any table.
func (r *Replicate) identities() []domain.Identity {
	seen := make(map[domain.Identity]bool)
	var out []domain.Identity
	for _, t := range []*domain.WideTable[domain.Identity]{r.CellCount, r.Invaded, r.Distance} {
		if t == nil {
			continue
		}
		for _, id := range t.Keys() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Result holds the merged tables. Each table's columns follow the declared
// group ordering.
type Result struct {
	Replicates    int
	CellCountRaw  *domain.WideTable[domain.Identity]
	CellCountNorm *domain.WideTable[domain.Identity]
	InvadedRaw    *domain.WideTable[domain.Identity]
	InvadedNorm   *domain.WideTable[domain.Identity]
	Distance      *domain.WideTable[domain.Identity]
	// Undeclared lists organoids whose group is not in the ordering.
	Undeclared []domain.Identity
}

// Tables returns the merged count tables in export order. Missing tables
// are left out.
func (r *Result) Tables() []*domain.WideTable[domain.Identity] {
	var out []*domain.WideTable[domain.Identity]
	for _, t := range []*domain.WideTable[domain.Identity]{r.CellCountRaw, r.CellCountNorm, r.InvadedRaw, r.InvadedNorm} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Merger concatenates replicates.
type Merger struct {
	ordering       *domain.GroupOrdering
	referenceGroup string
	logger         *slog.Logger
}

// NewMerger creates a merger. Cell counts are normalised by the mean of
// referenceGroup within each replicate.
func NewMerger(ordering *domain.GroupOrdering, referenceGroup string, logger *slog.Logger) *Merger {
	return &Merger{
		ordering:       ordering,
		referenceGroup: referenceGroup,
		logger:         infrastructure.WithComponent(logger, "merger"),
	}
}

// Merge renumbers replicates 2..N past the organoids of all earlier
// replicates and concatenates each table type in replicate order. The
// merged columns are then sorted by the declared ordering.
func (m *Merger) Merge(ctx context.Context, replicates []*Replicate) (*Result, error) {
	if len(replicates) == 0 {
		return nil, apperrors.NewValidationError("no replicates to merge")
	}

	var cnRaw, cnNorm, invRaw, invNorm, dts []*domain.WideTable[domain.Identity]
	offsets := make(Offsets)

	for i, rep := range replicates {
		ids := rep.identities()
		cn := Renumber(rep.CellCount, offsets)
		inv := Renumber(rep.Invaded, offsets)
		dist := Renumber(rep.Distance, offsets)
		offsets.Advance(ids)

		norm, err := m.normalizeCounts(cn)
		if err != nil {
			return nil, fmt.Errorf("replicate %d (%s): %w", i+1, rep.Location, err)
		}
		cnRaw = append(cnRaw, cn)
		cnNorm = append(cnNorm, norm)

		if inv != nil {
			invRaw = append(invRaw, inv)
			frac, skipped := normalize.Divide(config.FamilyMergedInvN, inv, cn)
			if skipped > 0 {
				m.logger.WarnContext(ctx, "Invaded fraction has cells without a cell count",
					slog.String("location", rep.Location),
					slog.Int("skipped", skipped))
			}
			invNorm = append(invNorm, frac)
		}
		if dist != nil {
			dts = append(dts, dist)
		}

		m.logger.DebugContext(ctx, "Merged replicate",
			slog.Int("replicate", i+1),
			slog.String("location", rep.Location),
			slog.Int("organoids", len(ids)))
	}

	res := &Result{Replicates: len(replicates)}
	var undeclared []domain.Identity
	reorder := func(name string, parts []*domain.WideTable[domain.Identity]) *domain.WideTable[domain.Identity] {
		if len(parts) == 0 {
			return nil
		}
		t, dropped := tables.Reorder(tables.Concat(name, parts...), m.ordering)
		undeclared = append(undeclared, dropped...)
		return t
	}
	res.CellCountRaw = reorder(config.FamilyMergedCount, cnRaw)
	res.CellCountNorm = reorder(config.FamilyMergedCountN, cnNorm)
	res.InvadedRaw = reorder(config.FamilyMergedInvaded, invRaw)
	res.InvadedNorm = reorder(config.FamilyMergedInvN, invNorm)
	res.Distance = reorder(config.FamilyDistance, dts)
	res.Undeclared = dedupe(undeclared)

	if len(res.Undeclared) > 0 {
		m.logger.WarnContext(ctx, "Dropped organoids from undeclared groups",
			slog.Int("count", len(res.Undeclared)))
	}
	m.logger.InfoContext(ctx, "Merged replicates",
		slog.Int("replicates", res.Replicates),
		slog.Int("organoids", res.CellCountRaw.Width()))
	return res, nil
}

// normalizeCounts divides cell counts by the mean count of the reference
// group at the same batch and timepoint within one replicate.
func (m *Merger) normalizeCounts(cn *domain.WideTable[domain.Identity]) (*domain.WideTable[domain.Identity], error) {
	sums := make(map[domain.GroupKey]float64)
	counts := make(map[domain.GroupKey]int)
	for _, c := range cn.Columns() {
		if c.Key.Group != m.referenceGroup {
			continue
		}
		for _, v := range c.Values {
			sums[c.Key.Key()] += v
			counts[c.Key.Key()]++
		}
	}

	cols := cn.Columns()
	for i, c := range cols {
		ref := c.Key.Key()
		ref.Group = m.referenceGroup
		n := counts[ref]
		if n == 0 || sums[ref] == 0 {
			return nil, apperrors.NewEmptyGroupError(ref.String(), "no reference cell counts to normalise by")
		}
		mean := sums[ref] / float64(n)
		out := make([]float64, len(c.Values))
		for j, v := range c.Values {
			out[j] = v / mean
		}
		cols[i].Values = out
	}
	return domain.NewWideTable(config.FamilyMergedCountN, cols), nil
}

func dedupe(ids []domain.Identity) []domain.Identity {
	seen := make(map[domain.Identity]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
