package derived

import (
	"sort"

	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

// Threshold is a distance cutoff per batch. The entry for the empty batch
// applies to every batch without its own entry.
type Threshold map[string]float64

// FixedThreshold applies one cutoff to every batch.
func FixedThreshold(v float64) Threshold {
	return Threshold{"": v}
}

// For returns the cutoff that applies to a batch.
func (t Threshold) For(batch string) (float64, bool) {
	if v, ok := t[batch]; ok {
		return v, true
	}
	v, ok := t[""]
	return v, ok
}

// InvasionThreshold averages the q-quantile of every reference-group
// organoid, separately per batch. Organoids without data are ignored; a
// batch whose reference group has no data fails with EmptyGroupError.
func InvasionThreshold(dts *domain.WideTable[domain.Identity], q float64, referenceGroup string) (Threshold, error) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var batches []string

	for _, col := range dts.Columns() {
		id := col.Key
		if _, seen := counts[id.Batch]; !seen {
			counts[id.Batch] = 0
			batches = append(batches, id.Batch)
		}
		if id.Group != referenceGroup || col.Len() == 0 {
			continue
		}
		sorted := append([]float64(nil), col.Values...)
		sort.Float64s(sorted)
		sums[id.Batch] += Quantile(sorted, q)
		counts[id.Batch]++
	}

	out := make(Threshold, len(batches))
	for _, b := range batches {
		if counts[b] == 0 {
			return nil, apperrors.NewEmptyGroupError(referenceGroup, "reference group has no distance data for the invasion threshold").
				WithContext("batch", b)
		}
		out[b] = sums[b] / float64(counts[b])
	}
	if len(out) == 0 {
		return nil, apperrors.NewEmptyGroupError(referenceGroup, "no distance data for the invasion threshold")
	}
	return out, nil
}

// StatisticThreshold takes one descriptive statistic of the pooled
// reference-group distances, separately per batch. A batch whose
// reference group has no data fails with EmptyGroupError.
func StatisticThreshold(dts *domain.WideTable[domain.Identity], name domain.StatName, referenceGroup string) (Threshold, error) {
	pooled := make(map[string][]float64)
	var batches []string

	for _, col := range dts.Columns() {
		id := col.Key
		if _, seen := pooled[id.Batch]; !seen {
			pooled[id.Batch] = nil
			batches = append(batches, id.Batch)
		}
		if id.Group == referenceGroup {
			pooled[id.Batch] = append(pooled[id.Batch], col.Values...)
		}
	}

	out := make(Threshold, len(batches))
	for _, b := range batches {
		if len(pooled[b]) == 0 {
			return nil, apperrors.NewEmptyGroupError(referenceGroup, "reference group has no distance data for the invasion threshold").
				WithContext("batch", b)
		}
		v, err := StatThreshold(pooled[b], name)
		if err != nil {
			return nil, apperrors.NewConfigError("unknown invasion statistic", err).WithContext("statistic", string(name))
		}
		out[b] = v
	}
	if len(out) == 0 {
		return nil, apperrors.NewEmptyGroupError(referenceGroup, "no distance data for the invasion threshold")
	}
	return out, nil
}
