package domain

import "sort"

// GroupOrdering is the canonical display order of group keys. It is built
// once per run and shared by every component that orders columns.
type GroupOrdering struct {
	keys       []GroupKey
	index      map[GroupKey]int
	timepoints []string
	baseline   string
}

// NewGroupOrdering builds an ordering from explicit keys. Repeated keys
// keep their first position. The baseline timepoint is the first entry of
// timepoints; an empty list means single-timepoint mode.
func NewGroupOrdering(keys []GroupKey, timepoints []string) *GroupOrdering {
	o := &GroupOrdering{
		index: make(map[GroupKey]int, len(keys)),
	}
	for _, k := range keys {
		if _, dup := o.index[k]; dup {
			continue
		}
		o.index[k] = len(o.keys)
		o.keys = append(o.keys, k)
	}
	o.timepoints = append([]string(nil), timepoints...)
	if len(o.timepoints) == 0 {
		o.timepoints = collectTimepoints(o.keys)
	}
	if len(o.timepoints) > 0 {
		o.baseline = o.timepoints[0]
	}
	return o
}

// DeriveGroupOrdering builds the product batch x group x timepoint in the
// order given. Empty batch or timepoint lists mean the dimension is absent.
func DeriveGroupOrdering(batches, groups, timepoints []string) *GroupOrdering {
	if len(batches) == 0 {
		batches = []string{""}
	}
	tps := timepoints
	if len(tps) == 0 {
		tps = []string{""}
	}
	keys := make([]GroupKey, 0, len(batches)*len(groups)*len(tps))
	for _, b := range batches {
		for _, g := range groups {
			for _, tp := range tps {
				keys = append(keys, GroupKey{Batch: b, Group: g, Timepoint: tp})
			}
		}
	}
	return NewGroupOrdering(keys, timepoints)
}

func collectTimepoints(keys []GroupKey) []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		if k.Timepoint == "" || seen[k.Timepoint] {
			continue
		}
		seen[k.Timepoint] = true
		out = append(out, k.Timepoint)
	}
	return out
}

// Keys returns the ordered group keys.
func (o *GroupOrdering) Keys() []GroupKey {
	return append([]GroupKey(nil), o.keys...)
}

// Len returns the number of declared keys.
func (o *GroupOrdering) Len() int { return len(o.keys) }

// Position returns the declared position of a key.
func (o *GroupOrdering) Position(k GroupKey) (int, bool) {
	i, ok := o.index[k]
	return i, ok
}

// Contains reports whether a key is declared.
func (o *GroupOrdering) Contains(k GroupKey) bool {
	_, ok := o.index[k]
	return ok
}

// Timepoints returns the declared timepoints, earliest first.
func (o *GroupOrdering) Timepoints() []string {
	return append([]string(nil), o.timepoints...)
}

// BaselineTimepoint returns the earliest timepoint, or "" when the
// experiment has a single timepoint.
func (o *GroupOrdering) BaselineTimepoint() string { return o.baseline }

// IsBaseline reports whether a key belongs to the baseline timepoint.
// Every key qualifies in single-timepoint mode.
func (o *GroupOrdering) IsBaseline(k GroupKey) bool {
	return o.baseline == "" || k.Timepoint == o.baseline
}

// OrderIdentities sorts identities by declared group position, then by
// organoid index. Repeated identities keep the first occurrence. Identities
// whose group key is not declared are returned separately.
func (o *GroupOrdering) OrderIdentities(ids []Identity) (ordered, undeclared []Identity) {
	seen := make(map[Identity]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if o.Contains(id.Key()) {
			ordered = append(ordered, id)
		} else {
			undeclared = append(undeclared, id)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := o.index[ordered[i].Key()], o.index[ordered[j].Key()]
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Organoid < ordered[j].Organoid
	})
	return ordered, undeclared
}
