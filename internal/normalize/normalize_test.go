package normalize

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/tables"
	"organoidcli/pkg/contracts/domain"
)

func org(group, tp string, n int) domain.Identity {
	return domain.Identity{Group: group, Timepoint: tp, Organoid: n}
}

func twoTimepoints() *domain.GroupOrdering {
	return domain.DeriveGroupOrdering(nil, []string{"ctrl", "drug"}, []string{"3days", "7days"})
}

func testNormalizer() *Normalizer {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewNormalizer(twoTimepoints(), logger)
}

func countTable(values map[domain.Identity]float64) *domain.WideTable[domain.Identity] {
	ordered, _ := twoTimepoints().OrderIdentities(keys(values))
	return tables.BuildScalar("cn", values, ordered)
}

func keys(m map[domain.Identity]float64) []domain.Identity {
	out := make([]domain.Identity, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestBaselineAverage(t *testing.T) {
	ordering := twoTimepoints()
	combined := tables.Combine(countTable(map[domain.Identity]float64{
		org("ctrl", "3days", 1): 2,
		org("ctrl", "3days", 2): 4,
		org("ctrl", "7days", 1): 100,
		org("drug", "7days", 1): 5,
	}), ordering)

	b := BaselineAverage(combined, ordering.IsBaseline)

	assert.Equal(t, Baseline{{Group: "ctrl"}: 3}, b)
	_, ok := b.For(domain.GroupKey{Group: "drug", Timepoint: "3days"})
	assert.False(t, ok, "a group absent from the reference subset has no baseline")
}

func TestToBaseline_Scenario(t *testing.T) {
	cn := countTable(map[domain.Identity]float64{
		org("ctrl", "3days", 1): 2,
		org("ctrl", "3days", 2): 2,
	})
	b := Baseline{{Group: "ctrl"}: 2}

	out, err := ToBaseline("cn_norm_total", cn, b)
	require.NoError(t, err)

	for _, col := range out.Columns() {
		assert.Equal(t, []float64{1}, col.Values)
	}
}

func TestToBaseline_DividesEveryCell(t *testing.T) {
	values := tables.BuildWide("dts", map[domain.Identity][]float64{
		org("ctrl", "3days", 1): {2, 4},
		org("ctrl", "7days", 1): {8},
		org("drug", "7days", 1): {3},
	}, []domain.Identity{org("ctrl", "3days", 1), org("ctrl", "7days", 1), org("drug", "7days", 1), org("drug", "3days", 9)})
	b := Baseline{{Group: "ctrl"}: 4, {Group: "drug"}: 3}

	out, err := ToBaseline("x", values, b)
	require.NoError(t, err)

	for _, col := range values.Columns() {
		div, _ := b.For(col.Key.Key())
		got, _ := out.Values(col.Key)
		require.Len(t, got, col.Len())
		for i, v := range col.Values {
			assert.Equal(t, v/div, got[i])
		}
	}
}

func TestToBaseline_Undefined(t *testing.T) {
	values := countTable(map[domain.Identity]float64{org("drug", "7days", 1): 5})

	tests := []struct {
		name     string
		baseline Baseline
	}{
		{name: "missing baseline", baseline: Baseline{{Group: "ctrl"}: 2}},
		{name: "zero baseline", baseline: Baseline{{Group: "drug"}: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToBaseline("cn_norm_total", values, tt.baseline)
			assert.ErrorIs(t, err, apperrors.ErrEmptyGroup)
		})
	}
}

func TestNormalizer_ReferenceSubsetMeanIsOne(t *testing.T) {
	cn := countTable(map[domain.Identity]float64{
		org("ctrl", "3days", 1): 10,
		org("ctrl", "3days", 2): 30,
		org("ctrl", "7days", 1): 50,
		org("drug", "3days", 1): 7,
		org("drug", "7days", 1): 14,
	})
	n := testNormalizer()

	out, err := n.ToMetricBaseline(context.Background(), cn, cn, "_norm_total")
	require.NoError(t, err)
	assert.Equal(t, "cn_norm_total", out.Name())

	combined := tables.Combine(out, twoTimepoints())
	ref, _ := combined.Values(domain.GroupKey{Group: "ctrl", Timepoint: "3days"})
	assert.InDelta(t, 1.0, (ref[0]+ref[1])/2, 1e-12)
	late, _ := combined.Values(domain.GroupKey{Group: "ctrl", Timepoint: "7days"})
	assert.Equal(t, []float64{2.5}, late)
	drugLate, _ := combined.Values(domain.GroupKey{Group: "drug", Timepoint: "7days"})
	assert.Equal(t, []float64{2}, drugLate)
}

func TestNormalizer_IndependentBaselines(t *testing.T) {
	cn := countTable(map[domain.Identity]float64{
		org("ctrl", "3days", 1): 10,
		org("ctrl", "7days", 1): 20,
	})
	below := countTable(map[domain.Identity]float64{
		org("ctrl", "3days", 1): 4,
		org("ctrl", "7days", 1): 2,
	})
	n := testNormalizer()

	byTotal, err := n.ToMetricBaseline(context.Background(), cn, cn, "_norm_total")
	require.NoError(t, err)
	byBelow, err := n.ToMetricBaseline(context.Background(), cn, below, "_norm_below")
	require.NoError(t, err)

	v, _ := byTotal.Cell(org("ctrl", "7days", 1), 0)
	assert.Equal(t, 2.0, v)
	v, _ = byBelow.Cell(org("ctrl", "7days", 1), 0)
	assert.Equal(t, 5.0, v)
}

func TestToOwnFirstTimepoint(t *testing.T) {
	values := countTable(map[domain.Identity]float64{
		org("ctrl", "3days", 1): 4,
		org("ctrl", "3days", 2): 8,
		org("ctrl", "7days", 1): 16,
	})
	n := testNormalizer()

	byMin, err := n.ToOwnFirstTimepoint(context.Background(), values, OwnMin, "_norm_own")
	require.NoError(t, err)
	v, _ := byMin.Cell(org("ctrl", "7days", 1), 0)
	assert.Equal(t, 4.0, v)

	byMean, err := n.ToOwnFirstTimepoint(context.Background(), values, OwnMean, "_norm_own")
	require.NoError(t, err)
	v, _ = byMean.Cell(org("ctrl", "3days", 2), 0)
	assert.InDelta(t, 8.0/6.0, v, 1e-12)

	_, err = ToOwnFirstTimepoint("x", values, twoTimepoints(), OwnReference("median"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDivide(t *testing.T) {
	o1, o2, o3 := org("ctrl", "3days", 1), org("ctrl", "3days", 2), org("ctrl", "3days", 3)
	above := countTable(map[domain.Identity]float64{o1: 1, o2: 3, o3: 2})
	cn := countTable(map[domain.Identity]float64{o1: 4, o2: 0})

	frac, skipped := Divide("frac", above, cn)

	assert.Equal(t, 2, skipped)
	v, ok := frac.Cell(o1, 0)
	assert.True(t, ok)
	assert.Equal(t, 0.25, v)
	_, ok = frac.Cell(o2, 0)
	assert.False(t, ok)
	assert.True(t, frac.Has(o3))
}
