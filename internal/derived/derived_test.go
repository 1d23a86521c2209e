package derived

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/shared/testutil"
	"organoidcli/pkg/contracts/domain"
)

var quietLogger = testutil.QuietLogger

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(sorted, tt.q), 1e-12, "q=%v", tt.q)
	}
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.3))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestDescribe(t *testing.T) {
	s, err := Describe([]float64{4, 1, 3, 2, 5})
	require.NoError(t, err)

	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 2.0, s.Q1)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 4.0, s.Q3)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 4.0, s.Range)
	assert.Equal(t, 2.0, s.IQR)
	assert.Equal(t, 3.0, s.Q1Q4)
	assert.Equal(t, 2.0, s.Q2Q4)
	assert.Equal(t, 1.0, s.Q3Q4)
	assert.Equal(t, 3.0, s.Mean)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev, 1e-12)
	assert.InDelta(t, s.Mean+3*s.StdDev, s.Std3, 1e-12)
}

func TestDescribe_Edges(t *testing.T) {
	s, err := Describe([]float64{2})
	require.NoError(t, err)
	assert.Zero(t, s.StdDev)
	assert.Equal(t, 2.0, s.Std3)

	_, err = Describe(nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyGroup)
}

func TestStatThreshold(t *testing.T) {
	v, err := StatThreshold([]float64{1, 2, 3, 4, 5}, domain.StatQ3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	_, err = StatThreshold([]float64{1}, domain.StatName("bogus"))
	assert.Error(t, err)
}

func TestCounts_Partition(t *testing.T) {
	samples := [][]float64{
		{1, 3},
		{2, 2, 2},
		{-1, 0, 5, 2, 2.5},
		{},
	}
	thresholds := []float64{-5, 0, 2, 2.5, 10}

	for _, s := range samples {
		for _, th := range thresholds {
			total := CountAbove(s, th) + CountBelow(s, th) + CountEqual(s, th)
			assert.Equal(t, len(s), total, "sample %v threshold %v", s, th)
		}
	}
}

func TestCounts_Scenario(t *testing.T) {
	col := []float64{1, 3}
	assert.Equal(t, 1, CountAbove(col, 2))
	assert.Equal(t, 1, CountBelow(col, 2))
}

func TestRemoveOutliers(t *testing.T) {
	sample := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 50}
	s, err := Describe(sample)
	require.NoError(t, err)

	filtered, bound, err := RemoveOutliers(sample)
	require.NoError(t, err)

	assert.Equal(t, s.Std3, bound)
	for _, v := range filtered {
		assert.Less(t, v, bound)
	}
	assert.NotContains(t, filtered, 50.0)
	assert.Len(t, filtered, 11)

	assert.Equal(t, filtered, FilterBelow(filtered, bound), "re-applying the original bound changes nothing")
}

func TestCountAboveEachStat(t *testing.T) {
	got, err := CountAboveEachStat([]float64{1, 2, 3, 4, 5}, []domain.StatName{domain.StatMin, domain.StatMedian, domain.StatMax})
	require.NoError(t, err)
	assert.Equal(t, map[domain.StatName]int{domain.StatMin: 4, domain.StatMedian: 2, domain.StatMax: 0}, got)

	_, err = CountAboveEachStat(nil, domain.DescribedStats)
	assert.ErrorIs(t, err, apperrors.ErrEmptyGroup)
}

func id(batch, group string, n int) domain.Identity {
	return domain.Identity{Batch: batch, Group: group, Organoid: n}
}

func TestInvasionThreshold(t *testing.T) {
	dts := domain.NewWideTable("dts", []domain.Column[domain.Identity]{
		{Key: id("b1", "DMSO", 1), Values: []float64{1, 2, 3, 4}},
		{Key: id("b1", "DMSO", 2), Values: []float64{10, 20}},
		{Key: id("b1", "DMSO", 3)},
		{Key: id("b1", "TMZ", 1), Values: []float64{100}},
		{Key: id("b2", "DMSO", 1), Values: []float64{8}},
	})

	th, err := InvasionThreshold(dts, 0.5, "DMSO")
	require.NoError(t, err)

	assert.InDelta(t, (2.5+15)/2, th["b1"], 1e-12)
	assert.Equal(t, 8.0, th["b2"])
}

func TestInvasionThreshold_NoReferenceData(t *testing.T) {
	dts := domain.NewWideTable("dts", []domain.Column[domain.Identity]{
		{Key: id("", "TMZ", 1), Values: []float64{1}},
	})
	_, err := InvasionThreshold(dts, 0.75, "DMSO")
	assert.ErrorIs(t, err, apperrors.ErrEmptyGroup)
}

func TestStatisticThreshold(t *testing.T) {
	dts := domain.NewWideTable("dts", []domain.Column[domain.Identity]{
		{Key: id("b1", "DMSO", 1), Values: []float64{1, 2, 3, 4}},
		{Key: id("b1", "DMSO", 2), Values: []float64{10, 20}},
		{Key: id("b1", "TMZ", 1), Values: []float64{100}},
		{Key: id("b2", "DMSO", 1), Values: []float64{8}},
	})

	th, err := StatisticThreshold(dts, domain.StatMedian, "DMSO")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, th["b1"], 1e-12, "reference distances are pooled per batch")
	assert.Equal(t, 8.0, th["b2"])

	_, err = StatisticThreshold(dts, domain.StatMedian, "TMZ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyGroup)

	_, err = StatisticThreshold(dts, domain.StatName("mode"), "DMSO")
	assert.ErrorIs(t, err, apperrors.ErrConfig)
}

func TestThreshold_For(t *testing.T) {
	th := Threshold{"": 5, "b2": 7}
	v, ok := th.For("b2")
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
	v, ok = th.For("b9")
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	_, ok = Threshold{"b1": 1}.For("b2")
	assert.False(t, ok)
}

func TestMorphology(t *testing.T) {
	o := id("", "ctrl", 1)
	assert.Equal(t, 70.0, OrganoidVolumes(100, map[domain.Identity]float64{o: 30})[o])
	assert.Equal(t, 20.0, OrganoidAreas(100, map[domain.Identity]float64{o: 120})[o])
}

func TestEngine_Compute(t *testing.T) {
	o1 := domain.Identity{Group: "ctrl", Timepoint: "3days", Organoid: 1}
	o2 := domain.Identity{Group: "ctrl", Timepoint: "3days", Organoid: 2}
	empty := domain.Identity{Group: "ctrl", Timepoint: "3days", Organoid: 3}
	dts := domain.NewWideTable("dts", []domain.Column[domain.Identity]{
		{Key: o1, Values: []float64{1, 3}},
		{Key: o2, Values: []float64{5, 2}},
		{Key: empty},
	})

	m, err := NewEngine(quietLogger()).Compute(context.Background(), dts, Options{
		Above: FixedThreshold(2),
		Below: FixedThreshold(2),
	})
	require.NoError(t, err)

	assert.Equal(t, config.FamilyCellCount, m.CellCount.Name())
	assert.Equal(t, dts.Keys(), m.CellCount.Keys())
	cn, _ := m.CellCount.Cell(o1, 0)
	assert.Equal(t, 2.0, cn)
	cn, _ = m.CellCount.Cell(empty, 0)
	assert.Equal(t, 0.0, cn)

	above, _ := m.Above.Cell(o1, 0)
	below, _ := m.Below.Cell(o1, 0)
	assert.Equal(t, 1.0, above)
	assert.Equal(t, 1.0, below)

	require.Len(t, m.Stats, len(domain.DescribedStats))
	assert.Equal(t, "stats_median", m.Stats[domain.StatMedian].Name())
	med, _ := m.Stats[domain.StatMedian].Cell(o2, 0)
	assert.Equal(t, 3.5, med)
	assert.True(t, m.Stats[domain.StatMedian].Has(empty))
	_, ok := m.Stats[domain.StatMedian].Cell(empty, 0)
	assert.False(t, ok)

	beyondMin, _ := m.Beyond[domain.StatMin].Cell(o2, 0)
	assert.Equal(t, 1.0, beyondMin)

	assert.Contains(t, m.OutlierBounds, o1)
	assert.NotContains(t, m.OutlierBounds, empty)
	kept, _ := m.Filtered.Values(o1)
	assert.Equal(t, []float64{1, 3}, kept)
}

func TestEngine_SkipsUnconfiguredThresholds(t *testing.T) {
	dts := domain.NewWideTable("dts", []domain.Column[domain.Identity]{
		{Key: id("", "ctrl", 1), Values: []float64{1}},
	})

	logger, logs := testutil.NewTestLogger(t)
	m, err := NewEngine(logger).Compute(context.Background(), dts, Options{})
	require.NoError(t, err)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "No above-threshold configured")
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "No below-threshold configured")
	assert.Nil(t, m.Above)
	assert.Nil(t, m.Below)
	assert.NotNil(t, m.CellCount)
}

func TestEngine_ResolveAbove(t *testing.T) {
	dts := domain.NewWideTable("dts", []domain.Column[domain.Identity]{
		{Key: id("", "DMSO", 1), Values: []float64{1, 2, 3, 4, 5}},
	})
	e := NewEngine(quietLogger())
	ctx := context.Background()
	fixed := 9.0

	th, err := e.ResolveAbove(ctx, dts, config.ThresholdConfig{Above: &fixed}, config.InvasionConfig{Quantile: 0.5, ReferenceGroup: "DMSO"})
	require.NoError(t, err)
	assert.Equal(t, FixedThreshold(9), th)

	th, err = e.ResolveAbove(ctx, dts, config.ThresholdConfig{}, config.InvasionConfig{Quantile: 0.75, ReferenceGroup: "DMSO"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, th[""])

	th, err = e.ResolveAbove(ctx, dts, config.ThresholdConfig{}, config.InvasionConfig{Statistic: "max", ReferenceGroup: "DMSO"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, th[""])

	th, err = e.ResolveAbove(ctx, dts, config.ThresholdConfig{}, config.InvasionConfig{})
	require.NoError(t, err)
	assert.Nil(t, th)
}

func TestEngine_ReportsCellsOnThreshold(t *testing.T) {
	dts := domain.NewWideTable("dts", []domain.Column[domain.Identity]{
		{Key: id("", "ctrl", 1), Values: []float64{1, 3}},
		{Key: id("", "ctrl", 2), Values: []float64{5, 2}},
	})

	logger, logs := testutil.NewTestLogger(t)
	m, err := NewEngine(logger).Compute(context.Background(), dts, Options{Above: FixedThreshold(2)})
	require.NoError(t, err)

	above, _ := m.Above.Cell(id("", "ctrl", 2), 0)
	assert.Equal(t, 1.0, above)
	testutil.AssertLogContains(t, logs, slog.LevelDebug, "Cells lie exactly on the above-threshold and are counted in neither table")
	assert.True(t, logs.ContainsAttr("cells", int64(1)))
}
