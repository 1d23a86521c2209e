package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Experiment.InputDir = filepath.Join(root, "raw")
	cfg.Output.Dir = filepath.Join(root, "out")
	cfg.Output.StatisticsDir = filepath.Join(root, "stats")
	cfg.Merge.OutputDir = filepath.Join(root, "merged")

	p := NewPaths(cfg)

	assert.Equal(t, filepath.Join(root, "out", "data"), p.DataDir)
	assert.Equal(t, filepath.Join(root, "stats"), p.StatisticsDir, "absolute directories are kept")
	assert.Equal(t, filepath.Join(root, "out", "data", "cn.xlsx"), p.WorkbookPath(FamilyCellCount))
	assert.Equal(t, filepath.Join(root, "out", "data", "dts_tidy.csv"), p.TidyCSVPath(FamilyDistance))
	assert.Equal(t, filepath.Join(root, "stats", "cn_anova.txt"), p.StatisticsPath("cn_anova"))
	assert.Equal(t, filepath.Join(root, "merged", "cn_raw.xlsx"), p.ForMerge().WorkbookPath(FamilyMergedCount))
	assert.Equal(t, filepath.Join(root, "merged", "cn_raw_anova.txt"), p.ForMerge().StatisticsPath("cn_raw_anova"))
	assert.Equal(t, filepath.Join(root, "raw", "*", "*.csv"), p.InputPattern(filepath.Join("*", "*.csv")))

	require.NoError(t, p.EnsureDirectories())
	assert.DirExists(t, p.DataDir)
	assert.DirExists(t, p.StatisticsDir)
}

func TestPaths_EmptySubdirectory(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = "out"
	cfg.Output.DataDir = ""

	assert.Equal(t, "out", NewPaths(cfg).DataDir)
}
