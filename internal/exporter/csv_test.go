package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organoidcli/internal/config"
	"organoidcli/pkg/contracts/domain"
)

// setupTestEnv returns a writer rooted in a temporary data directory
func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	root := t.TempDir()
	paths := &config.Paths{
		OutputDir:     root,
		DataDir:       filepath.Join(root, "data"),
		StatisticsDir: filepath.Join(root, "statistics"),
	}
	return NewCSVWriter(paths, quietLogger()), paths
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestNewCSVWriter(t *testing.T) {
	paths := &config.Paths{}
	writer := NewCSVWriter(paths, nil)

	assert.NotNil(t, writer)
	assert.Equal(t, paths, writer.paths)
	assert.NotNil(t, writer.logger)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, paths := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, fullPath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"label", "value"},
				Records: [][]string{{"ctrl_org1", "2"}, {"ctrl_org2", "3"}},
			},
			validate: func(t *testing.T, fullPath string) {
				content, err := os.ReadFile(fullPath)
				require.NoError(t, err)
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Equal(t, []string{"label,value", "ctrl_org1,2", "ctrl_org2,3"}, lines)
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"group"},
				Records:   [][]string{{"DMSO"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, fullPath string) {
				content, err := os.ReadFile(fullPath)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
			},
		},
		{
			name:     "special characters are quoted",
			filePath: "test_quotes.csv",
			options: WriteOptions{
				Headers: []string{"group"},
				Records: [][]string{{"TAS120, 1uM"}},
			},
			validate: func(t *testing.T, fullPath string) {
				records := readCSV(t, fullPath)
				assert.Equal(t, "TAS120, 1uM", records[1][0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, writer.WriteCSV(tt.filePath, tt.options))
			tt.validate(t, filepath.Join(paths.DataDir, tt.filePath))
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteSimpleCSV("a.csv", []string{"h"}, [][]string{{"1"}}))
	require.NoError(t, writer.WriteCSV("a.csv", WriteOptions{Headers: []string{"h"}, Records: [][]string{{"2"}}, Append: true}))

	assert.Equal(t, [][]string{{"h"}, {"1"}, {"2"}}, readCSV(t, filepath.Join(paths.DataDir, "a.csv")))
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, paths := setupTestEnv(t)

	assert.Equal(t, filepath.Join(paths.DataDir, "x.csv"), writer.resolvePath("x.csv"))
	assert.Equal(t, paths.TidyCSVPath("cn"), writer.resolvePath(paths.TidyCSVPath("cn")))
	abs := filepath.Join(t.TempDir(), "y.csv")
	assert.Equal(t, abs, writer.resolvePath(abs))
}

func TestCSVWriter_WriteTidy(t *testing.T) {
	writer, paths := setupTestEnv(t)
	tidy := domain.TidyTable{Name: "cn", Rows: []domain.TidyRow{
		{Label: "b1_ctrl_3days_org1", Batch: "b1", Group: "ctrl", Timepoint: "3days", Organoid: 1, Value: 2},
		{Label: "ctrl", Group: "ctrl", Value: 0.25},
	}}

	require.NoError(t, writer.WriteTidy(tidy))

	records := readCSV(t, paths.TidyCSVPath("cn"))
	assert.Equal(t, TidyHeader, records[0])
	assert.Equal(t, []string{"b1_ctrl_3days_org1", "b1", "ctrl", "3days", "1", "2"}, records[1])
	assert.Equal(t, []string{"ctrl", "", "ctrl", "", "", "0.25"}, records[2])
}

func TestCSVWriter_WriteComparisons(t *testing.T) {
	writer, paths := setupTestEnv(t)
	path := filepath.Join(paths.StatisticsDir, "cn_tukey.csv")

	require.NoError(t, writer.WriteComparisons(path, []domain.PairwiseComparison{
		{GroupA: "DMSO", GroupB: "TMZ", MeanDiff: 3, PAdj: 0.01, Lower: 1, Upper: 5, Reject: true},
	}))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"DMSO", "TMZ", "3", "0.01", "1", "5", "true"}, records[1])
}

func TestCSVWriter_ErrorScenarios(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	writer := NewCSVWriter(&config.Paths{DataDir: filepath.Join(blocker, "data")}, quietLogger())

	err := writer.WriteSimpleCSV("a.csv", []string{"h"}, nil)
	assert.Error(t, err)
	_, err = writer.CreateStreamWriter("b.csv", nil)
	assert.Error(t, err)
}
