package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"organoidcli/internal/config"
)

// ExportPreamble is the two-line banner measurement exports start with.
const ExportPreamble = " \n==================== \n"

// WriteExport writes a measurement export: the preamble, a header row and
// the given data rows, comma separated. Parent directories are created.
func WriteExport(t *testing.T, path string, header []string, rows ...[]string) {
	t.Helper()
	var b strings.Builder
	b.WriteString(ExportPreamble)
	b.WriteString(strings.Join(header, ",") + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ",") + "\n")
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

// DistanceHeader is the header of a distance-to-surface export.
var DistanceHeader = []string{config.ColumnDistance, "Unit", "Category", "ID"}

// DistanceRows formats values as distance export rows.
func DistanceRows(values ...float64) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{fmt.Sprint(v), "um", "Spot", fmt.Sprint(i)}
	}
	return rows
}

// WriteDistances writes a distance export holding values.
func WriteDistances(t *testing.T, path string, values ...float64) {
	t.Helper()
	WriteExport(t, path, DistanceHeader, DistanceRows(values...)...)
}
