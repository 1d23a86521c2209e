package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFiles(t *testing.T, root string, names []string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
}

func TestFindFilesByPattern(t *testing.T) {
	root := t.TempDir()
	createFiles(t, root, []string{
		"DMSO_Imaris/b_org2_Distance.csv",
		"DMSO_Imaris/a_org1_Distance.csv",
		"DMSO_Imaris/a_org1_Position.csv",
		"TMZ_Imaris/c_org1_Distance.csv",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir_Distance.csv"), 0755))

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "nested pattern sorted by path",
			pattern: "*/*_Distance.csv",
			want: []string{
				"DMSO_Imaris/a_org1_Distance.csv",
				"DMSO_Imaris/b_org2_Distance.csv",
				"TMZ_Imaris/c_org1_Distance.csv",
			},
		},
		{
			name:    "directories are ignored",
			pattern: "*_Distance.csv",
			want:    nil,
		},
		{
			name:    "no match",
			pattern: "*/*.xlsx",
			want:    nil,
		},
	}

	d := NewDiscovery(root)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := d.FindFilesByPattern(tt.pattern)
			require.NoError(t, err)

			var got []string
			for _, f := range found {
				rel, err := filepath.Rel(root, f.Path)
				require.NoError(t, err)
				got = append(got, filepath.ToSlash(rel))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindFilesByPattern_Absolute(t *testing.T) {
	root := t.TempDir()
	createFiles(t, root, []string{"x_org1.csv"})

	found, err := NewDiscovery("/elsewhere").FindFilesByPattern(filepath.Join(root, "*.csv"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "x_org1.csv", found[0].Name)
}

func TestFindFilesByPattern_BadPattern(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindFilesByPattern("[")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	root := t.TempDir()
	createFiles(t, root, []string{
		"run/g_org1_Distance.csv",
		"run/g_org1_vol_Distance.csv",
	})

	kept, skipped, err := NewDiscovery(root).Match("run/*.csv", []string{"vol"})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, "g_org1_Distance.csv", kept[0].Name)
	assert.Equal(t, "g_org1_vol_Distance.csv", skipped[0].Name)
	assert.Equal(t, filepath.Join("run", "g_org1_Distance.csv"), kept[0].RelPath)
}

func TestMatch_ExcludeIgnoresBase(t *testing.T) {
	root := filepath.Join(t.TempDir(), "involution")
	createFiles(t, root, []string{"g_org1_Distance.csv"})

	kept, skipped, err := NewDiscovery(root).Match("*.csv", []string{"vol"})
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	assert.Empty(t, skipped)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("a_vol_b", []string{"x", "vol"}))
	assert.False(t, ContainsAny("a_b", []string{"vol"}))
	assert.False(t, ContainsAny("a_b", []string{""}))
	assert.False(t, ContainsAny("a_b", nil))
}
