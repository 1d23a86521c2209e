package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/shared/testutil"
)

func newValidator() *FileValidator {
	return NewFileValidator(testutil.QuietLogger())
}

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T) string
		pattern   string
		wantCount int
		wantErr   error
	}{
		{
			name: "matching exports",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				testutil.WriteDistances(t, filepath.Join(dir, "run", "ctrl_org1_Distance.csv"), 1)
				testutil.WriteDistances(t, filepath.Join(dir, "run", "ctrl_org2_Distance.csv"), 2)
				return dir
			},
			pattern:   "*/*_Distance.csv",
			wantCount: 2,
		},
		{
			name:    "no matches is not an error",
			setup:   func(t *testing.T) string { return t.TempDir() },
			pattern: "*/*_Distance.csv",
		},
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent")
			},
			wantErr: apperrors.ErrValidation,
		},
		{
			name: "path is a file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "file.csv")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "bad pattern",
			setup:   func(t *testing.T) string { return t.TempDir() },
			pattern: "[",
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := newValidator().ValidateInputDirectory(tt.setup(t), tt.pattern)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, n)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, newValidator().ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	err := newValidator().ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func writeWorkbook(t *testing.T, path string, sheets ...string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheets[0]))
	for _, s := range sheets[1:] {
		_, err := f.NewSheet(s)
		require.NoError(t, err)
	}
	require.NoError(t, f.SaveAs(path))
}

func TestFileValidator_ValidateExcelFile(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "cn.xlsx")
	writeWorkbook(t, book, "cn", "cn_tidy")

	csv := filepath.Join(dir, "cn.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a,b\n"), 0644))
	lock := filepath.Join(dir, "~$cn.xlsx")
	require.NoError(t, os.WriteFile(lock, []byte("lock"), 0644))
	broken := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0644))

	tests := []struct {
		name    string
		path    string
		sheet   string
		wantErr error
	}{
		{name: "sheet present", path: book, sheet: "cn_tidy"},
		{name: "any sheet", path: book},
		{name: "missing sheet", path: book, sheet: "inv_tidy", wantErr: apperrors.ErrValidation},
		{name: "missing file", path: filepath.Join(dir, "nope.xlsx"), wantErr: apperrors.ErrValidation},
		{name: "directory", path: dir, wantErr: apperrors.ErrValidation},
		{name: "wrong extension", path: csv, wantErr: apperrors.ErrValidation},
		{name: "lock file", path: lock, wantErr: apperrors.ErrValidation},
		{name: "corrupt workbook", path: broken, wantErr: apperrors.ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidator().ValidateExcelFile(tt.path, tt.sheet)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileValidator_FirstWorkbook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$a_cn.xlsx"), []byte("lock"), 0644))
	writeWorkbook(t, filepath.Join(dir, "b_cn.xlsx"), "cn")

	path, err := newValidator().FirstWorkbook(filepath.Join(dir, "*cn.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b_cn.xlsx"), path)

	_, err = newValidator().FirstWorkbook(filepath.Join(dir, "*inv.xlsx"))
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestIsTemporaryWorkbook(t *testing.T) {
	assert.True(t, IsTemporaryWorkbook("/x/~$cn.xlsx"))
	assert.False(t, IsTemporaryWorkbook("/x/cn.xlsx"))
}
