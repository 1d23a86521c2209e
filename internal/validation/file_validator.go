package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/files"
	"organoidcli/internal/infrastructure"
)

// FileValidator checks input and output locations before a run touches
// them, so a missing directory fails fast instead of surfacing as an empty
// extraction.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	return &FileValidator{
		logger: infrastructure.WithComponent(logger, "validation"),
	}
}

// ValidateInputDirectory checks that dir is an existing directory and
// returns how many files below it match pattern. No matches is not an
// error here; it is only logged.
func (v *FileValidator) ValidateInputDirectory(dir, pattern string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return 0, apperrors.NewValidationError("input directory does not exist").WithContext("directory", dir)
	}
	if err != nil {
		return 0, apperrors.NewStorageError("failed to stat input directory", err).WithContext("directory", dir)
	}
	if !info.IsDir() {
		return 0, apperrors.NewValidationError("input path is not a directory").WithContext("path", dir)
	}
	if pattern == "" {
		return 0, nil
	}

	found, err := files.NewDiscovery(dir).FindFilesByPattern(pattern)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid file pattern").
			WithContext("pattern", pattern).
			WithContext("error", err.Error())
	}
	if len(found) == 0 {
		v.logger.Warn("No files matching pattern found",
			slog.String("directory", dir),
			slog.String("pattern", pattern))
		return 0, nil
	}

	v.logger.Debug("Input directory validated",
		slog.String("directory", dir),
		slog.String("pattern", pattern),
		slog.Int("files_found", len(found)))
	return len(found), nil
}

// ValidateOutputDirectory creates dir if needed and verifies it is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err).WithContext("directory", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return apperrors.NewStorageError("output directory is not writable", err).WithContext("directory", dir)
	}
	f.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks that path is an existing, readable regular file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewValidationError("file does not exist").WithContext("path", path)
	}
	if err != nil {
		return apperrors.NewStorageError("failed to stat file", err).WithContext("path", path)
	}
	if info.IsDir() {
		return apperrors.NewValidationError("path is a directory, not a file").WithContext("path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewStorageError("file is not readable", err).WithContext("path", path)
	}
	f.Close()
	return nil
}

// IsTemporaryWorkbook reports whether path is an editor lock file such as
// "~$cn.xlsx".
func IsTemporaryWorkbook(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "~$")
}

// ValidateExcelFile checks that path is a workbook that opens and, when
// sheet is not empty, contains that sheet.
func (v *FileValidator) ValidateExcelFile(path, sheet string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return apperrors.NewValidationError("file is not an Excel workbook").
			WithContext("path", path).
			WithContext("extension", ext)
	}
	if IsTemporaryWorkbook(path) {
		return apperrors.NewValidationError("file is a temporary Excel file").WithContext("path", path)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return apperrors.NewStorageError("failed to open workbook", err).WithContext("path", path)
	}
	defer wb.Close()

	if sheet != "" {
		if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
			return apperrors.NewValidationError("workbook has no such sheet").
				WithContext("path", path).
				WithContext("sheet", sheet).
				WithContext("sheets", strings.Join(wb.GetSheetList(), ","))
		}
	}
	return nil
}

// FirstWorkbook returns the first match of pattern that is not a
// temporary workbook.
func (v *FileValidator) FirstWorkbook(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", apperrors.NewValidationError("invalid workbook pattern").WithContext("pattern", pattern)
	}
	for _, m := range matches {
		if IsTemporaryWorkbook(m) {
			v.logger.Debug("Skipping temporary workbook", slog.String("path", m))
			continue
		}
		return m, nil
	}
	return "", apperrors.NewStorageError("workbook not found", nil).WithContext("pattern", pattern)
}
