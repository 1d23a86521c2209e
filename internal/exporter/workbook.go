package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "organoidcli/internal/errors"
	"organoidcli/internal/tables"
	"organoidcli/pkg/contracts/domain"
)

// Sheet suffixes of a family workbook.
const (
	SuffixTidy        = "_tidy"
	SuffixByGroup     = "_bygroup"
	SuffixByGroupTidy = "_bygroup_tidy"
)

// Sheet is one worksheet: a header row and data rows. A nil cell is left
// blank.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// Family is everything exported for one metric family.
type Family struct {
	Name   string
	Sheets []Sheet
	// Tidy tables are written to CSV, one file each, when tidy export is
	// enabled.
	Tidy []domain.TidyTable
}

// WideSheet lays a wide table out column by column. Shorter columns are
// padded with blanks.
func WideSheet[K domain.ColumnKey](name string, t *domain.WideTable[K]) Sheet {
	cols := t.Columns()
	s := Sheet{Name: name, Header: make([]string, len(cols))}
	for i, c := range cols {
		s.Header[i] = c.Key.String()
	}
	for r := 0; r < t.Height(); r++ {
		row := make([]interface{}, len(cols))
		for i, c := range cols {
			if r < c.Len() {
				row[i] = cellValue(c.Values[r])
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// cellValue blanks values a spreadsheet cannot hold.
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// TidySheet lays a tidy table out with explicit identity columns.
func TidySheet(name string, t domain.TidyTable) Sheet {
	s := Sheet{Name: name, Header: TidyHeader, Rows: make([][]interface{}, 0, t.Len())}
	for _, r := range t.Rows {
		var org interface{}
		if r.Organoid != 0 {
			org = r.Organoid
		}
		s.Rows = append(s.Rows, []interface{}{r.Label, r.Batch, r.Group, r.Timepoint, org, cellValue(r.Value)})
	}
	return s
}

// NewFamily builds the four sheets of a family: raw, tidy, bygroup and
// bygroup_tidy.
func NewFamily[K domain.ColumnKey](v *tables.Views[K]) Family {
	name := v.Name()
	return Family{
		Name: name,
		Sheets: []Sheet{
			WideSheet(name, v.Wide),
			TidySheet(name+SuffixTidy, v.Tidy),
			WideSheet(name+SuffixByGroup, v.ByGroup),
			TidySheet(name+SuffixByGroupTidy, v.ByGroupTidy),
		},
		Tidy: []domain.TidyTable{v.Tidy},
	}
}

// NewRawFamily builds only the raw and tidy sheets, for tables whose
// columns cannot be pooled by group.
func NewRawFamily[K domain.ColumnKey](t *domain.WideTable[K]) Family {
	tidy := tables.BuildTidy(t)
	return Family{
		Name:   t.Name(),
		Sheets: []Sheet{WideSheet(t.Name(), t), TidySheet(t.Name()+SuffixTidy, tidy)},
		Tidy:   []domain.TidyTable{tidy},
	}
}

// Bundle puts several families into one workbook under a new name. Each
// part keeps its own tidy CSV.
func Bundle(name string, parts ...Family) Family {
	out := Family{Name: name}
	for _, p := range parts {
		out.Sheets = append(out.Sheets, p.Sheets...)
		out.Tidy = append(out.Tidy, p.Tidy...)
	}
	return out
}

// WorkbookWriter writes multi-sheet xlsx files.
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a writer. A nil logger uses the global one.
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger}
}

// Write saves sheets to path in order, replacing any existing file.
func (w *WorkbookWriter) Write(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return storageError(path, "workbook has no sheets", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return storageError(path, "failed to create directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, s.Name); err != nil {
				return storageError(path, "invalid sheet name", err).WithContext("sheet", s.Name)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return storageError(path, "invalid sheet name", err).WithContext("sheet", s.Name)
		}
		if err := writeSheet(f, s); err != nil {
			return storageError(path, "failed to write sheet", err).WithContext("sheet", s.Name)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return storageError(path, "failed to save workbook", err)
	}
	w.logger.Debug("Wrote workbook",
		slog.String("path", path),
		slog.Int("sheets", len(sheets)))
	return nil
}

func writeSheet(f *excelize.File, s Sheet) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}
	header := make([]interface{}, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// ReadTidySheet loads a tidy sheet written by TidySheet. Columns are found
// by header name, so extra columns are ignored.
func ReadTidySheet(path, sheet string) (domain.TidyTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.TidyTable{}, storageError(path, "failed to open workbook", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.TidyTable{}, storageError(path, "failed to read sheet", err).WithContext("sheet", sheet)
	}
	if len(rows) == 0 {
		return domain.TidyTable{}, storageError(path, "sheet is empty", nil).WithContext("sheet", sheet)
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, h := range []string{"label", "group", "value"} {
		if _, ok := idx[h]; !ok {
			return domain.TidyTable{}, storageError(path, "tidy sheet lacks column "+h, nil).WithContext("sheet", sheet)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := domain.TidyTable{Name: strings.TrimSuffix(sheet, SuffixTidy)}
	for n, row := range rows[1:] {
		raw := cell(row, "value")
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.TidyTable{}, storageError(path, fmt.Sprintf("non-numeric value on row %d", n+2), err).
				WithContext("sheet", sheet)
		}
		r := domain.TidyRow{
			Label:     cell(row, "label"),
			Batch:     cell(row, "batch"),
			Group:     cell(row, "group"),
			Timepoint: cell(row, "timepoint"),
			Value:     v,
		}
		if s := cell(row, "organoid"); s != "" {
			if r.Organoid, err = strconv.Atoi(s); err != nil {
				return domain.TidyTable{}, storageError(path, fmt.Sprintf("invalid organoid index on row %d", n+2), err).
					WithContext("sheet", sheet)
			}
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

func storageError(path, message string, cause error) *apperrors.AppError {
	return apperrors.NewStorageError(message, cause).WithContext("path", path)
}
