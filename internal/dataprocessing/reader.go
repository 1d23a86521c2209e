package dataprocessing

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "organoidcli/internal/errors"
)

// ReaderOptions describes the delimited measurement export layout.
type ReaderOptions struct {
	// HeaderSkip is the number of preamble lines before the header row.
	HeaderSkip int
	Delimiter  rune
}

// ColumnSelector picks a column by header name or by 1-based position.
type ColumnSelector struct {
	Name     string
	Position int
}

// ParseColumnSelector reads "#3" as the third column and anything else as
// a header name.
func ParseColumnSelector(s string) ColumnSelector {
	if rest, ok := strings.CutPrefix(s, "#"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return ColumnSelector{Position: n}
		}
	}
	return ColumnSelector{Name: strings.TrimSpace(s)}
}

func (c ColumnSelector) String() string {
	if c.Position > 0 {
		return fmt.Sprintf("#%d", c.Position)
	}
	return c.Name
}

// MeasurementFile is one parsed export: a header and its data rows.
type MeasurementFile struct {
	Path   string
	Header []string
	Rows   [][]string
}

// ReadMeasurementFile opens, parses and closes one export.
func ReadMeasurementFile(path string, opts ReaderOptions) (*MeasurementFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewExtractionError(path, "failed to open file", err)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	for i := 0; i < opts.HeaderSkip; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, apperrors.NewExtractionError(path, "file ends inside the preamble", err)
		}
	}

	reader := csv.NewReader(br)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewExtractionError(path, "failed to read header row", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	mf := &MeasurementFile{Path: path, Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewExtractionError(path, "failed to read row", err)
		}
		if isBlank(record) {
			continue
		}
		mf.Rows = append(mf.Rows, record)
	}

	if len(mf.Rows) == 0 {
		return nil, apperrors.NewExtractionError(path, "file has no data rows", nil)
	}
	return mf, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// columnIndex resolves a selector against the header.
func (m *MeasurementFile) columnIndex(sel ColumnSelector) (int, error) {
	if sel.Position > 0 {
		if sel.Position > len(m.Header) {
			return 0, apperrors.NewExtractionError(m.Path, "column position out of range", nil).
				WithContext("column", sel.String())
		}
		return sel.Position - 1, nil
	}
	for i, h := range m.Header {
		if h == sel.Name {
			return i, nil
		}
	}
	return 0, apperrors.NewExtractionError(m.Path, "target column not found", nil).
		WithContext("column", sel.Name)
}

// Column returns one column as floats. Empty cells are NaN; a cell that is
// present but not numeric is an error. A column with no numeric value at
// all has zero usable rows and is also an error.
func (m *MeasurementFile) Column(sel ColumnSelector) ([]float64, error) {
	idx, err := m.columnIndex(sel)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(m.Rows))
	usable := 0
	for i, row := range m.Rows {
		if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		if err != nil {
			return nil, apperrors.NewExtractionError(m.Path, "non-numeric cell", err).
				WithContext("column", sel.String()).
				WithContext("row", i+1)
		}
		values[i] = v
		usable++
	}

	if usable == 0 {
		return nil, apperrors.NewExtractionError(m.Path, "column has no usable rows", nil).
			WithContext("column", sel.String())
	}
	return values, nil
}
