package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

// Loader reads control rows from an xlsx workbook. Sheet defaults to the first sheet.
type Loader struct {
	Sheet string
}

// LoadFile opens path and reads its controls.
func (l Loader) LoadFile(path string) ([]controls.ControlRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	return l.read(f)
}

// Load reads controls from an xlsx stream, e.g. an uploaded file.
func (l Loader) Load(r io.Reader) ([]controls.ControlRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return l.read(f)
}

func (l Loader) read(f *excelize.File) ([]controls.ControlRecord, error) {
	sheet := l.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	index, err := columnIndex(sheet, header)
	if err != nil {
		return nil, err
	}
	extra := extraColumns(header, index)

	var out []controls.ControlRecord
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		get := func(column string) string {
			pos := index[column]
			if pos >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[pos])
		}
		out = append(out, controls.ControlRecord{
			Row:                i + 2,
			RiskID:             get(controls.ColumnRisk),
			RiskDescription:    get(controls.ColumnRiskDescription),
			ControlID:          get(controls.ColumnControl),
			ControlDescription: get(controls.ColumnControlDescription),
			AutomationLevel:    get(controls.ColumnAutomation),
			ControlType:        get(controls.ColumnControlType),
			Frequency:          get(controls.ColumnFrequency),
			Extra:              extraFields(row, header, extra),
		})
	}
	if len(out) == 0 {
		return nil, controls.ErrNoControls
	}
	return out, nil
}

// columnIndex maps each required column to its position, or reports the missing ones.
func columnIndex(sheet string, header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := positions[key]; !seen && key != "" {
			positions[key] = i
		}
	}

	index := make(map[string]int, len(controls.RequiredColumns))
	var missing []string
	for _, column := range controls.RequiredColumns {
		pos, ok := positions[normalizeHeader(column)]
		if !ok {
			missing = append(missing, column)
			continue
		}
		index[column] = pos
	}
	if len(missing) > 0 {
		return nil, &controls.ValidationError{Sheet: sheet, Missing: missing}
	}
	return index, nil
}

// extraColumns lists the positions of named header cells that no required column uses.
func extraColumns(header []string, index map[string]int) []int {
	used := make(map[int]bool, len(index))
	for _, pos := range index {
		used[pos] = true
	}
	var out []int
	for i, h := range header {
		if !used[i] && strings.TrimSpace(h) != "" {
			out = append(out, i)
		}
	}
	return out
}

func extraFields(row, header []string, positions []int) []controls.Field {
	if len(positions) == 0 {
		return nil
	}
	out := make([]controls.Field, len(positions))
	for i, pos := range positions {
		out[i].Header = strings.TrimSpace(header[pos])
		if pos < len(row) {
			out[i].Value = strings.TrimSpace(row[pos])
		}
	}
	return out
}

// normalizeHeader lowercases and drops all whitespace, so "Detective/Preventive" matches "Detective/ Preventive".
func normalizeHeader(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
