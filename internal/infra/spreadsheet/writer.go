package spreadsheet

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

const (
	ResultsSheet = "TOD Results"
	SummarySheet = "Summary"

	maxColumnWidth = 60
)

// Rating fill colours.
var ratingFill = map[controls.Rating]string{
	controls.RatingEffective:          "C6EFCE",
	controls.RatingPartiallyEffective: "FFEB9C",
	controls.RatingIneffective:        "FFC7CE",
	controls.RatingUnparsed:           "D9D9D9",
	controls.RatingNotAnalyzed:        "D9D9D9",
}

// outputColumn renders one report column from a control's analysis.
// rated columns get the fill of the dimension's rating.
type outputColumn struct {
	header string
	rated  controls.Dimension
	value  func(controls.ControlAnalysis) string
}

func answerOf(d controls.Dimension) func(controls.ControlAnalysis) string {
	return func(a controls.ControlAnalysis) string {
		r := a.Result(d)
		if !r.Rating.Assessed() || r.Answer == "" {
			return string(r.Rating)
		}
		return r.Answer
	}
}

func commentaryOf(d controls.Dimension) func(controls.ControlAnalysis) string {
	return func(a controls.ControlAnalysis) string { return a.Result(d).Commentary }
}

var outputColumns = []outputColumn{
	{controls.HeaderDocumented, "", commentaryOf(controls.DimensionCompleteness)},
	{controls.HeaderSuggestions, "", func(a controls.ControlAnalysis) string {
		return strings.Join(a.Result(controls.DimensionCompleteness).Suggestions, "\n")
	}},
	{controls.HeaderObjective, controls.DimensionControlObjective, answerOf(controls.DimensionControlObjective)},
	{controls.HeaderObjectiveExp, "", commentaryOf(controls.DimensionControlObjective)},
	{controls.HeaderExecution, controls.DimensionExecution, answerOf(controls.DimensionExecution)},
	{controls.HeaderExecutionExp, "", commentaryOf(controls.DimensionExecution)},
	{controls.HeaderTypeAdequacy, controls.DimensionTypeAdequacy, answerOf(controls.DimensionTypeAdequacy)},
	{controls.HeaderTypeAdequacyExp, "", commentaryOf(controls.DimensionTypeAdequacy)},
	{controls.HeaderFrequency, controls.DimensionFrequency, answerOf(controls.DimensionFrequency)},
	{controls.HeaderFrequencyExp, "", commentaryOf(controls.DimensionFrequency)},
	{controls.HeaderSystemDependency, controls.DimensionSystemDependency, answerOf(controls.DimensionSystemDependency)},
	{controls.HeaderSegregation, controls.DimensionSegregationOfDuties, answerOf(controls.DimensionSegregationOfDuties)},
	{controls.HeaderSegregationExp, "", commentaryOf(controls.DimensionSegregationOfDuties)},
	{controls.HeaderOverallRating, controls.DimensionOverallRating, answerOf(controls.DimensionOverallRating)},
	{controls.HeaderOverallRatingExp, "", commentaryOf(controls.DimensionOverallRating)},
	{controls.HeaderExpectedEvidence, controls.DimensionExpectedEvidence, commentaryOf(controls.DimensionExpectedEvidence)},
}

// OutputHeaders lists the report's output column headers in order.
func OutputHeaders() []string {
	out := make([]string, len(outputColumns))
	for i, c := range outputColumns {
		out[i] = c.header
	}
	return out
}

// DefaultOutputPath returns "<stem>_TestResult.xlsx" beside input.
func DefaultOutputPath(input string) string {
	dir := filepath.Dir(input)
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, stem+"_TestResult.xlsx")
}

// ReportWriter renders an AnalysisReport as a styled workbook.
type ReportWriter struct {
	logger *zap.Logger
}

func NewReportWriter(logger *zap.Logger) *ReportWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWriter{logger: logger}
}

// WriteFile saves the report to path.
func (w *ReportWriter) WriteFile(path string, report *controls.AnalysisReport) error {
	f, err := w.build(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	w.logger.Info("report saved", zap.String("path", path), zap.Int("controls", len(report.Controls)))
	return nil
}

// Write streams the report workbook to out.
func (w *ReportWriter) Write(out io.Writer, report *controls.AnalysisReport) error {
	f, err := w.build(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

type styles struct {
	base         int
	group        int
	header       int
	complete     int
	incomplete   int
	byRating     map[controls.Rating]int
	summaryLabel int
}

func newStyles(f *excelize.File) (*styles, error) {
	align := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	s := &styles{byRating: make(map[controls.Rating]int, len(ratingFill))}

	specs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.base, &excelize.Style{Alignment: align}},
		{&s.group, &excelize.Style{Alignment: align, Font: &excelize.Font{Bold: true, Size: 12}}},
		{&s.header, &excelize.Style{Alignment: align, Font: &excelize.Font{Bold: true}}},
		{&s.complete, &excelize.Style{Alignment: align, Font: &excelize.Font{Bold: true}}},
		{&s.incomplete, &excelize.Style{Alignment: align, Font: &excelize.Font{Bold: true, Color: "FF0000"}}},
		{&s.summaryLabel, &excelize.Style{Font: &excelize.Font{Bold: true}}},
	}
	for _, entry := range specs {
		id, err := f.NewStyle(entry.style)
		if err != nil {
			return nil, err
		}
		*entry.dst = id
	}
	for rating, color := range ratingFill {
		id, err := f.NewStyle(&excelize.Style{
			Alignment: align,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return nil, err
		}
		s.byRating[rating] = id
	}
	return s, nil
}

func (w *ReportWriter) build(report *controls.AnalysisReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		f.Close()
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("report styles: %w", err)
	}
	if err := writeResults(f, st, report); err != nil {
		f.Close()
		return nil, fmt.Errorf("results sheet: %w", err)
	}
	if err := writeSummary(f, st, report); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	return f, nil
}

// sheetWriter tracks the widest value per column while writing cells.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	widths map[int]int
}

func (s *sheetWriter) set(col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := s.f.SetCellValue(s.sheet, cell, value); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(fmt.Sprint(value)); n > s.widths[col] {
		s.widths[col] = n
	}
	if style > 0 {
		return s.f.SetCellStyle(s.sheet, cell, cell, style)
	}
	return nil
}

func (s *sheetWriter) applyWidths(columns int) error {
	for col := 1; col <= columns; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		width := s.widths[col] + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := s.f.SetColWidth(s.sheet, name, name, float64(width)); err != nil {
			return err
		}
	}
	return nil
}

func mergeRow(f *excelize.File, sheet string, row, fromCol, toCol int) error {
	from, err := excelize.CoordinatesToCellName(fromCol, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(toCol, row)
	if err != nil {
		return err
	}
	return f.MergeCell(sheet, from, to)
}

func writeResults(f *excelize.File, st *styles, report *controls.AnalysisReport) error {
	sw := &sheetWriter{f: f, sheet: ResultsSheet, widths: map[int]int{}}
	extra := extraHeaders(report)
	inputs := len(controls.RequiredColumns) + len(extra)
	total := inputs + len(outputColumns)

	if err := sw.set(1, 1, "INPUT COLUMNS", st.group); err != nil {
		return err
	}
	if err := sw.set(inputs+1, 1, "OUTPUT COLUMNS", st.group); err != nil {
		return err
	}
	if err := mergeRow(f, ResultsSheet, 1, 1, inputs); err != nil {
		return err
	}
	if err := mergeRow(f, ResultsSheet, 1, inputs+1, total); err != nil {
		return err
	}

	headers := append(append([]string{}, controls.RequiredColumns...), extra...)
	for i, h := range append(headers, OutputHeaders()...) {
		if err := sw.set(i+1, 2, h, st.header); err != nil {
			return err
		}
	}

	for i, a := range report.Controls {
		row := i + 3
		for col, v := range append(inputValues(a.Control), extraValues(a.Control, extra)...) {
			if err := sw.set(col+1, row, v, st.base); err != nil {
				return err
			}
		}
		for j, c := range outputColumns {
			if err := sw.set(inputs+j+1, row, c.value(a), cellStyle(st, c, a)); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(ResultsSheet, &excelize.Panes{Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return sw.applyWidths(total)
}

// extraHeaders collects the non-required input headers in first-seen order.
func extraHeaders(report *controls.AnalysisReport) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range report.Controls {
		for _, field := range a.Control.Extra {
			if !seen[field.Header] {
				seen[field.Header] = true
				out = append(out, field.Header)
			}
		}
	}
	return out
}

func extraValues(c controls.ControlRecord, headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		for _, field := range c.Extra {
			if field.Header == h {
				out[i] = field.Value
				break
			}
		}
	}
	return out
}

func cellStyle(st *styles, c outputColumn, a controls.ControlAnalysis) int {
	if c.header == controls.HeaderDocumented {
		r := a.Result(controls.DimensionCompleteness)
		if len(r.MissingElements) > 0 || !r.Rating.Assessed() {
			return st.incomplete
		}
		return st.complete
	}
	if c.rated == "" {
		return st.base
	}
	if id, ok := st.byRating[a.Result(c.rated).Rating]; ok {
		return id
	}
	return st.base
}

func writeSummary(f *excelize.File, st *styles, report *controls.AnalysisReport) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	sw := &sheetWriter{f: f, sheet: SummarySheet, widths: map[int]int{}}

	meta := [][2]string{
		{"Run ID", report.ID},
		{"Source", report.SourceName},
		{"Model", report.Model},
		{"Started", formatTime(report.StartedAt)},
		{"Finished", formatTime(report.FinishedAt)},
		{"Controls", fmt.Sprint(len(report.Controls))},
	}
	for i, kv := range meta {
		if err := sw.set(1, i+1, kv[0], st.summaryLabel); err != nil {
			return err
		}
		if err := sw.set(2, i+1, kv[1], 0); err != nil {
			return err
		}
	}

	headerRow := len(meta) + 2
	if err := sw.set(1, headerRow, "Dimension", st.header); err != nil {
		return err
	}
	for j, r := range controls.Ratings {
		if err := sw.set(j+2, headerRow, string(r), st.byRating[r]); err != nil {
			return err
		}
	}

	counts := report.Counts()
	for i, d := range controls.Dimensions {
		row := headerRow + i + 1
		if err := sw.set(1, row, d.Title(), st.summaryLabel); err != nil {
			return err
		}
		for j, r := range controls.Ratings {
			if err := sw.set(j+2, row, counts[d][r], st.base); err != nil {
				return err
			}
		}
	}
	return sw.applyWidths(len(controls.Ratings) + 1)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
