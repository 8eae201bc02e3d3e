package controls

import "time"

// ControlRecord is one row of the input workbook. Values are copied on load and never mutated.
type ControlRecord struct {
	Row                int    `json:"row"`
	RiskID             string `json:"risk_id"`
	RiskDescription    string `json:"risk_description"`
	ControlID          string `json:"control_id"`
	ControlDescription string `json:"control_description"`
	AutomationLevel    string `json:"automation_level"`
	ControlType        string `json:"control_type"`
	Frequency          string `json:"frequency"`
	// Extra holds the sheet's other columns in sheet order. They are carried into the report untouched.
	Extra []Field `json:"extra,omitempty"`
}

// Field is one cell of a column outside RequiredColumns.
type Field struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// Label is the identifier used in logs, falling back to the sheet row.
func (c ControlRecord) Label() string {
	if c.ControlID != "" {
		return c.ControlID
	}
	return "row-" + itoa(c.Row)
}

// Dimension enum
type Dimension string

const (
	DimensionCompleteness        Dimension = "completeness"
	DimensionControlObjective    Dimension = "control_objective"
	DimensionExecution           Dimension = "execution"
	DimensionTypeAdequacy        Dimension = "type_adequacy"
	DimensionFrequency           Dimension = "frequency"
	DimensionSystemDependency    Dimension = "system_dependency"
	DimensionSegregationOfDuties Dimension = "segregation_of_duties"
	DimensionOverallRating       Dimension = "overall_rating"
	DimensionExpectedEvidence    Dimension = "expected_evidence"
)

// Dimensions lists every analysis dimension in evaluation order.
// DimensionOverallRating depends on the answers of the dimensions before it.
var Dimensions = []Dimension{
	DimensionCompleteness,
	DimensionControlObjective,
	DimensionExecution,
	DimensionTypeAdequacy,
	DimensionFrequency,
	DimensionSystemDependency,
	DimensionSegregationOfDuties,
	DimensionOverallRating,
	DimensionExpectedEvidence,
}

// Title is the short human label of a dimension.
func (d Dimension) Title() string {
	switch d {
	case DimensionCompleteness:
		return "Completeness (6W)"
	case DimensionControlObjective:
		return "Control Objective"
	case DimensionExecution:
		return "Execution"
	case DimensionTypeAdequacy:
		return "Type Adequacy"
	case DimensionFrequency:
		return "Frequency"
	case DimensionSystemDependency:
		return "System Dependencies"
	case DimensionSegregationOfDuties:
		return "Segregation of Duties"
	case DimensionOverallRating:
		return "Overall Rating"
	case DimensionExpectedEvidence:
		return "Expected Evidence"
	}
	return string(d)
}

// Rating enum
type Rating string

const (
	RatingEffective          Rating = "Effective"
	RatingPartiallyEffective Rating = "Partially Effective"
	RatingIneffective        Rating = "Ineffective"
	RatingUnparsed           Rating = "Unparsed"
	RatingNotAnalyzed        Rating = "Not analyzed"
)

// Ratings lists the full vocabulary, assessed values first.
var Ratings = []Rating{
	RatingEffective,
	RatingPartiallyEffective,
	RatingIneffective,
	RatingUnparsed,
	RatingNotAnalyzed,
}

// Assessed is false for the Unparsed and Not analyzed sentinels.
func (r Rating) Assessed() bool {
	return r == RatingEffective || r == RatingPartiallyEffective || r == RatingIneffective
}

// SixW elements in the order they are reported.
var SixW = []string{"When", "Why", "Who", "What", "Where", "How"}

// DimensionResult holds the parsed outcome of one dimension for one control.
type DimensionResult struct {
	Dimension       Dimension `json:"dimension"`
	Rating          Rating    `json:"rating"`
	Answer          string    `json:"answer,omitempty"` // verbatim model answer, e.g. "Yes"
	Commentary      string    `json:"commentary"`
	MissingElements []string  `json:"missing_elements,omitempty"`
	Present         []string  `json:"present,omitempty"`     // completeness: "Who: the IT manager"
	Suggestions     []string  `json:"suggestions,omitempty"` // completeness: "When: add a frequency"
	Items           []string  `json:"items,omitempty"`       // systems or evidence list
	Raw             string    `json:"raw,omitempty"`
}

// Err maps the sentinel ratings to their errors; nil for assessed results.
func (r DimensionResult) Err() error {
	switch r.Rating {
	case RatingUnparsed:
		return ErrUnparsed
	case RatingNotAnalyzed:
		return ErrNotAnalyzed
	}
	return nil
}

// NotAnalyzed builds the placeholder for a dimension whose LLM call failed.
func NotAnalyzed(d Dimension, cause error) DimensionResult {
	msg := "LLM call failed"
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return DimensionResult{Dimension: d, Rating: RatingNotAnalyzed, Commentary: msg}
}

// ControlAnalysis pairs a control with its per-dimension results.
type ControlAnalysis struct {
	Control ControlRecord                 `json:"control"`
	Results map[Dimension]DimensionResult `json:"results"`
}

// Result returns the result for d, or a Not analyzed placeholder when absent.
func (a ControlAnalysis) Result(d Dimension) DimensionResult {
	if r, ok := a.Results[d]; ok {
		return r
	}
	return NotAnalyzed(d, nil)
}

// Complete reports whether all dimensions have a slot.
func (a ControlAnalysis) Complete() bool {
	for _, d := range Dimensions {
		if _, ok := a.Results[d]; !ok {
			return false
		}
	}
	return true
}

// FailedDimensions returns the dimensions rated Not analyzed.
func (a ControlAnalysis) FailedDimensions() []Dimension {
	var out []Dimension
	for _, d := range Dimensions {
		if a.Result(d).Rating == RatingNotAnalyzed {
			out = append(out, d)
		}
	}
	return out
}

// AnalysisReport is the ordered output of one batch.
type AnalysisReport struct {
	ID         string            `json:"id"`
	SourceName string            `json:"source_name"`
	Model      string            `json:"model,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Controls   []ControlAnalysis `json:"controls"`
}

// Add appends one control's analysis, preserving input order.
func (r *AnalysisReport) Add(a ControlAnalysis) {
	r.Controls = append(r.Controls, a)
}

// RatingCounts tallies ratings per dimension.
type RatingCounts map[Dimension]map[Rating]int

// Counts tallies ratings across the report.
func (r *AnalysisReport) Counts() RatingCounts {
	out := make(RatingCounts, len(Dimensions))
	for _, d := range Dimensions {
		out[d] = make(map[Rating]int, len(Ratings))
	}
	for _, c := range r.Controls {
		for _, d := range Dimensions {
			out[d][c.Result(d).Rating]++
		}
	}
	return out
}

// Overall returns the overall rating counts, the headline of a run.
func (rc RatingCounts) Overall() map[Rating]int {
	return rc[DimensionOverallRating]
}

// NotAnalyzed counts Not analyzed slots over all dimensions.
func (rc RatingCounts) NotAnalyzed() int {
	n := 0
	for _, byRating := range rc {
		n += byRating[RatingNotAnalyzed]
	}
	return n
}
