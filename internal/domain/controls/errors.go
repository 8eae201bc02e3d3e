package controls

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrUnparsed marks a model reply that could not be mapped onto the rating vocabulary.
	ErrUnparsed = errors.New("response unparsed")
	// ErrNotAnalyzed marks a dimension whose LLM call failed after retries.
	ErrNotAnalyzed = errors.New("dimension not analyzed")
	// ErrNoControls is returned when the input sheet has a header but no data rows.
	ErrNoControls = errors.New("no controls found in input")
)

// ValidationError reports required columns absent from the input header row.
type ValidationError struct {
	Sheet   string
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required columns in sheet " + strconv.Quote(e.Sheet) + ": " + strings.Join(e.Missing, ", ")
}

func itoa(n int) string { return strconv.Itoa(n) }
