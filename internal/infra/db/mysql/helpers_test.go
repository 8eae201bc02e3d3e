package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

func TestStringOrDash(t *testing.T) {
	require.Equal(t, "-", stringOrDash(""))
	require.Equal(t, "-", stringOrDash("  \t"))
	require.Equal(t, "C001", stringOrDash("C001"))
}

func TestValidJSON(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "{}"},
		{"object", `{"a":1}`, `{"a":1}`},
		{"plain text", "boom", `{"raw":"boom"}`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, validJSON(testCase.input))
		})
	}
}

func TestResultDetails(t *testing.T) {
	details := resultDetails(controls.DimensionResult{
		MissingElements: []string{"When"},
		Items:           []string{"SAP"},
	})
	require.JSONEq(t, `{"missing":["When"],"items":["SAP"]}`, details)
	require.Equal(t, "{}", resultDetails(controls.DimensionResult{}))
}

func TestPageOffset(t *testing.T) {
	limit, offset := pageOffset(0, 0)
	require.Equal(t, 20, limit)
	require.Equal(t, 0, offset)

	limit, offset = pageOffset(3, 10)
	require.Equal(t, 10, limit)
	require.Equal(t, 20, offset)

	limit, _ = pageOffset(1, 1000)
	require.Equal(t, 100, limit)
}
