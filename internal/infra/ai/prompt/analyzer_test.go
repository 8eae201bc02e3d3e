package prompt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
	"github.com/bryanwahyu/automaton-tod/internal/infra/ai/prompt"
)

var sampleControl = controls.ControlRecord{
	Row:                2,
	RiskID:             "R001",
	RiskDescription:    "Unauthorized access to financial data",
	ControlID:          "C001",
	ControlDescription: "The IT Security Manager reviews SAP user access monthly",
	AutomationLevel:    "Manual",
	ControlType:        "Detective",
	Frequency:          "Monthly",
}

func TestBuildEmbedsRowFields(t *testing.T) {
	testCases := []struct {
		dimension controls.Dimension
		contains  []string
	}{
		{controls.DimensionCompleteness, []string{"When, Why, Who, What, Where, How", `"""The IT Security Manager reviews SAP user access monthly"""`}},
		{controls.DimensionControlObjective, []string{"Unauthorized access to financial data", "(Yes/No)"}},
		{controls.DimensionExecution, []string{"Automation: Manual"}},
		{controls.DimensionTypeAdequacy, []string{"Type: Detective"}},
		{controls.DimensionFrequency, []string{"Frequency: Monthly"}},
		{controls.DimensionSystemDependency, []string{`"None found"`, `"systems"`}},
		{controls.DimensionSegregationOfDuties, []string{"segregation of duties"}},
		{controls.DimensionExpectedEvidence, []string{"numbered point"}},
	}

	for _, testCase := range testCases {
		t.Run(string(testCase.dimension), func(t *testing.T) {
			req, err := prompt.Build(testCase.dimension, sampleControl, nil)
			require.NoError(t, err)
			require.Equal(t, prompt.GetSystemPrompt(testCase.dimension), req.System)
			for _, fragment := range testCase.contains {
				require.Contains(t, req.User, fragment)
			}
		})
	}
}

func TestBuildOverallUsesPriorAnswers(t *testing.T) {
	prior := map[controls.Dimension]controls.DimensionResult{
		controls.DimensionCompleteness: {
			Rating:          controls.RatingPartiallyEffective,
			Present:         []string{"Who: IT Security Manager"},
			MissingElements: []string{"Where", "How"},
		},
		controls.DimensionControlObjective: {Rating: controls.RatingEffective, Answer: "Yes", Commentary: "Review catches stale access."},
		controls.DimensionExecution:        {Rating: controls.RatingNotAnalyzed},
		controls.DimensionSystemDependency: {Rating: controls.RatingEffective, Answer: "SAP"},
	}

	req, err := prompt.Build(controls.DimensionOverallRating, sampleControl, prior)
	require.NoError(t, err)
	require.Contains(t, req.User, "- Control objective: Yes (Review catches stale access.)")
	require.Contains(t, req.User, "- Execution appropriateness: Not available")
	require.Contains(t, req.User, "- Type adequacy: Not available")
	require.Contains(t, req.User, "- System/data dependencies: SAP")
	require.Contains(t, req.User, "- Present: Who: IT Security Manager")
	require.Contains(t, req.User, "- Missing: Where, How")
}

func TestSystemPromptByDimension(t *testing.T) {
	require.Contains(t, prompt.GetSystemPrompt(controls.DimensionExpectedEvidence), "numbered list")
	require.Contains(t, prompt.GetSystemPrompt(controls.DimensionCompleteness), "valid JSON")
}

func TestBuildUnknownDimension(t *testing.T) {
	_, err := prompt.Build(controls.Dimension("bogus"), sampleControl, nil)
	require.Error(t, err)
}
