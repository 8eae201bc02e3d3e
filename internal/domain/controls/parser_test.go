package controls_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

const completenessReply = `json
{
  "present": {"who": "IT Security Manager", "What": "reviews user access", "When": "monthly"},
  "missing": {"Where": "no system named", "Why": "objective not stated"},
  "suggestions": {"Where": "name the SAP instance", "Why": "state the access risk"}
}`

func TestParseResponseCompleteness(t *testing.T) {
	res := controls.ParseResponse(controls.DimensionCompleteness, completenessReply)

	require.Equal(t, controls.RatingPartiallyEffective, res.Rating)
	require.Equal(t, []string{"Why", "Where"}, res.MissingElements)
	require.Equal(t, []string{"When: monthly", "Who: IT Security Manager", "What: reviews user access"}, res.Present)
	require.Equal(t, []string{"Why: state the access risk", "Where: name the SAP instance"}, res.Suggestions)
	require.Contains(t, res.Commentary, "Missing:\n• Why: objective not stated")
	require.NoError(t, res.Err())
}

func TestParseResponseCompletenessRatingBands(t *testing.T) {
	testCases := []struct {
		name     string
		reply    string
		expected controls.Rating
	}{
		{
			name:     "nothing_missing",
			reply:    `{"present": {"Who": "a", "What": "b", "When": "c", "Where": "d", "Why": "e", "How": "f"}, "missing": {}}`,
			expected: controls.RatingEffective,
		},
		{
			name:     "missing_as_array",
			reply:    `{"present": {"Who": "a"}, "missing": ["When", "Where", "Why", "How", "What"]}`,
			expected: controls.RatingIneffective,
		},
		{
			name:     "fenced_block",
			reply:    "```json\n{\"present\": {\"Who\": \"a\"}, \"missing\": {\"How\": \"x\"}}\n```",
			expected: controls.RatingPartiallyEffective,
		},
		{
			name:     "prose_only",
			reply:    "The control looks mostly complete.",
			expected: controls.RatingUnparsed,
		},
		{
			name:     "empty_sections",
			reply:    `{"present": {}, "missing": {}}`,
			expected: controls.RatingUnparsed,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			res := controls.ParseResponse(controls.DimensionCompleteness, testCase.reply)
			require.Equal(t, testCase.expected, res.Rating)
		})
	}
}

func TestParseResponseYesNo(t *testing.T) {
	testCases := []struct {
		name           string
		dimension      controls.Dimension
		reply          string
		expectedRating controls.Rating
		expectedAnswer string
		expectedNote   string
	}{
		{
			name:           "json_yes",
			dimension:      controls.DimensionControlObjective,
			reply:          `{"answer": "Yes", "explanation": "Monthly review detects stale access."}`,
			expectedRating: controls.RatingEffective,
			expectedAnswer: "Yes",
			expectedNote:   "Monthly review detects stale access.",
		},
		{
			name:           "json_no_with_prose",
			dimension:      controls.DimensionFrequency,
			reply:          "Here you go:\n{\"answer\": \"No\", \"reasoning\": \"Quarterly is too slow.\"}",
			expectedRating: controls.RatingIneffective,
			expectedAnswer: "No",
			expectedNote:   "Quarterly is too slow.",
		},
		{
			name:           "json_partially",
			dimension:      controls.DimensionSegregationOfDuties,
			reply:          `{"answer": "Partially", "explanation": "Approver can also post."}`,
			expectedRating: controls.RatingPartiallyEffective,
			expectedAnswer: "Partially",
			expectedNote:   "Approver can also post.",
		},
		{
			name:           "free_text_inline",
			dimension:      controls.DimensionExecution,
			reply:          "Yes, manual execution suits a monthly review.",
			expectedRating: controls.RatingEffective,
			expectedAnswer: "Yes",
			expectedNote:   "manual execution suits a monthly review.",
		},
		{
			name:           "free_text_multiline",
			dimension:      controls.DimensionTypeAdequacy,
			reply:          "No\nA detective control cannot stop the payment.",
			expectedRating: controls.RatingIneffective,
			expectedAnswer: "No",
			expectedNote:   "A detective control cannot stop the payment.",
		},
		{
			name:           "free_text_labelled",
			dimension:      controls.DimensionControlObjective,
			reply:          "Answer: Yes\nExplanation: The review targets stale access.",
			expectedRating: controls.RatingEffective,
			expectedAnswer: "Yes",
			expectedNote:   "The review targets stale access.",
		},
		{
			name:           "json_not_appropriate",
			dimension:      controls.DimensionTypeAdequacy,
			reply:          `{"answer": "Not appropriate", "explanation": "A detective control cannot stop the payment."}`,
			expectedRating: controls.RatingIneffective,
			expectedAnswer: "Not appropriate",
			expectedNote:   "A detective control cannot stop the payment.",
		},
		{
			name:           "not_applicable",
			dimension:      controls.DimensionFrequency,
			reply:          "Not applicable to this control.",
			expectedRating: controls.RatingUnparsed,
		},
		{
			name:           "unknown_answer",
			dimension:      controls.DimensionControlObjective,
			reply:          `{"answer": "Maybe", "explanation": "Unclear."}`,
			expectedRating: controls.RatingUnparsed,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			res := controls.ParseResponse(testCase.dimension, testCase.reply)
			require.Equal(t, testCase.expectedRating, res.Rating)
			require.Equal(t, testCase.dimension, res.Dimension)
			if testCase.expectedRating == controls.RatingUnparsed {
				require.True(t, errors.Is(res.Err(), controls.ErrUnparsed))
				require.Equal(t, testCase.reply, res.Raw)
				return
			}
			require.Equal(t, testCase.expectedAnswer, res.Answer)
			require.Equal(t, testCase.expectedNote, res.Commentary)
		})
	}
}

func TestParseResponseSystems(t *testing.T) {
	res := controls.ParseResponse(controls.DimensionSystemDependency, `{"systems": "SAP ERP, Active Directory; ServiceNow"}`)
	require.Equal(t, controls.RatingEffective, res.Rating)
	require.Equal(t, []string{"SAP ERP", "Active Directory", "ServiceNow"}, res.Items)

	none := controls.ParseResponse(controls.DimensionSystemDependency, `{"systems": "None found"}`)
	require.Equal(t, controls.RatingPartiallyEffective, none.Rating)
	require.Empty(t, none.Items)

	missing := controls.ParseResponse(controls.DimensionSystemDependency, `{"tools": "SAP"}`)
	require.Equal(t, controls.RatingUnparsed, missing.Rating)
}

func TestParseResponseSystemsFreeText(t *testing.T) {
	testCases := []struct {
		name          string
		reply         string
		expected      controls.Rating
		expectedItems []string
	}{
		{
			name:          "comma_list",
			reply:         "SAP ERP, Workday",
			expected:      controls.RatingEffective,
			expectedItems: []string{"SAP ERP", "Workday"},
		},
		{
			name:          "labelled_lines",
			reply:         "Systems: SAP ERP\nActive Directory",
			expected:      controls.RatingEffective,
			expectedItems: []string{"SAP ERP", "Active Directory"},
		},
		{
			name:     "none_found",
			reply:    "None found.",
			expected: controls.RatingPartiallyEffective,
		},
		{
			name:     "none_in_prose",
			reply:    "No systems are mentioned in the description.",
			expected: controls.RatingPartiallyEffective,
		},
		{
			name:     "refusal",
			reply:    "I could not identify any specific system in the description.",
			expected: controls.RatingUnparsed,
		},
		{
			name:     "sentences",
			reply:    "The control relies on SAP. Approvals arrive by email.",
			expected: controls.RatingUnparsed,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			res := controls.ParseResponse(controls.DimensionSystemDependency, testCase.reply)
			require.Equal(t, testCase.expected, res.Rating)
			require.Equal(t, testCase.expectedItems, res.Items)
			if testCase.expected == controls.RatingUnparsed {
				require.True(t, errors.Is(res.Err(), controls.ErrUnparsed))
				require.Equal(t, testCase.reply, res.Raw)
			}
		})
	}
}

func TestParseResponseOverall(t *testing.T) {
	testCases := map[string]controls.Rating{
		`{"rating": "Effective", "explanation": "ok"}`:           controls.RatingEffective,
		`{"rating": "Partially effective", "explanation": "ok"}`: controls.RatingPartiallyEffective,
		`{"rating": "In-effective", "explanation": "gap"}`:       controls.RatingIneffective,
		`{"rating": "Not effective"}`:                            controls.RatingIneffective,
		"Partially Effective\nTiming is undocumented.":           controls.RatingPartiallyEffective,
		`{"rating": "Excellent"}`:                                controls.RatingUnparsed,
	}
	for reply, expected := range testCases {
		require.Equal(t, expected, controls.ParseResponse(controls.DimensionOverallRating, reply).Rating, reply)
	}
}

func TestParseResponseEvidence(t *testing.T) {
	reply := "1. Signed access review checklist\n2) SAP user listing extract\n- Ticket evidence of removals\nThanks!"
	res := controls.ParseResponse(controls.DimensionExpectedEvidence, reply)

	require.Equal(t, controls.RatingEffective, res.Rating)
	require.Equal(t, []string{"Signed access review checklist", "SAP user listing extract", "Ticket evidence of removals"}, res.Items)
	require.Equal(t, "1. Signed access review checklist\n2. SAP user listing extract\n3. Ticket evidence of removals", res.Commentary)

	empty := controls.ParseResponse(controls.DimensionExpectedEvidence, "   ")
	require.Equal(t, controls.RatingUnparsed, empty.Rating)
}

func TestParseResponseIsIdempotent(t *testing.T) {
	replies := map[controls.Dimension]string{
		controls.DimensionCompleteness:     completenessReply,
		controls.DimensionControlObjective: `{"answer": "Yes", "explanation": "fine"}`,
		controls.DimensionSystemDependency: `{"systems": "SAP, Workday"}`,
		controls.DimensionOverallRating:    `{"rating": "Partially effective"}`,
		controls.DimensionExpectedEvidence: "1. a\n2. b",
	}
	for dimension, reply := range replies {
		first := controls.ParseResponse(dimension, reply)
		for i := 0; i < 5; i++ {
			again := controls.ParseResponse(dimension, reply)
			if diff := cmp.Diff(first, again); diff != "" {
				t.Fatalf("%s: re-parse differs (-first +again):\n%s", dimension, diff)
			}
		}
	}
}

func TestParseResponseKeysDifferingByCase(t *testing.T) {
	testCases := []struct {
		name      string
		dimension controls.Dimension
		reply     string
		check     func(t *testing.T, res controls.DimensionResult)
	}{
		{
			name:      "exact_answer_wins",
			dimension: controls.DimensionControlObjective,
			reply:     `{"answer": "Yes", "Answer": "No", "explanation": "fine"}`,
			check: func(t *testing.T, res controls.DimensionResult) {
				require.Equal(t, controls.RatingEffective, res.Rating)
			},
		},
		{
			name:      "sorted_fallback",
			dimension: controls.DimensionControlObjective,
			reply:     `{"Answer": "No", "ANSWER": "Yes"}`,
			check: func(t *testing.T, res controls.DimensionResult) {
				require.Equal(t, controls.RatingEffective, res.Rating)
			},
		},
		{
			name:      "canonical_element_wins",
			dimension: controls.DimensionCompleteness,
			reply:     `{"present": {"who": "the manager", "Who": "the clerk", "WHO": "the auditor"}, "missing": {"When": "no timing"}}`,
			check: func(t *testing.T, res controls.DimensionResult) {
				require.Equal(t, []string{"Who: the clerk"}, res.Present)
			},
		},
		{
			name:      "systems_key",
			dimension: controls.DimensionSystemDependency,
			reply:     `{"Systems": "Workday", "systems": "SAP"}`,
			check: func(t *testing.T, res controls.DimensionResult) {
				require.Equal(t, []string{"SAP"}, res.Items)
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			first := controls.ParseResponse(testCase.dimension, testCase.reply)
			testCase.check(t, first)
			for i := 0; i < 200; i++ {
				again := controls.ParseResponse(testCase.dimension, testCase.reply)
				if diff := cmp.Diff(first, again); diff != "" {
					t.Fatalf("re-parse %d differs (-first +again):\n%s", i, diff)
				}
			}
		})
	}
}
