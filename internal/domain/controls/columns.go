package controls

// Input headers, exact text expected in row 1 of the workbook.
const (
	ColumnRisk               = "Risk"
	ColumnRiskDescription    = "Risk Description"
	ColumnControl            = "Control"
	ColumnControlDescription = "Control Description"
	ColumnAutomation         = "Automation"
	ColumnControlType        = "Detective/ Preventive"
	ColumnFrequency          = "Operation Frequency"
)

// RequiredColumns in report order.
var RequiredColumns = []string{
	ColumnRisk,
	ColumnRiskDescription,
	ColumnControl,
	ColumnControlDescription,
	ColumnAutomation,
	ColumnControlType,
	ColumnFrequency,
}

// Output headers written by the report.
const (
	HeaderDocumented       = "Has the control been formally documented? (When, Why, Who, What, Where and How)"
	HeaderSuggestions      = "Suggestions"
	HeaderObjective        = "Control objective: Is the control designed able to mitigate the risk ?"
	HeaderObjectiveExp     = "Control objective: Explanation"
	HeaderExecution        = "Is the control execution appropriate for the risk being addressed?"
	HeaderExecutionExp     = "Execution appropriateness: Explanation"
	HeaderTypeAdequacy     = "Is the control type adequate for the risk it addresses"
	HeaderTypeAdequacyExp  = "Type adequacy: Explanation"
	HeaderFrequency        = "Is the control frequency appropriate for the associated risk?"
	HeaderFrequencyExp     = "Frequency appropriateness: Explanation"
	HeaderSystemDependency = "System/data dependencies: Are the systems/data sources used reliable and secure?"
	HeaderSegregation      = "Segregation of duties: Does the control prevent end-to-end ownership by a single individual?"
	HeaderSegregationExp   = "Segregation of duties: Explanation"
	HeaderOverallRating    = "Overall Rating"
	HeaderOverallRatingExp = "Overall Rating: Explanation"
	HeaderExpectedEvidence = "Potential Evidences Expected Based on Control Description"
)
