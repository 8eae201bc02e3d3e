package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/automaton-tod/internal/domain/ai"
	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

// completenessTemplate takes the element list and the control description.
const completenessTemplate = `Given the following control description, evaluate it for the presence of six key elements: %s.

For each element:
- If present, list it with a short clause (<20 words) referencing how it's reflected in the description.
- If missing, explain briefly why it's considered missing (e.g., "no timeline or frequency mentioned").

Then suggest improvements for each missing element based on the description.

Return valid JSON in this format:
{
  "present": {"Who": "...", "What": "..."},
  "missing": {"When": "No timeline stated", "Where": "No tool or system mentioned"},
  "suggestions": {"When": "Suggest adding a specific timeline or frequency for review"}
}

Control Description:
"""%s"""`

const yesNoFormat = `

Respond in JSON:
{
  "answer": "Yes or No",
  "explanation": "..."
}`

const objectiveTemplate = `Given the following risk description and control description, answer:
1. Is the control, as designed, able to mitigate the risk? (Yes/No)
2. Briefly explain your reasoning (1-2 sentences).

Risk Description:
%s

Control Description:
%s` + yesNoFormat

const executionTemplate = `Given the automation type (Automated/Semi-Auto/Manual), risk description, and control description, answer:
1. Is the control execution appropriate based on the control description and risk description? (Yes/No)
2. Briefly explain your reasoning (1-2 sentences).

Automation: %s
Risk Description: %s
Control Description: %s` + yesNoFormat

const typeTemplate = `Given the control type (Detective/Preventive), risk description, and control description, answer:
1. Is the control type appropriate based on the control description and adequate for the risk it addresses? (Yes/No)
2. Briefly explain your reasoning (1-2 sentences).

Type: %s
Risk Description: %s
Control Description: %s` + yesNoFormat

const frequencyTemplate = `Given the operation frequency, risk description, and control description, answer:
1. Is the control frequency appropriate based on the control description and adequate for the associated risk? (Yes/No)
2. Briefly explain your reasoning (1-2 sentences).

Frequency: %s
Risk Description: %s
Control Description: %s` + yesNoFormat

const systemsTemplate = `Given the control description, extract the names of any systems or data sources mentioned. List only the system or data source names (comma-separated if more than one). If none are mentioned, return "None found".

Control Description: %s

Respond in JSON:
{
  "systems": "..."
}`

const segregationTemplate = `Given the following control description, answer:
1. Does the control ensure that no single individual has end-to-end responsibility for critical transactions, i.e. proper segregation of duties? (Yes/No)
2. Briefly explain your reasoning (1-2 sentences).

Control Description:
%s` + yesNoFormat

// overallTemplate placeholders: objective, execution, type, frequency, systems, segregation, present, missing.
const overallTemplate = `Given the following analysis of a control, provide an overall rating as one of the following: Effective, Partially effective, In-effective. Consider all the information below:
- Control objective: %s
- Execution appropriateness: %s
- Type adequacy: %s
- Frequency appropriateness: %s
- System/data dependencies: %s
- Segregation of duties: %s
- Present: %s
- Missing: %s

Return a JSON object:
{
  "rating": "Effective, Partially effective, or In-effective",
  "explanation": "..."
}`

const evidenceTemplate = `Given the following control description, list the types of evidence an auditor or tester would expect to see to verify the control's operation. List each expected evidence as a separate numbered point (1., 2., 3., etc.).

Control Description:
%s

Respond with a numbered list of expected evidence types only.`

// GetUserPrompt builds the user message for one dimension of one control.
// prior carries the earlier results of the same control; only the overall rating reads it.
func GetUserPrompt(d controls.Dimension, c controls.ControlRecord, prior map[controls.Dimension]controls.DimensionResult) (string, error) {
	switch d {
	case controls.DimensionCompleteness:
		return fmt.Sprintf(completenessTemplate, strings.Join(controls.SixW, ", "), c.ControlDescription), nil
	case controls.DimensionControlObjective:
		return fmt.Sprintf(objectiveTemplate, c.RiskDescription, c.ControlDescription), nil
	case controls.DimensionExecution:
		return fmt.Sprintf(executionTemplate, c.AutomationLevel, c.RiskDescription, c.ControlDescription), nil
	case controls.DimensionTypeAdequacy:
		return fmt.Sprintf(typeTemplate, c.ControlType, c.RiskDescription, c.ControlDescription), nil
	case controls.DimensionFrequency:
		return fmt.Sprintf(frequencyTemplate, c.Frequency, c.RiskDescription, c.ControlDescription), nil
	case controls.DimensionSystemDependency:
		return fmt.Sprintf(systemsTemplate, c.ControlDescription), nil
	case controls.DimensionSegregationOfDuties:
		return fmt.Sprintf(segregationTemplate, c.ControlDescription), nil
	case controls.DimensionOverallRating:
		completeness := prior[controls.DimensionCompleteness]
		return fmt.Sprintf(overallTemplate,
			summarize(prior, controls.DimensionControlObjective),
			summarize(prior, controls.DimensionExecution),
			summarize(prior, controls.DimensionTypeAdequacy),
			summarize(prior, controls.DimensionFrequency),
			summarize(prior, controls.DimensionSystemDependency),
			summarize(prior, controls.DimensionSegregationOfDuties),
			orNone(strings.Join(completeness.Present, "; ")),
			orNone(strings.Join(completeness.MissingElements, ", ")),
		), nil
	case controls.DimensionExpectedEvidence:
		return fmt.Sprintf(evidenceTemplate, c.ControlDescription), nil
	}
	return "", fmt.Errorf("no prompt for dimension %q", d)
}

// Build assembles the full request for a dimension.
func Build(d controls.Dimension, c controls.ControlRecord, prior map[controls.Dimension]controls.DimensionResult) (ai.Request, error) {
	user, err := GetUserPrompt(d, c, prior)
	if err != nil {
		return ai.Request{}, err
	}
	return ai.Request{System: GetSystemPrompt(d), User: user}, nil
}

// summarize renders an earlier answer for the overall prompt, e.g. "Yes (Monthly review ...)".
func summarize(prior map[controls.Dimension]controls.DimensionResult, d controls.Dimension) string {
	r, ok := prior[d]
	if !ok || !r.Rating.Assessed() {
		return "Not available"
	}
	answer := r.Answer
	if answer == "" {
		answer = string(r.Rating)
	}
	if r.Commentary == "" {
		return answer
	}
	return fmt.Sprintf("%s (%s)", answer, r.Commentary)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
