package prompt

import "github.com/bryanwahyu/automaton-tod/internal/domain/controls"

const auditorPersona = "You are the world's best professional auditor with decades of experience testing control descriptions for completeness."

const jsonOnlySystem = auditorPersona + `
Respond only with one valid JSON object. No markdown, no code fences, no commentary outside the object.`

const listOnlySystem = auditorPersona + `
Respond only with the numbered list (1., 2., 3., ...). No introduction and no closing remarks.`

// PingSystem and PingUser form the preflight request that checks credentials and model access.
const (
	PingSystem = "Be concise and precise."
	PingUser   = "ping"
)

// GetSystemPrompt provides strict output directions for a dimension.
func GetSystemPrompt(d controls.Dimension) string {
	if d == controls.DimensionExpectedEvidence {
		return listOnlySystem
	}
	return jsonOnlySystem
}
