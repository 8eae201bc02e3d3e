package mysql

import (
	"encoding/json"
	"strings"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// validJSON keeps raw when it parses, otherwise wraps it as {"raw": ...}; empty becomes {}.
func validJSON(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(raw), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": raw})
		return string(b)
	}
	return raw
}

// resultDetails serializes the list fields of a result for the details_json column.
func resultDetails(r controls.DimensionResult) string {
	b, err := json.Marshal(struct {
		Missing     []string `json:"missing,omitempty"`
		Present     []string `json:"present,omitempty"`
		Suggestions []string `json:"suggestions,omitempty"`
		Items       []string `json:"items,omitempty"`
	}{r.MissingElements, r.Present, r.Suggestions, r.Items})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func pageOffset(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return pageSize, (page - 1) * pageSize
}
