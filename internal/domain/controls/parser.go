package controls

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	braceRE    = regexp.MustCompile(`(?s)\{.*\}`)
	fenceRE    = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	listItemRE = regexp.MustCompile(`^\s*(?:\d+\s*[.)]|[-*•])\s+(.+?)\s*$`)
	labelRE    = regexp.MustCompile(`(?i)^\s*(?:answer|verdict|response|explanation|reasoning|reason|systems?)\s*[:\-]\s*`)
	negatedRE  = regexp.MustCompile(`^not\s+(?:effective|appropriate|adequate|sufficient|suitable)\b`)
	sentenceRE = regexp.MustCompile(`[.!?:](?:\s|$)`)
	noSystemRE = regexp.MustCompile(`(?i)^(?:no|none)\b|\bnot (?:mentioned|found|identified|specified|named)\b`)
)

// maxSystemWords bounds one item of a free-text systems list.
const maxSystemWords = 6

// noneFound values the model uses when no system is named.
var noneFound = map[string]bool{
	"":                true,
	"none":            true,
	"none found":      true,
	"n/a":             true,
	"na":              true,
	"not mentioned":   true,
	"no systems":      true,
	"none identified": true,
}

// ParseResponse maps model text for one dimension onto a DimensionResult.
// It never fails: text it cannot interpret yields RatingUnparsed with Raw preserved.
// The same input always produces the same result.
func ParseResponse(d Dimension, text string) DimensionResult {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return unparsed(d, raw, "empty response")
	}

	switch d {
	case DimensionCompleteness:
		return parseCompleteness(raw)
	case DimensionControlObjective, DimensionExecution, DimensionTypeAdequacy,
		DimensionFrequency, DimensionSegregationOfDuties:
		return parseYesNo(d, raw)
	case DimensionSystemDependency:
		return parseSystems(raw)
	case DimensionOverallRating:
		return parseOverall(raw)
	case DimensionExpectedEvidence:
		return parseEvidence(raw)
	default:
		return unparsed(d, raw, fmt.Sprintf("unknown dimension %q", d))
	}
}

func unparsed(d Dimension, raw, reason string) DimensionResult {
	return DimensionResult{
		Dimension:  d,
		Rating:     RatingUnparsed,
		Commentary: "Unparsed: " + reason,
		Raw:        raw,
	}
}

// extractJSON decodes the outermost object in a reply that may carry a
// "json" prefix, code fences, or prose around it.
func extractJSON(raw string) (map[string]any, bool) {
	s := strings.TrimSpace(raw)
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = strings.TrimSpace(s[4:])
	}
	candidate := s
	if m := braceRE.FindString(s); m != "" {
		candidate = m
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stringField returns the first non-empty value among keys.
func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		for _, v := range matching(obj, key) {
			if s := valueString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// matching returns the values whose key equals key ignoring case,
// the exact spelling first and the rest in sorted key order.
func matching(obj map[string]any, key string) []any {
	var out []any
	if v, ok := obj[key]; ok {
		out = append(out, v)
	}
	for _, k := range sortedKeys(obj) {
		if k != key && strings.EqualFold(k, key) {
			out = append(out, obj[k])
		}
	}
	return out
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s := valueString(it); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

type elementClause struct {
	Element string
	Clause  string
}

// elementClauses reads {"Who": "...", ...} or ["Who", ...] into 6W order,
// unknown keys sorted after the known ones.
func elementClauses(v any) []elementClause {
	byName := map[string]string{}
	switch t := v.(type) {
	case map[string]any:
		// "Who" wins over "who" or "WHO" when a reply repeats an element.
		exact := map[string]bool{}
		for _, k := range sortedKeys(t) {
			el := canonicalElement(k)
			if _, seen := byName[el]; seen && (exact[el] || k != el) {
				continue
			}
			byName[el] = valueString(t[k])
			exact[el] = k == el
		}
	case []any:
		for _, it := range t {
			if s := valueString(it); s != "" {
				byName[canonicalElement(s)] = ""
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				byName[canonicalElement(p)] = ""
			}
		}
	}

	out := make([]elementClause, 0, len(byName))
	for _, el := range SixW {
		if clause, ok := byName[el]; ok {
			out = append(out, elementClause{Element: el, Clause: clause})
			delete(byName, el)
		}
	}
	rest := make([]string, 0, len(byName))
	for k := range byName {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = append(out, elementClause{Element: k, Clause: byName[k]})
	}
	return out
}

func canonicalElement(s string) string {
	t := strings.TrimSpace(strings.TrimRight(s, ":"))
	for _, el := range SixW {
		if strings.EqualFold(t, el) {
			return el
		}
	}
	return t
}

func clauseLines(items []elementClause) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Clause == "" {
			out = append(out, it.Element)
			continue
		}
		out = append(out, it.Element+": "+it.Clause)
	}
	return out
}

func parseCompleteness(raw string) DimensionResult {
	obj, ok := extractJSON(raw)
	if !ok {
		return unparsed(DimensionCompleteness, raw, "no JSON object in completeness reply")
	}
	present := elementClauses(obj["present"])
	missing := elementClauses(obj["missing"])
	suggestions := elementClauses(obj["suggestions"])
	if len(present) == 0 && len(missing) == 0 {
		return unparsed(DimensionCompleteness, raw, "reply lists neither present nor missing elements")
	}

	res := DimensionResult{
		Dimension:   DimensionCompleteness,
		Present:     clauseLines(present),
		Suggestions: clauseLines(suggestions),
		Raw:         raw,
	}
	for _, m := range missing {
		res.MissingElements = append(res.MissingElements, m.Element)
	}

	switch n := len(missing); {
	case n == 0:
		res.Rating = RatingEffective
	case n <= 3:
		res.Rating = RatingPartiallyEffective
	default:
		res.Rating = RatingIneffective
	}

	var b strings.Builder
	b.WriteString("Present:")
	for _, line := range res.Present {
		b.WriteString("\n• " + line)
	}
	b.WriteString("\n\nMissing:")
	for _, line := range clauseLines(missing) {
		b.WriteString("\n• " + line)
	}
	res.Commentary = b.String()
	return res
}

// ratingFromAnswer maps Yes/No/Partially answers onto the vocabulary.
func ratingFromAnswer(answer string) (Rating, bool) {
	a := strings.ToLower(stripLabel(answer))
	a = strings.TrimLeft(a, "\"'*` ")
	switch {
	case a == "":
		return "", false
	case strings.HasPrefix(a, "partial"), strings.HasPrefix(a, "partly"):
		return RatingPartiallyEffective, true
	case strings.HasPrefix(a, "yes"):
		return RatingEffective, true
	case a == "no", strings.HasPrefix(a, "no "), strings.HasPrefix(a, "no,"),
		strings.HasPrefix(a, "no."), strings.HasPrefix(a, "no-"), negatedRE.MatchString(a):
		return RatingIneffective, true
	}
	return normalizeRating(a)
}

// stripLabel drops a leading "Answer:" style label.
func stripLabel(s string) string {
	return strings.TrimSpace(labelRE.ReplaceAllString(strings.TrimSpace(s), ""))
}

// normalizeRating accepts "Partially effective", "In-effective", "not effective" and friends.
func normalizeRating(s string) (Rating, bool) {
	t := strings.ToLower(s)
	t = strings.NewReplacer("-", "", "_", "", " ", "").Replace(t)
	switch {
	case strings.Contains(t, "partial"), strings.Contains(t, "partly"):
		return RatingPartiallyEffective, true
	case strings.Contains(t, "ineffective"), strings.Contains(t, "noteffective"):
		return RatingIneffective, true
	case strings.Contains(t, "effective"):
		return RatingEffective, true
	}
	return "", false
}

func parseYesNo(d Dimension, raw string) DimensionResult {
	var answer, explanation string
	if obj, ok := extractJSON(raw); ok {
		answer = stripLabel(stringField(obj, "answer"))
		explanation = stringField(obj, "explanation", "reasoning", "reason")
	} else {
		// Free text: first line carries the verdict, the rest the reasoning.
		lines := strings.SplitN(raw, "\n", 2)
		answer = stripLabel(lines[0])
		if len(lines) > 1 {
			explanation = stripLabel(lines[1])
		}
		if i := strings.IndexAny(answer, ".,:;"); i > 0 && explanation == "" {
			explanation = strings.TrimSpace(answer[i+1:])
			answer = answer[:i]
		}
	}

	rating, ok := ratingFromAnswer(answer)
	if !ok {
		return unparsed(d, raw, fmt.Sprintf("answer %q is not Yes/No", answer))
	}
	return DimensionResult{
		Dimension:  d,
		Rating:     rating,
		Answer:     answer,
		Commentary: explanation,
		Raw:        raw,
	}
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(f), "-*•"))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseSystems(raw string) DimensionResult {
	var systems string
	if obj, ok := extractJSON(raw); ok {
		v, found := lookup(obj, "systems")
		if !found {
			return unparsed(DimensionSystemDependency, raw, `reply has no "systems" field`)
		}
		systems = valueString(v)
	} else {
		systems = stripLabel(raw)
		if !noneFound[strings.ToLower(strings.Trim(systems, ". "))] && !noSystemRE.MatchString(systems) && !looksLikeList(systems) {
			return unparsed(DimensionSystemDependency, raw, "reply is neither JSON nor a list of systems")
		}
	}

	res := DimensionResult{Dimension: DimensionSystemDependency, Raw: raw}
	if noneFound[strings.ToLower(strings.Trim(systems, ". "))] || noSystemRE.MatchString(systems) {
		res.Rating = RatingPartiallyEffective
		res.Answer = "None found"
		res.Commentary = "No systems or data sources are named in the control description."
		return res
	}
	res.Items = splitList(systems)
	res.Rating = RatingEffective
	res.Answer = strings.Join(res.Items, ", ")
	res.Commentary = "Systems / data sources: " + res.Answer
	return res
}

// looksLikeList accepts short names separated by commas, semicolons or newlines,
// such as "SAP, Workday", and rejects prose.
func looksLikeList(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), ".")
	if s == "" || sentenceRE.MatchString(s) {
		return false
	}
	for _, item := range splitList(s) {
		if len(strings.Fields(item)) > maxSystemWords {
			return false
		}
	}
	return true
}

func lookup(obj map[string]any, key string) (any, bool) {
	if values := matching(obj, key); len(values) > 0 {
		return values[0], true
	}
	return nil, false
}

func parseOverall(raw string) DimensionResult {
	var ratingText, explanation string
	if obj, ok := extractJSON(raw); ok {
		ratingText = stringField(obj, "rating", "overall_rating", "overall")
		explanation = stringField(obj, "explanation", "reasoning", "reason")
	} else {
		lines := strings.SplitN(raw, "\n", 2)
		ratingText = strings.TrimSpace(lines[0])
		if len(lines) > 1 {
			explanation = strings.TrimSpace(lines[1])
		}
	}

	rating, ok := normalizeRating(ratingText)
	if !ok {
		return unparsed(DimensionOverallRating, raw, fmt.Sprintf("rating %q outside vocabulary", ratingText))
	}
	return DimensionResult{
		Dimension:  DimensionOverallRating,
		Rating:     rating,
		Answer:     string(rating),
		Commentary: explanation,
		Raw:        raw,
	}
}

func parseEvidence(raw string) DimensionResult {
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		if m := listItemRE.FindStringSubmatch(line); m != nil {
			items = append(items, m[1])
		}
	}
	if len(items) == 0 {
		if obj, ok := extractJSON(raw); ok {
			if v, found := lookup(obj, "evidence"); found {
				items = splitList(valueString(v))
			}
		}
	}
	if len(items) == 0 {
		return unparsed(DimensionExpectedEvidence, raw, "no numbered evidence list")
	}

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, it)
	}
	return DimensionResult{
		Dimension:  DimensionExpectedEvidence,
		Rating:     RatingEffective,
		Commentary: strings.Join(lines, "\n"),
		Items:      items,
		Raw:        raw,
	}
}
