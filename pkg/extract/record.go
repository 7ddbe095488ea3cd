package extract

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/testcase-formatter/pkg/tabular"
)

// Record holds the fields sniffed from a test case details sheet.
type Record struct {
	Key         string
	Summary     string
	Description string
	Priority    string
	// PriorityValue is the Azure DevOps priority bucket derived from Priority.
	PriorityValue int
}

var priorityBuckets = map[string]int{
	"highest": 1,
	"high":    1,
	"medium":  2,
	"low":     3,
	"lowest":  4,
}

const defaultPriorityValue = 2

// PriorityValue maps a raw priority string to its numeric bucket; unknown
// values fall back to medium.
func PriorityValue(raw string) int {
	if v, ok := priorityBuckets[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return defaultPriorityValue
}

// jiraKeyPattern matches issue keys like UNOD-12.
var jiraKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*-[0-9]+$`)

// fieldMatcher locates one logical field in a table, returning ok=false
// when the strategy does not apply. Strategies are tried in order and a
// later strategy only runs when every earlier one came up empty.
type fieldMatcher func(t *tabular.Table) (string, bool)

func headerValue(t *tabular.Table, col int) (string, bool) {
	if col < 0 {
		return "", false
	}
	if v := t.Cell(0, col); v != "" {
		return v, true
	}
	return "", false
}

func exactColumn(names ...string) fieldMatcher {
	return func(t *tabular.Table) (string, bool) {
		return headerValue(t, t.FindExact(names...))
	}
}

// fuzzyColumn tries every header containing one of the substrings, not
// just the first, so an empty cell under one candidate column does not
// shadow a filled one further right.
func fuzzyColumn(substrs ...string) fieldMatcher {
	return func(t *tabular.Table) (string, bool) {
		for i, h := range t.Headers {
			lower := strings.ToLower(h)
			for _, s := range substrs {
				if strings.Contains(lower, s) {
					if v, ok := headerValue(t, i); ok {
						return v, true
					}
					break
				}
			}
		}
		return "", false
	}
}

func cellLabel(label string) fieldMatcher {
	return func(t *tabular.Table) (string, bool) {
		return t.ScanForLabel(label)
	}
}

// keyPatternScan finds the first cell value shaped like an issue key.
func keyPatternScan(t *tabular.Table) (string, bool) {
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if v := t.Cell(i, j); jiraKeyPattern.MatchString(v) {
				return v, true
			}
		}
	}
	return "", false
}

func sniffField(t *tabular.Table, matchers ...fieldMatcher) string {
	for _, m := range matchers {
		if v, ok := m(t); ok {
			return v
		}
	}
	return ""
}

// SniffRecord locates the key, summary, description and priority fields in
// a details sheet whose column naming and layout are not trusted. Missing
// summary or description is not fatal; the record proceeds with partial
// data and the caller receives warnings.
func SniffRecord(t *tabular.Table) (Record, []string) {
	rec := Record{
		Key: sniffField(t,
			exactColumn("key"),
			cellLabel("key"),
			keyPatternScan,
		),
		Summary: sniffField(t,
			exactColumn("summary"),
			fuzzyColumn("summary", "title"),
			cellLabel("summary"),
		),
		Description: sniffField(t,
			exactColumn("description"),
			fuzzyColumn("description", "desc"),
			cellLabel("description"),
		),
		Priority: sniffField(t,
			exactColumn("priority"),
			fuzzyColumn("priority", "prio"),
			cellLabel("priority"),
		),
	}
	rec.PriorityValue = PriorityValue(rec.Priority)

	var warnings []string
	if rec.Summary == "" {
		warnings = append(warnings, "no summary found")
	}
	if rec.Description == "" {
		warnings = append(warnings, "no description found")
	}
	if len(warnings) > 0 {
		log.Warn().Strs("missing", warnings).Msg("record sniffed with partial data")
	}
	return rec, warnings
}
