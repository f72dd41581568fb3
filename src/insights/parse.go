package insights

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencePattern = regexp.MustCompile("```(?:json)?")
	arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
)

// ParseFailure describes why a summarizer reply could not be used.
type ParseFailure struct {
	Reason string
	Raw    string
}

func (e *ParseFailure) Error() string {
	return "parse insights: " + e.Reason
}

// ParseInsights extracts a JSON array of exactly three non-empty strings from a model
// reply, tolerating code fences and surrounding prose.
func ParseInsights(raw string) ([3]string, error) {
	var out [3]string

	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	match := arrayPattern.FindString(cleaned)
	if match == "" {
		return out, &ParseFailure{Reason: "no JSON array in reply", Raw: raw}
	}

	var items []any
	if err := json.Unmarshal([]byte(match), &items); err != nil {
		return out, &ParseFailure{Reason: fmt.Sprintf("invalid JSON array: %v", err), Raw: raw}
	}

	var valid []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			valid = append(valid, strings.TrimSpace(s))
		}
	}
	if len(valid) != 3 {
		return out, &ParseFailure{Reason: fmt.Sprintf("want 3 insights, got %d", len(valid)), Raw: raw}
	}

	copy(out[:], valid)
	return out, nil
}
