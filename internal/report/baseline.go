package report

import (
	"strings"

	"github.com/sechecker/sechecker/internal/types"
)

// DefaultFailOn is used when no threshold is configured.
const DefaultFailOn = types.SevModerate

// ParseFailOn accepts a severity name; an empty string yields DefaultFailOn.
func ParseFailOn(s string) (types.Severity, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultFailOn, nil
	}
	return types.ParseSeverity(s)
}

// ShouldFail reports whether any completed module holds a failing item at
// or above threshold.
func ShouldFail(views []View, threshold types.Severity) bool {
	for _, v := range views {
		if !v.Completed() || v.Result == nil {
			continue
		}
		for _, it := range v.Result.Failing() {
			if it.Severity() >= threshold {
				return true
			}
		}
	}
	return false
}

// Counts tallies module dispositions and failing items by severity.
func Counts(views []View) (states map[string]int, severities map[string]int) {
	states = map[string]int{}
	severities = map[string]int{}
	for _, v := range views {
		states[v.State]++
		if v.Result == nil {
			continue
		}
		for _, it := range v.Result.Failing() {
			severities[it.Severity().String()]++
		}
	}
	return states, severities
}
