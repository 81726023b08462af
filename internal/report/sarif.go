package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sechecker/sechecker/internal/types"
)

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLoc        `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	LogicalLocations []sarifLogical `json:"logicalLocations"`
}

type sarifLogical struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func sevToLevel(s types.Severity) string {
	switch {
	case s >= types.SevHigh:
		return "error"
	case s >= types.SevLow:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes failing items of completed modules as SARIF 2.1.0, one
// rule per module and one result per failing item. Policy entities have no
// file location so they are reported as logical locations.
func WriteSARIF(w io.Writer, views []View, version string) error {
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: "sechecker", Version: version, Rules: []sarifRule{}}},
		Results: []sarifResult{},
	}
	for _, v := range views {
		if !v.Completed() || v.Result == nil {
			continue
		}
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
			ID:               v.Name,
			ShortDescription: sarifMessage{Text: v.Description},
		})
		for _, it := range v.Result.Failing() {
			msg := fmt.Sprintf("%s %s flagged by %s", v.Result.ItemKind, it.ID, v.Name)
			if ps := it.Proofs(); len(ps) > 0 {
				msg = ps[0].Text
			}
			run.Results = append(run.Results, sarifResult{
				RuleID:  v.Name,
				Level:   sevToLevel(it.Severity()),
				Message: sarifMessage{Text: msg},
				Locations: []sarifLoc{{LogicalLocations: []sarifLogical{{
					Name: it.ID,
					Kind: v.Result.ItemKind.String(),
				}}}},
				Properties: map[string]string{"severity": it.Severity().String()},
			})
		}
	}
	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
