package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/sechecker/sechecker/internal/types"
)

// PrintSummary writes one table row per module disposition, including
// modules that were skipped or failed.
func PrintSummary(w io.Writer, views []View, opts PrintOptions) error {
	table := tablewriter.NewWriter(w)
	table.Header("Module", "Status", "Items", "Failing", "Severity")
	for _, v := range views {
		status := v.State
		if v.Reason != "" {
			status += ": " + v.Reason
		}
		items, failing, sev := "-", "-", "-"
		if v.Completed() && v.Result != nil {
			items = fmt.Sprint(v.Result.Len())
			failing = fmt.Sprint(len(v.Result.Failing()))
			sev = severityLabel(v.Result.Severity(), opts.NoColor)
		} else if v.Completed() {
			items, failing, sev = "0", "0", types.SevNone.String()
		}
		if err := table.Append([]string{v.Name, status, items, failing, sev}); err != nil {
			return err
		}
	}
	return table.Render()
}
