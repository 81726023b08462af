package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/types"
)

type PrintOptions struct {
	NoColor bool
	// Summary appends the disposition table after the module reports.
	Summary bool
}

// FormatModule renders one module according to its format bitmask. Modules
// that did not complete render a single status line.
func FormatModule(w io.Writer, v View, opts PrintOptions) error {
	if !v.Completed() {
		line := fmt.Sprintf("%s: %s", v.Name, v.State)
		if v.Reason != "" {
			line += " (" + v.Reason + ")"
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}

	f := v.Format
	if f == 0 {
		f = engine.DefaultOutputFormat
	}
	var b strings.Builder
	if f.Has(types.OutHeader) {
		fmt.Fprintf(&b, "Module: %s\n", v.Name)
		if v.Description != "" {
			fmt.Fprintf(&b, "%s\n", v.Description)
		}
		b.WriteString(strings.Repeat("-", 40) + "\n")
	}

	var items, failing []*types.Item
	kind := "item"
	if v.Result != nil {
		items = v.Result.Items()
		failing = v.Result.Failing()
		kind = v.Result.ItemKind.String()
	}
	if f.Has(types.OutStats) {
		fmt.Fprintf(&b, "Tested %d %s(s), %d failing\n", len(items), kind, len(failing))
		hist := map[types.Severity]int{}
		worst := types.SevNone
		if v.Result != nil {
			hist = v.Result.Histogram()
			worst = v.Result.Severity()
		}
		counts := make([]string, 0, len(types.Severities()))
		for _, s := range types.Severities() {
			counts = append(counts, fmt.Sprintf("%s %d", s, hist[s]))
		}
		fmt.Fprintf(&b, "Severity: %s (max %s)\n", strings.Join(counts, ", "), severityLabel(worst, opts.NoColor))
	}
	if f.Has(types.OutList) {
		for _, it := range failing {
			fmt.Fprintf(&b, "  %s  [%s]\n", it.ID, severityLabel(it.Severity(), opts.NoColor))
		}
	}
	if f.Has(types.OutProof) {
		for _, it := range failing {
			fmt.Fprintf(&b, "  %s:\n", it.ID)
			for _, p := range it.Proofs() {
				fmt.Fprintf(&b, "    [%s] %s\n", severityLabel(p.Severity, opts.NoColor), p.Text)
				if p.Markup != "" {
					fmt.Fprintf(&b, "      %s\n", p.Markup)
				}
			}
		}
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PrintAll reports every selected module of lib in run order. A completed
// module with its own print callback renders itself.
func PrintAll(w io.Writer, lib *engine.Library, opts PrintOptions) error {
	mods := lib.ReportOrder()
	if len(mods) == 0 {
		_, err := fmt.Fprintln(w, "No modules selected")
		return err
	}
	views := make([]View, 0, len(mods))
	for _, m := range mods {
		v := ModuleView(lib, m)
		views = append(views, v)
		if m.State() == engine.StateCompleted && m.Callbacks.Print != nil {
			if err := m.Callbacks.Print(lib, m, w); err != nil {
				return fmt.Errorf("print %s: %w", m.Name, err)
			}
			continue
		}
		if err := FormatModule(w, v, opts); err != nil {
			return err
		}
	}
	if opts.Summary {
		fmt.Fprintln(w)
		return PrintSummary(w, views, opts)
	}
	return nil
}

// PrintViews renders previously captured views, e.g. from the cache.
func PrintViews(w io.Writer, views []View, opts PrintOptions) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No modules selected")
		return err
	}
	for _, v := range views {
		if err := FormatModule(w, v, opts); err != nil {
			return err
		}
	}
	if opts.Summary {
		fmt.Fprintln(w)
		return PrintSummary(w, views, opts)
	}
	return nil
}

var severityStyles = map[types.Severity]lipgloss.Style{
	types.SevMinimal:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	types.SevLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	types.SevModerate: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	types.SevHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	types.SevDanger:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

func severityLabel(s types.Severity, noColor bool) string {
	if noColor {
		return s.String()
	}
	if st, ok := severityStyles[s]; ok {
		return st.Render(s.String())
	}
	return s.String()
}
