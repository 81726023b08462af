package sechecker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sechecker/sechecker/internal/audit"
	"github.com/sechecker/sechecker/internal/cache"
)

var flagHistoryLimit int

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs recorded with --audit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lcfg, gcfg, err := loadConfigs(flagConfig)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			dir := pickString(flagCacheDir, lcfg.CacheDir, gcfg.CacheDir)
			if dir == "" {
				dir = cache.DefaultDir()
			}
			return showHistory(cmd.OutOrStdout(), audit.NewAuditLog(dir), flagHistoryLimit, flagJSON)
		},
	}
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "directory holding the audit log")
	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "show at most N runs (0 = all)")
	rootCmd.AddCommand(cmd)
}

func showHistory(w io.Writer, log *audit.AuditLog, limit int, asJSON bool) error {
	records, err := log.LoadHistory()
	if errors.Is(err, os.ErrNotExist) {
		records = nil
	} else if err != nil {
		return err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if asJSON {
		if records == nil {
			records = []audit.RunRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Time", "Run", "Policy", "Modules", "Failing", "Result")
	for _, r := range records {
		result := "pass"
		if r.Failed {
			result = "fail (" + r.FailOn + ")"
		}
		if err := table.Append([]string{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			shortID(r.RunID),
			r.Policy,
			stateSummary(r.States),
			fmt.Sprint(total(r.SeverityCounts)),
			result,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func stateSummary(states map[string]int) string {
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", states[k], k))
	}
	return orDash(strings.Join(parts, ", "))
}

func total(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
