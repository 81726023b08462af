package sechecker

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sechecker/sechecker/internal/cache"
	"github.com/sechecker/sechecker/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Show the results saved by the last 'run --save'",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lcfg, gcfg, err := loadConfigs(flagConfig)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			dir := pickString(flagCacheDir, lcfg.CacheDir, gcfg.CacheDir)
			if dir == "" {
				dir = cache.DefaultDir()
			}
			noColor := pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor)
			return showLast(cmd.OutOrStdout(), cmd.ErrOrStderr(), dir, noColor)
		},
	}
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "directory holding saved results")
	rootCmd.AddCommand(cmd)
}

func showLast(stdout, stderr io.Writer, dir string, noColor bool) error {
	snap, err := cache.LoadResults(dir)
	if err != nil {
		return fmt.Errorf("no saved results (run with --save first): %w", err)
	}
	if stale := snap.Stale(); len(stale) > 0 {
		fmt.Fprintf(stderr, "warning: inputs changed since %s: %v\n", snap.Timestamp.Format("2006-01-02 15:04:05"), stale)
	}
	switch {
	case flagSARIF:
		return report.WriteSARIF(stdout, snap.Modules, version)
	case flagJSON:
		return report.WriteJSON(stdout, snap.Modules)
	}
	fmt.Fprintf(stdout, "Results for %s from %s\n\n", snap.Policy, snap.Timestamp.Format("2006-01-02 15:04:05"))
	return report.PrintViews(stdout, snap.Modules, report.PrintOptions{NoColor: !colorEnabled(stdout, noColor), Summary: true})
}
