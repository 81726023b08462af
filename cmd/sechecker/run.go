package sechecker

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sechecker/sechecker/internal/audit"
	"github.com/sechecker/sechecker/internal/cache"
	"github.com/sechecker/sechecker/internal/config"
	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/ignore"
	"github.com/sechecker/sechecker/internal/logging"
	"github.com/sechecker/sechecker/internal/metrics"
	"github.com/sechecker/sechecker/internal/modules"
	"github.com/sechecker/sechecker/internal/report"
	"github.com/sechecker/sechecker/internal/types"
)

var (
	flagPolicy      string
	flagFC          string
	flagProfile     string
	flagModules     []string
	flagAll         bool
	flagOutput      string
	flagQuiet       bool
	flagVerbose     bool
	flagFailOn      string
	flagSave        bool
	flagCacheDir    string
	flagMetricsFile string
	flagAudit       bool
	flagIgnore      string
)

// runOptions is the fully resolved configuration of one check run.
type runOptions struct {
	Policy       string
	FileContexts string
	Profile      string
	Modules      []string
	All          bool
	Output       string
	JSON         bool
	SARIF        bool
	FailOn       string
	NoColor      bool
	Debug        bool
	Save         bool
	CacheDir     string
	MetricsFile  string
	Audit        bool
	Ignore       string
}

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run check modules against a policy",
		Example: `  sechecker run --policy policy.yaml --fc file_contexts
  sechecker run --policy policy.yaml --module 'find_*' -v
  sechecker run --policy policy.yaml --profile profile.yaml --sarif > out.sarif`,
		RunE: runRun,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPolicy, "policy", "p", "", "policy fact sheet (YAML)")
	cmd.Flags().StringVar(&flagFC, "fc", "", "file_contexts file")
	cmd.Flags().StringVar(&flagProfile, "profile", "", "module profile (YAML)")
	cmd.Flags().StringArrayVarP(&flagModules, "module", "m", nil, "select modules by name or glob (repeatable)")
	cmd.Flags().BoolVar(&flagAll, "all", false, "select every registered module")
	cmd.Flags().StringVar(&flagOutput, "output", "", "output format for every module: quiet|short|long|verbose")
	cmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "same as --output quiet")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "same as --output verbose")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "exit 1 when a failing item reaches none|minimal|low|moderate|high|danger (default moderate)")
	cmd.Flags().BoolVar(&flagSave, "save", false, "save the results for 'sechecker last'")
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "directory for saved results and the audit log")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().BoolVar(&flagAudit, "audit", false, "append a record to the audit log")
	cmd.Flags().StringVar(&flagIgnore, "ignore", "", "waive failing items listed in this file (default ./"+ignore.DefaultFile+" when present)")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose", "output")
}

func runRun(cmd *cobra.Command, _ []string) error {
	// Load configs: CLI > local > global
	lcfg, gcfg, err := loadConfigs(flagConfig)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	output := flagOutput
	switch {
	case flagQuiet:
		output = "quiet"
	case flagVerbose:
		output = "verbose"
	}
	opts := runOptions{
		Policy:       pickString(flagPolicy, lcfg.Policy, gcfg.Policy),
		FileContexts: pickString(flagFC, lcfg.FileContexts, gcfg.FileContexts),
		Profile:      pickString(flagProfile, lcfg.Profile, gcfg.Profile),
		Modules:      pickStrings(flagModules, lcfg.Modules, gcfg.Modules),
		All:          flagAll,
		Output:       pickString(output, lcfg.Output, gcfg.Output),
		JSON:         flagJSON,
		SARIF:        flagSARIF,
		FailOn:       pickString(flagFailOn, lcfg.FailOn, gcfg.FailOn),
		NoColor:      pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor),
		Debug:        pickBool(flagDebug, lcfg.Debug, gcfg.Debug),
		Save:         flagSave,
		CacheDir:     pickString(flagCacheDir, lcfg.CacheDir, gcfg.CacheDir),
		MetricsFile:  pickString(flagMetricsFile, lcfg.MetricsFile, gcfg.MetricsFile),
		Audit:        pickBool(flagAudit, lcfg.Audit, gcfg.Audit),
		Ignore:       pickString(flagIgnore, lcfg.Ignore, gcfg.Ignore),
	}
	code, err := check(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if code != 0 {
		return exitError{code: code}
	}
	return nil
}

// check runs the selected modules and renders the outcome to stdout. It
// returns 1 when a failing item reaches the fail-on threshold.
func check(opts runOptions, stdout, stderr io.Writer) (int, error) {
	threshold, err := report.ParseFailOn(opts.FailOn)
	if err != nil {
		return 0, fmt.Errorf("fail-on: %w", err)
	}
	waivers, err := loadWaivers(opts.Ignore)
	if err != nil {
		return 0, err
	}
	log, err := logging.New(opts.Debug)
	if err != nil {
		return 0, err
	}
	defer func() { _ = log.Sync() }()
	rec := metrics.NewRecorder(nil)

	lib, err := engine.Open(opts.Policy, opts.FileContexts, engine.WithLogger(log), engine.WithMetrics(rec))
	if err != nil {
		return 0, err
	}
	defer lib.Close()
	if err := modules.Register(lib); err != nil {
		return 0, err
	}
	if err := selectModules(lib, opts); err != nil {
		return 0, err
	}
	if opts.Output != "" {
		f, err := types.ParseOutputFormat(opts.Output)
		if err != nil {
			return 0, fmt.Errorf("output: %w", err)
		}
		if err := lib.OverrideOutputFormat(f); err != nil {
			return 0, err
		}
	}

	start := time.Now()
	if err := lib.Execute(); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	log.Debug("run complete", zap.Duration("elapsed", elapsed), zap.Strings("order", lib.Order()))

	// Waivers go to the live results so modules printing themselves see them.
	live := report.Views(lib)
	if n := waivers.Waive(live); n > 0 {
		fmt.Fprintf(stderr, "%d item(s) waived\n", n)
	}
	views := report.Detach(live)
	switch {
	case opts.SARIF:
		if err := report.WriteSARIF(stdout, views, version); err != nil {
			return 0, fmt.Errorf("sarif error: %w", err)
		}
	case opts.JSON:
		if err := report.WriteJSON(stdout, views); err != nil {
			return 0, err
		}
	default:
		popts := report.PrintOptions{NoColor: !colorEnabled(stdout, opts.NoColor), Summary: true}
		if err := report.PrintAll(stdout, lib, popts); err != nil {
			return 0, err
		}
	}

	failed := report.ShouldFail(views, threshold)
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cache.DefaultDir()
	}

	// Persistence steps warn but never change the outcome of the run.
	if opts.MetricsFile != "" {
		if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
			fmt.Fprintln(stderr, "metrics warning:", err)
		}
	}
	if opts.Save {
		if err := saveSnapshot(cacheDir, opts, views); err != nil {
			fmt.Fprintln(stderr, "cache warning:", err)
		}
	}
	if opts.Audit {
		r := audit.NewRunRecord(opts.Policy, views, elapsed, threshold.String(), failed)
		if err := audit.NewAuditLog(cacheDir).LogRun(r); err != nil {
			fmt.Fprintln(stderr, "audit warning:", err)
		}
	}

	if failed {
		return 1, nil
	}
	return 0, nil
}

// selectModules applies the profile and the name globs. With neither, and
// without --all, every module is selected.
func selectModules(lib *engine.Library, opts runOptions) error {
	if opts.Profile != "" {
		p, err := config.LoadProfile(opts.Profile)
		if err != nil {
			return err
		}
		if err := lib.ApplyProfile(p); err != nil {
			return err
		}
	}
	for _, pattern := range opts.Modules {
		if _, err := lib.SelectMatching(pattern); err != nil {
			return err
		}
	}
	if opts.All || (opts.Profile == "" && len(opts.Modules) == 0) {
		lib.SelectAll()
	}
	return nil
}

// loadWaivers reads path, or the default ignore file when it exists.
func loadWaivers(path string) (ignore.Matcher, error) {
	if path == "" {
		if _, err := os.Stat(ignore.DefaultFile); err != nil {
			return ignore.Matcher{}, nil
		}
		path = ignore.DefaultFile
	}
	return ignore.Load(path)
}

func saveSnapshot(dir string, opts runOptions, views []report.View) error {
	in, err := cache.Fingerprint(opts.Policy, opts.FileContexts)
	if err != nil {
		return err
	}
	return cache.SaveResults(dir, cache.Snapshot{
		Policy:    opts.Policy,
		Inputs:    in,
		Timestamp: time.Now(),
		Modules:   views,
	})
}
