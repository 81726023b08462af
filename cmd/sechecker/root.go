package sechecker

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagJSON    bool
	flagSARIF   bool
	flagNoColor bool
	flagDebug   bool

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the sechecker CLI.
var rootCmd = &cobra.Command{
	Use:           "sechecker",
	Short:         "Run modular checks against an SELinux policy",
	Long:          "sechecker runs pluggable check modules against an SELinux policy and its file contexts and reports the policy entities they flag, with severity-ranked proof.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code without an error message.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the sechecker CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./.sechecker.yml, then ~/.config/sechecker/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log engine activity to stderr")
}
