package core

import (
	"github.com/sechecker/sechecker/internal/config"
	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/modules"
	"github.com/sechecker/sechecker/internal/report"
	"github.com/sechecker/sechecker/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type (
	View         = report.View
	Result       = types.Result
	Item         = types.Item
	Proof        = types.Proof
	Severity     = types.Severity
	OutputFormat = types.OutputFormat
)

// Config selects the policy inputs and the modules to run.
type Config struct {
	Policy       string
	FileContexts string
	// Profile is an optional module profile applied before selection.
	Profile string
	// Modules holds name globs; with no profile and no globs every built-in
	// module runs.
	Modules []string
}

// Analyze runs the built-in modules against the configured policy and
// returns one detached view per selected module in report order.
func Analyze(cfg Config) ([]View, error) {
	lib, err := engine.Open(cfg.Policy, cfg.FileContexts)
	if err != nil {
		return nil, err
	}
	defer lib.Close()
	if err := modules.Register(lib); err != nil {
		return nil, err
	}
	if cfg.Profile != "" {
		p, err := config.LoadProfile(cfg.Profile)
		if err != nil {
			return nil, err
		}
		if err := lib.ApplyProfile(p); err != nil {
			return nil, err
		}
	}
	for _, g := range cfg.Modules {
		if _, err := lib.SelectMatching(g); err != nil {
			return nil, err
		}
	}
	if cfg.Profile == "" && len(cfg.Modules) == 0 {
		lib.SelectAll()
	}
	if err := lib.Execute(); err != nil {
		return nil, err
	}
	return report.Detach(report.Views(lib)), nil
}

// ModuleNames lists the built-in modules in registration order.
func ModuleNames() []string {
	var out []string
	for _, m := range modules.All() {
		out = append(out, m.Name)
	}
	return out
}

// ShouldFail reports whether any view holds a failing item at or above
// threshold.
func ShouldFail(views []View, threshold Severity) bool { return report.ShouldFail(views, threshold) }
