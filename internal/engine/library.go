package engine

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/sechecker/sechecker/internal/config"
	"github.com/sechecker/sechecker/internal/metrics"
	"github.com/sechecker/sechecker/internal/policy"
	"github.com/sechecker/sechecker/internal/types"
)

// DefaultOutputFormat is used when no format is configured.
const DefaultOutputFormat = types.OutShort

var _ Env = (*Library)(nil)

// Library is one engine instance. It owns its modules, the selection set and
// the shared policy handle; there is no process-wide engine state.
type Library struct {
	policy   policy.Policy
	registry *Registry
	selected map[string]bool
	format   types.OutputFormat

	order    []string
	prepared bool
	closed   bool

	log     *zap.Logger
	metrics *metrics.Recorder
}

type Option func(*Library)

func WithLogger(log *zap.Logger) Option {
	return func(l *Library) {
		if log != nil {
			l.log = log
		}
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(l *Library) { l.metrics = r }
}

func WithOutputFormat(f types.OutputFormat) Option {
	return func(l *Library) {
		if f != 0 {
			l.format = f
		}
	}
}

// New builds a library over an already-loaded policy.
func New(p policy.Policy, opts ...Option) (*Library, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: policy handle is required", types.ErrInvalidArgument)
	}
	l := &Library{
		policy:   p,
		registry: NewRegistry(),
		selected: map[string]bool{},
		format:   DefaultOutputFormat,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Open loads the policy fact sheet and optional file contexts and builds a
// library over them.
func Open(policyPath, fcPath string, opts ...Option) (*Library, error) {
	p, err := policy.Open(policyPath, fcPath)
	if err != nil {
		return nil, err
	}
	return New(p, opts...)
}

func (l *Library) Policy() policy.Policy { return l.policy }

func (l *Library) Registry() *Registry { return l.registry }

// Register adds a module definition to the library.
func (l *Library) Register(m *Module) (*Module, error) {
	if l.closed {
		return nil, fmt.Errorf("%w: library is closed", types.ErrInvalidArgument)
	}
	h, err := l.registry.Register(m)
	if err != nil {
		return nil, err
	}
	h.setState(StateRegistered, "")
	l.prepared = false
	return h, nil
}

func (l *Library) Module(name string) (*Module, error) { return l.registry.Lookup(name) }

func (l *Library) Modules() []*Module { return l.registry.Modules() }

// Select marks the named modules to run. Either all names are selected or,
// on error, none are.
func (l *Library) Select(names ...string) error {
	for _, n := range names {
		if _, err := l.registry.Lookup(n); err != nil {
			return err
		}
	}
	for _, n := range names {
		l.selected[n] = true
	}
	l.prepared = false
	return nil
}

// SelectMatching selects every module whose name matches the glob pattern
// and returns how many matched.
func (l *Library) SelectMatching(pattern string) (int, error) {
	if !doublestar.ValidatePattern(pattern) {
		return 0, fmt.Errorf("%w: bad module pattern %q", types.ErrInvalidArgument, pattern)
	}
	var names []string
	for _, m := range l.registry.Modules() {
		if ok, _ := doublestar.Match(pattern, m.Name); ok {
			names = append(names, m.Name)
		}
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("no module matches %q: %w", pattern, types.ErrNotFound)
	}
	return len(names), l.Select(names...)
}

func (l *Library) SelectAll() {
	for _, m := range l.registry.Modules() {
		l.selected[m.Name] = true
	}
	l.prepared = false
}

func (l *Library) Deselect(names ...string) error {
	for _, n := range names {
		if _, err := l.registry.Lookup(n); err != nil {
			return err
		}
	}
	for _, n := range names {
		delete(l.selected, n)
	}
	l.prepared = false
	return nil
}

func (l *Library) Selected(name string) bool { return l.selected[name] }

// SelectedModules returns the selected modules in registration order.
func (l *Library) SelectedModules() []*Module {
	var out []*Module
	for _, m := range l.registry.Modules() {
		if l.selected[m.Name] {
			out = append(out, m)
		}
	}
	return out
}

// Format is the library-wide output format.
func (l *Library) Format() types.OutputFormat { return l.format }

func (l *Library) SetOutputFormat(f types.OutputFormat) error {
	if f == 0 {
		return fmt.Errorf("%w: empty output format", types.ErrInvalidArgument)
	}
	l.format = f
	return nil
}

// OverrideOutputFormat sets the library format and every module's own
// format, as command-line verbosity flags do.
func (l *Library) OverrideOutputFormat(f types.OutputFormat) error {
	if err := l.SetOutputFormat(f); err != nil {
		return err
	}
	for _, m := range l.registry.Modules() {
		m.OutputFormat = f
	}
	return nil
}

// OutputFormat returns m's own format, or the library format when m has none.
func (l *Library) OutputFormat(m *Module) types.OutputFormat {
	if m != nil && m.OutputFormat != 0 {
		return m.OutputFormat
	}
	return l.format
}

// Result returns a copy of the evidence of a completed module. Changes to
// the copy never reach the module's own result.
func (l *Library) Result(name string) (*types.Result, error) {
	m, err := l.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if m.state != StateCompleted || m.result == nil {
		return nil, fmt.Errorf("result of %s (state %s): %w", name, m.state, types.ErrNotFound)
	}
	return m.result.Clone(), nil
}

// ApplyProfile merges module declarations into the registered modules and
// selects every module the profile names. Nothing changes when the profile
// names an unregistered module or carries a bad output format.
func (l *Library) ApplyProfile(p config.Profile) error {
	global, err := p.Format()
	if err != nil {
		return err
	}
	formats := make([]types.OutputFormat, len(p.Modules))
	for i, d := range p.Modules {
		if _, err := l.registry.Lookup(d.Name); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		if formats[i], err = d.Format(); err != nil {
			return fmt.Errorf("profile module %s: %w", d.Name, err)
		}
	}
	if global != 0 {
		l.format = global
	}
	for i, d := range p.Modules {
		m, _ := l.registry.Lookup(d.Name)
		if d.Options != nil {
			m.Options = append([]types.NameValue(nil), d.Options...)
		}
		if d.Requirements != nil {
			m.Requirements = append([]types.NameValue(nil), d.Requirements...)
		}
		if d.Dependencies != nil {
			m.Dependencies = append([]types.NameValue(nil), d.Dependencies...)
		}
		if formats[i] != 0 {
			m.OutputFormat = formats[i]
		}
		l.selected[m.Name] = true
	}
	l.prepared = false
	return nil
}

// Close releases every module's private data and result and empties the
// registry. The library cannot be used afterwards.
func (l *Library) Close() {
	if l.closed {
		return
	}
	for _, m := range l.registry.Modules() {
		m.release()
	}
	l.registry.clear()
	l.selected = map[string]bool{}
	l.order = nil
	l.prepared = false
	l.closed = true
	_ = l.log.Sync()
}
