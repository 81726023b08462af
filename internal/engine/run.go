package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sechecker/sechecker/internal/types"
)

// Prepare evaluates every module against the selection, its requirements
// and its dependencies, then orders the eligible modules by dependency. A
// dependency cycle fails the whole preparation and no module runs.
//
// Calling Prepare after a run discards all previous results and private
// data so that the next run starts from scratch.
func (l *Library) Prepare() error {
	if l.closed {
		return fmt.Errorf("%w: library is closed", types.ErrInvalidArgument)
	}
	mods := l.registry.Modules()
	for _, m := range mods {
		m.release()
		m.setState(StateRegistered, "")
	}
	l.order = nil
	l.prepared = false

	for _, m := range mods {
		if reason, ok := l.eligibility(m); !ok {
			l.skip(m, reason)
			continue
		}
		m.setState(StateEligible, "")
	}

	order, err := dependencyOrder(mods,
		func(name string) *Module {
			m, _ := l.registry.Lookup(name)
			return m
		},
		func(m *Module) bool { return m.state == StateEligible },
	)
	if err != nil {
		for _, m := range mods {
			if m.state == StateEligible {
				m.setState(StateRegistered, "")
			}
		}
		return fmt.Errorf("prepare: %w", err)
	}
	l.order = order
	l.prepared = true
	l.log.Debug("modules prepared", zap.Strings("order", order))
	return nil
}

func (l *Library) eligibility(m *Module) (string, bool) {
	if !l.selected[m.Name] {
		return "not selected", false
	}
	if !m.Callbacks.Bound(SlotInit) {
		return "no init callback", false
	}
	if !m.Callbacks.Bound(SlotRun) {
		return "no run callback", false
	}
	if reason, ok := l.unmetRequirement(m); !ok {
		return reason, false
	}
	if reason, ok := l.unmetDependency(m); !ok {
		return reason, false
	}
	return "", true
}

// InitModules invokes the init callback of each eligible module in
// dependency order. A module whose dependency was skipped or failed is
// skipped rather than initialized.
func (l *Library) InitModules() error {
	if !l.prepared {
		if err := l.Prepare(); err != nil {
			return err
		}
	}
	for _, name := range l.order {
		m, err := l.registry.Lookup(name)
		if err != nil {
			return err
		}
		if m.state != StateEligible {
			continue
		}
		if reason, ok := l.dependenciesReached(m, StateInitialized); !ok {
			l.skip(m, reason)
			continue
		}
		start := time.Now()
		err = guard(func() error { return m.Callbacks.Init(l, m) })
		l.observePhase(m, "init", time.Since(start))
		if err != nil {
			l.fail(m, fmt.Sprintf("init: %v", err))
			continue
		}
		m.setState(StateInitialized, "")
		l.log.Debug("module initialized", zap.String("module", m.Name))
	}
	return nil
}

// RunModules invokes the run callback of each initialized module in
// dependency order and attaches its result. One module failing never stops
// the others; modules depending on it are skipped.
func (l *Library) RunModules() error {
	if !l.prepared {
		return fmt.Errorf("%w: modules are not prepared", types.ErrInvalidArgument)
	}
	for _, name := range l.order {
		m, err := l.registry.Lookup(name)
		if err != nil {
			return err
		}
		if m.state != StateInitialized {
			continue
		}
		if reason, ok := l.dependenciesReached(m, StateCompleted); !ok {
			l.skip(m, reason)
			continue
		}
		start := time.Now()
		err = guard(func() error { return m.Callbacks.Run(l, m) })
		l.observePhase(m, "run", time.Since(start))
		if err != nil {
			l.fail(m, fmt.Sprintf("run: %v", err))
			continue
		}
		m.setState(StateRan, "")

		var res *types.Result
		if m.Callbacks.Result != nil {
			err = guard(func() error {
				res = m.Callbacks.Result(m)
				return nil
			})
			if err != nil {
				l.fail(m, fmt.Sprintf("get_result: %v", err))
				continue
			}
		}
		m.result = res
		m.setState(StateCompleted, "")
		l.log.Debug("module completed", zap.String("module", m.Name), zap.Int("items", resultLen(res)))
		if l.metrics != nil {
			l.metrics.ObserveResult(res)
		}
	}
	if l.metrics != nil {
		for _, m := range l.SelectedModules() {
			l.metrics.ObserveDisposition(m.Name, m.state.String())
		}
	}
	return nil
}

// Execute prepares, initializes and runs the selected modules.
func (l *Library) Execute() error {
	if err := l.Prepare(); err != nil {
		return err
	}
	if err := l.InitModules(); err != nil {
		return err
	}
	return l.RunModules()
}

// Order is the dependency order computed by the last Prepare.
func (l *Library) Order() []string {
	return append([]string(nil), l.order...)
}

// ReportOrder lists every selected module: first those that took part in
// the run, in run order, then those skipped during preparation, in
// registration order.
func (l *Library) ReportOrder() []*Module {
	seen := make(map[string]bool, len(l.order))
	var out []*Module
	for _, name := range l.order {
		if m, err := l.registry.Lookup(name); err == nil {
			out = append(out, m)
			seen[name] = true
		}
	}
	for _, m := range l.SelectedModules() {
		if !seen[m.Name] {
			out = append(out, m)
		}
	}
	return out
}

// dependenciesReached checks that every dependency of m is at least at
// state want. Order guarantees dependencies were processed first.
func (l *Library) dependenciesReached(m *Module, want State) (string, bool) {
	for _, dep := range m.Dependencies {
		d, err := l.registry.Lookup(dep.Name)
		if err != nil {
			return fmt.Sprintf("dependency %s not registered", dep.Name), false
		}
		switch {
		case d.state == StateSkipped:
			return fmt.Sprintf("dependency %s skipped", d.Name), false
		case d.state == StateFailed:
			return fmt.Sprintf("dependency %s failed", d.Name), false
		case d.state < want:
			return fmt.Sprintf("dependency %s %s", d.Name, d.state), false
		}
	}
	return "", true
}

func (l *Library) skip(m *Module, reason string) {
	m.setState(StateSkipped, reason)
	l.log.Debug("module skipped", zap.String("module", m.Name), zap.String("reason", reason))
}

func (l *Library) fail(m *Module, reason string) {
	m.result = nil
	m.setState(StateFailed, reason)
	l.log.Warn("module failed", zap.String("module", m.Name), zap.String("reason", reason))
}

func (l *Library) observePhase(m *Module, phase string, d time.Duration) {
	if l.metrics != nil {
		l.metrics.ObservePhase(m.Name, phase, d)
	}
}

// guard turns a panicking callback into an error so one module cannot take
// down the run.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func resultLen(r *types.Result) int {
	if r == nil {
		return 0
	}
	return r.Len()
}
