package engine

import (
	"fmt"
	"io"

	"github.com/sechecker/sechecker/internal/policy"
	"github.com/sechecker/sechecker/internal/types"
)

// State is a module's position in its lifecycle:
// Registered -> Eligible -> Initialized -> Ran -> Completed|Failed|Skipped.
type State int

const (
	StateRegistered State = iota
	StateEligible
	StateInitialized
	StateRan
	StateCompleted
	StateFailed
	StateSkipped
)

var stateNames = [...]string{"registered", "eligible", "initialized", "ran", "completed", "failed", "skipped"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s is one of Completed, Failed or Skipped.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateSkipped
}

// Slot names one of the five callbacks a module may provide.
type Slot int

const (
	SlotInit Slot = iota
	SlotRun
	SlotFree
	SlotPrint
	SlotResult
)

func (s Slot) String() string {
	switch s {
	case SlotInit:
		return "init"
	case SlotRun:
		return "run"
	case SlotFree:
		return "data_free"
	case SlotPrint:
		return "print_output"
	case SlotResult:
		return "get_result"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Env is the view of the library handed to module callbacks.
type Env interface {
	// Policy returns the shared read-only policy handle.
	Policy() policy.Policy
	// Result returns a copy of the result of a module that has already
	// completed.
	Result(module string) (*types.Result, error)
	// OutputFormat returns the effective output format for m.
	OutputFormat(m *Module) types.OutputFormat
}

type (
	InitFunc   func(env Env, m *Module) error
	RunFunc    func(env Env, m *Module) error
	FreeFunc   func(m *Module)
	PrintFunc  func(env Env, m *Module, w io.Writer) error
	ResultFunc func(m *Module) *types.Result
)

// Callbacks is a module's callback table. Init and Run are mandatory for a
// module to ever run; Free, Print and Result may be left nil.
type Callbacks struct {
	Init   InitFunc
	Run    RunFunc
	Free   FreeFunc
	Print  PrintFunc
	Result ResultFunc
}

// Bound reports whether the callback for slot is set.
func (c Callbacks) Bound(slot Slot) bool { return c.Get(slot) != nil }

// Get returns the callback for slot, or nil when it is unset.
func (c Callbacks) Get(slot Slot) any {
	switch slot {
	case SlotInit:
		if c.Init != nil {
			return c.Init
		}
	case SlotRun:
		if c.Run != nil {
			return c.Run
		}
	case SlotFree:
		if c.Free != nil {
			return c.Free
		}
	case SlotPrint:
		if c.Print != nil {
			return c.Print
		}
	case SlotResult:
		if c.Result != nil {
			return c.Result
		}
	}
	return nil
}

// Module is a self-contained check unit hosted by a Library.
type Module struct {
	Name         string
	Description  string
	Options      []types.NameValue
	Requirements []types.NameValue
	Dependencies []types.NameValue
	Callbacks    Callbacks

	// OutputFormat overrides the library format when non-zero.
	OutputFormat types.OutputFormat

	// Data is private to the module's own callbacks.
	Data any

	state  State
	reason string
	result *types.Result
}

func (m *Module) State() State { return m.state }

// Reason explains a Skipped or Failed state.
func (m *Module) Reason() string { return m.reason }

// Result is nil unless the module completed and produced evidence.
func (m *Module) Result() *types.Result {
	if m.state != StateCompleted {
		return nil
	}
	return m.result
}

// Option returns the first value for the named option.
func (m *Module) Option(name string) (string, bool) {
	for _, o := range m.Options {
		if o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// OptionValues returns every value for the named option in declaration order.
func (m *Module) OptionValues(name string) []string {
	var out []string
	for _, o := range m.Options {
		if o.Name == name {
			out = append(out, o.Value)
		}
	}
	return out
}

func (m *Module) DependencyNames() []string {
	out := make([]string, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		out = append(out, d.Name)
	}
	return out
}

func (m *Module) setState(s State, reason string) {
	m.state = s
	m.reason = reason
}

// release drops the result and hands private data back to the module's free
// callback.
func (m *Module) release() {
	if m.Data != nil && m.Callbacks.Free != nil {
		m.Callbacks.Free(m)
	}
	m.Data = nil
	m.result = nil
}
