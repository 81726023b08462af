package engine

import (
	"fmt"

	"github.com/sechecker/sechecker/internal/types"
)

// Registry stores modules by name in registration order. It never invokes
// callbacks.
type Registry struct {
	modules []*Module
	index   map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register adds m. A failed registration leaves the registry unchanged.
func (r *Registry) Register(m *Module) (*Module, error) {
	if m == nil || m.Name == "" {
		return nil, fmt.Errorf("%w: module needs a name", types.ErrInvalidArgument)
	}
	if _, ok := r.index[m.Name]; ok {
		return nil, fmt.Errorf("%w: %s", types.ErrDuplicateName, m.Name)
	}
	r.index[m.Name] = len(r.modules)
	r.modules = append(r.modules, m)
	return m, nil
}

func (r *Registry) Lookup(name string) (*Module, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: module name is required", types.ErrInvalidArgument)
	}
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", name, types.ErrNotFound)
	}
	return r.modules[i], nil
}

// ResolveCallback returns the callback bound to slot of the module named
// name. The value's dynamic type is the slot's func type, e.g. InitFunc for
// SlotInit.
func (r *Registry) ResolveCallback(name string, slot Slot) (any, error) {
	m, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	cb := m.Callbacks.Get(slot)
	if cb == nil {
		return nil, fmt.Errorf("module %s callback %s: %w", name, slot, types.ErrNotFound)
	}
	return cb, nil
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []*Module {
	out := make([]*Module, len(r.modules))
	copy(out, r.modules)
	return out
}

func (r *Registry) Len() int { return len(r.modules) }

func (r *Registry) clear() {
	r.modules = nil
	r.index = map[string]int{}
}
