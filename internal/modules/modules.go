package modules

import (
	"fmt"

	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/types"
)

// Names of the built-in modules.
const (
	FindDomains       = "find_domains"
	FindFileTypes     = "find_file_types"
	DomainAndFileType = "domain_and_file_type"
	AttribsWoTypes    = "attribs_wo_types"
	UnusedBools       = "unused_bools"
)

// checkFunc fills res from the policy handed out by env.
type checkFunc func(env engine.Env, m *engine.Module, res *types.Result) error

// evidenceModule wires the common callback table: init allocates an empty
// Result as module data, run fills it, get_result hands it to the library.
func evidenceModule(name, desc string, kind types.EntityKind, check checkFunc) *engine.Module {
	return &engine.Module{
		Name:        name,
		Description: desc,
		Callbacks: engine.Callbacks{
			Init: func(_ engine.Env, m *engine.Module) error {
				res, err := types.NewResult(m.Name, kind)
				if err != nil {
					return err
				}
				m.Data = res
				return nil
			},
			Run: func(env engine.Env, m *engine.Module) error {
				res, ok := m.Data.(*types.Result)
				if !ok {
					return fmt.Errorf("%s: module data not initialized", m.Name)
				}
				return check(env, m, res)
			},
			Free: func(m *engine.Module) { m.Data = nil },
			Result: func(m *engine.Module) *types.Result {
				res, _ := m.Data.(*types.Result)
				return res
			},
		},
	}
}

// All returns fresh instances of every built-in module in registration
// order.
func All() []*engine.Module {
	return []*engine.Module{
		findDomains(),
		findFileTypes(),
		domainAndFileType(),
		attribsWoTypes(),
		unusedBools(),
	}
}

// Register adds every built-in module to lib.
func Register(lib *engine.Library) error {
	for _, m := range All() {
		if _, err := lib.Register(m); err != nil {
			return fmt.Errorf("register %s: %w", m.Name, err)
		}
	}
	return nil
}

// item returns the item for id in res, adding a failing item when absent.
func item(res *types.Result, id string) (*types.Item, error) {
	if it, ok := res.Item(id); ok {
		return it, nil
	}
	it := types.NewItem(id)
	if err := res.AddItem(it); err != nil {
		return nil, err
	}
	return it, nil
}

// addProof attaches a new proof to the item for id.
func addProof(res *types.Result, id string, index int, kind types.EntityKind, sev types.Severity, text string) (*types.Item, error) {
	it, err := item(res, id)
	if err != nil {
		return nil, err
	}
	p, err := types.NewProof(index, kind, text, sev)
	if err != nil {
		return nil, err
	}
	it.AddProof(p)
	return it, nil
}

// optionOr returns every value of the named option, or def when unset.
func optionOr(m *engine.Module, name, def string) []string {
	if vs := m.OptionValues(name); len(vs) > 0 {
		return vs
	}
	return []string{def}
}
