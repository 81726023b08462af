package report

import (
	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/types"
)

// View is what the formatter needs to know about one module. Views are
// plain data so cached runs render exactly like live ones.
type View struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	State       string             `json:"state"`
	Reason      string             `json:"reason,omitempty"`
	Format      types.OutputFormat `json:"format"`
	Result      *types.Result      `json:"result,omitempty"`
}

func (v View) Completed() bool { return v.State == engine.StateCompleted.String() }

// ModuleView snapshots m using the effective format env reports for it.
func ModuleView(env engine.Env, m *engine.Module) View {
	return View{
		Name:        m.Name,
		Description: m.Description,
		State:       m.State().String(),
		Reason:      m.Reason(),
		Format:      env.OutputFormat(m),
		Result:      m.Result(),
	}
}

// Views snapshots every selected module of lib in report order.
func Views(lib *engine.Library) []View {
	mods := lib.ReportOrder()
	out := make([]View, 0, len(mods))
	for _, m := range mods {
		out = append(out, ModuleView(lib, m))
	}
	return out
}

// Detach deep-copies every result so the views outlive the library.
func Detach(views []View) []View {
	out := make([]View, len(views))
	for i, v := range views {
		if v.Result != nil {
			v.Result = v.Result.Clone()
		}
		out[i] = v
	}
	return out
}
