package engine

import (
	"github.com/sechecker/sechecker/internal/types"
)

const (
	unvisited = iota
	visiting
	visited
)

// dependencyOrder sorts mods so that every module follows its dependencies.
// Only modules accepted by include take part. Roots are visited in the order
// given and dependencies in declaration order, so the result is stable.
func dependencyOrder(mods []*Module, lookup func(string) *Module, include func(*Module) bool) ([]string, error) {
	mark := make(map[string]int, len(mods))
	order := make([]string, 0, len(mods))

	var visit func(m *Module, path []string) error
	visit = func(m *Module, path []string) error {
		switch mark[m.Name] {
		case visited:
			return nil
		case visiting:
			return &types.CycleError{Module: m.Name, Path: cyclePath(path, m.Name)}
		}
		mark[m.Name] = visiting
		path = append(path, m.Name)
		for _, dep := range m.Dependencies {
			d := lookup(dep.Name)
			if d == nil || !include(d) {
				continue
			}
			if err := visit(d, path); err != nil {
				return err
			}
		}
		mark[m.Name] = visited
		order = append(order, m.Name)
		return nil
	}

	for _, m := range mods {
		if !include(m) {
			continue
		}
		if err := visit(m, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cyclePath trims path to start at the first occurrence of name and closes
// the loop.
func cyclePath(path []string, name string) []string {
	start := 0
	for i, p := range path {
		if p == name {
			start = i
			break
		}
	}
	out := append([]string(nil), path[start:]...)
	return append(out, name)
}
