package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrDuplicateName    = errors.New("duplicate module name")
	ErrDuplicateItem    = errors.New("duplicate item")
	ErrNotFound         = errors.New("not found")
	ErrCyclicDependency = errors.New("cyclic dependency")
)

// CycleError reports the module at which a dependency cycle was closed and
// the path that led back to it.
type CycleError struct {
	Module string
	Path   []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%v at module %q", ErrCyclicDependency, e.Module)
	}
	return fmt.Sprintf("%v at module %q (%s)", ErrCyclicDependency, e.Module, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }
