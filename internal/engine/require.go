package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sechecker/sechecker/internal/policy"
	"github.com/sechecker/sechecker/internal/types"
)

// Requirement keys understood by the evaluator.
const (
	ReqPolicyType    = "policy_type"
	ReqPolicyVersion = "policy_version"
	ReqSELinux       = "selinux"
	ReqMLSPolicy     = "mls_policy"
	ReqMLSSystem     = "mls_system"
)

// CheckRequirement reports whether every requirement declared by m holds
// against the library's policy. Unknown keys are satisfied so that profiles
// written for newer engines still load.
func (l *Library) CheckRequirement(m *Module) bool {
	_, ok := l.unmetRequirement(m)
	return ok
}

// CheckDependency reports whether every dependency of m is registered and
// selected.
func (l *Library) CheckDependency(m *Module) bool {
	_, ok := l.unmetDependency(m)
	return ok
}

func (l *Library) unmetRequirement(m *Module) (string, bool) {
	for _, req := range m.Requirements {
		ok, known := evalRequirement(req, l.policy)
		if !known {
			l.log.Debug("unknown requirement treated as satisfied",
				zap.String("module", m.Name), zap.String("requirement", req.String()))
			continue
		}
		if !ok {
			return fmt.Sprintf("requirement %s not met", req), false
		}
	}
	return "", true
}

func (l *Library) unmetDependency(m *Module) (string, bool) {
	for _, dep := range m.Dependencies {
		d, err := l.registry.Lookup(dep.Name)
		if err != nil {
			return fmt.Sprintf("dependency %s not registered", dep.Name), false
		}
		if !l.selected[d.Name] {
			return fmt.Sprintf("dependency %s not selected", dep.Name), false
		}
	}
	return "", true
}

// evalRequirement returns (satisfied, known).
func evalRequirement(req types.NameValue, p policy.Policy) (bool, bool) {
	switch req.Name {
	case ReqPolicyType:
		want, err := policy.ParseType(req.Value)
		if err != nil {
			return false, true
		}
		return p.Type() == want, true
	case ReqPolicyVersion:
		least, err := strconv.Atoi(strings.TrimSpace(req.Value))
		if err != nil {
			return false, true
		}
		return p.Version() >= least, true
	case ReqSELinux:
		return flagMatches(req.Value, p.SELinuxEnabled()), true
	case ReqMLSPolicy:
		return flagMatches(req.Value, p.MLS()), true
	case ReqMLSSystem:
		return flagMatches(req.Value, p.MLSSystem()), true
	}
	return true, false
}

// flagMatches treats an empty value as "true".
func flagMatches(value string, actual bool) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return actual
	}
	want, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return want == actual
}
