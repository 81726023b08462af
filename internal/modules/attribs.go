package modules

import (
	"fmt"

	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/types"
)

func attribsWoTypes() *engine.Module {
	return evidenceModule(AttribsWoTypes,
		"Find attributes that no type is assigned to.",
		types.KindAttribute, runAttribsWoTypes)
}

func runAttribsWoTypes(env engine.Env, _ *engine.Module, res *types.Result) error {
	p := env.Policy()
	used := map[string]bool{}
	for _, t := range p.Types() {
		for _, a := range t.Attributes {
			used[a] = true
		}
	}
	for i, a := range p.Attributes() {
		if used[a] {
			continue
		}
		if _, err := addProof(res, a, i, types.KindAttribute, types.SevLow,
			fmt.Sprintf("attribute %s has no member types", a)); err != nil {
			return err
		}
	}
	return nil
}

func unusedBools() *engine.Module {
	m := evidenceModule(UnusedBools,
		"Find booleans not used in any conditional expression.",
		types.KindBoolean, runUnusedBools)
	m.Requirements = []types.NameValue{{Name: engine.ReqPolicyType, Value: "source"}}
	return m
}

func runUnusedBools(env engine.Env, _ *engine.Module, res *types.Result) error {
	for i, b := range env.Policy().Booleans() {
		if b.Conditional {
			continue
		}
		if _, err := addProof(res, b.Name, i, types.KindBoolean, types.SevMinimal,
			fmt.Sprintf("boolean %s (default %t) is not used in any conditional expression", b.Name, b.State)); err != nil {
			return err
		}
	}
	return nil
}
