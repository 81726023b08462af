package modules

import (
	"fmt"

	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/types"
)

const (
	optDomainAttribute   = "domain_attribute"
	optFileTypeAttribute = "file_type_attribute"

	objectRole = "object_r"
)

func findDomains() *engine.Module {
	m := evidenceModule(FindDomains,
		"Find all types in the policy treated as a domain.",
		types.KindType, runFindDomains)
	m.Options = []types.NameValue{{Name: optDomainAttribute, Value: "domain"}}
	return m
}

// A type is a domain when it carries a domain attribute or is authorized
// for a role other than object_r.
func runFindDomains(env engine.Env, m *engine.Module, res *types.Result) error {
	p := env.Policy()
	attrIdx := indexOf(p.Attributes())
	for _, t := range p.Types() {
		for _, a := range optionOr(m, optDomainAttribute, "domain") {
			if !t.HasAttribute(a) {
				continue
			}
			if _, err := addProof(res, t.Name, attrIdx[a], types.KindAttribute, types.SevNone,
				fmt.Sprintf("type %s has attribute %s", t.Name, a)); err != nil {
				return err
			}
		}
	}
	for i, r := range p.Roles() {
		if r.Name == objectRole {
			continue
		}
		for _, t := range r.Types {
			if _, err := addProof(res, t, i, types.KindRole, types.SevNone,
				fmt.Sprintf("type %s is authorized for role %s", t, r.Name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func findFileTypes() *engine.Module {
	m := evidenceModule(FindFileTypes,
		"Find all types in the policy treated as a file type.",
		types.KindType, runFindFileTypes)
	m.Options = []types.NameValue{{Name: optFileTypeAttribute, Value: "file_type"}}
	return m
}

// A type is a file type when it carries a file type attribute or labels a
// file context entry, by name or alias.
func runFindFileTypes(env engine.Env, m *engine.Module, res *types.Result) error {
	p := env.Policy()
	attrIdx := indexOf(p.Attributes())
	decls := p.Types()
	canonical := make(map[string]string, len(decls))
	for _, t := range decls {
		canonical[t.Name] = t.Name
		for _, a := range t.Aliases {
			canonical[a] = t.Name
		}
		for _, a := range optionOr(m, optFileTypeAttribute, "file_type") {
			if !t.HasAttribute(a) {
				continue
			}
			if _, err := addProof(res, t.Name, attrIdx[a], types.KindAttribute, types.SevNone,
				fmt.Sprintf("type %s has attribute %s", t.Name, a)); err != nil {
				return err
			}
		}
	}
	for _, fc := range p.FileContexts() {
		if fc.Context == nil {
			continue
		}
		name, ok := canonical[fc.Context.Type]
		if !ok {
			continue
		}
		it, err := item(res, name)
		if err != nil {
			return err
		}
		pr, err := types.NewProof(fc.Line, types.KindFileContext,
			fmt.Sprintf("type %s labels %s", name, fc.Path), types.SevNone)
		if err != nil {
			return err
		}
		it.AddProof(pr.WithMarkup(fileContextLine(fc.Path, fc.FileType, fc.Context.String())))
	}
	return nil
}

func domainAndFileType() *engine.Module {
	m := evidenceModule(DomainAndFileType,
		"Find all types that are treated as both a domain and a file type.",
		types.KindType, runDomainAndFileType)
	m.Dependencies = []types.NameValue{{Name: FindDomains}, {Name: FindFileTypes}}
	return m
}

func runDomainAndFileType(env engine.Env, _ *engine.Module, res *types.Result) error {
	domains, err := env.Result(FindDomains)
	if err != nil {
		return err
	}
	files, err := env.Result(FindFileTypes)
	if err != nil {
		return err
	}
	typeIdx := map[string]int{}
	for i, t := range env.Policy().Types() {
		typeIdx[t.Name] = i
	}
	for _, d := range domains.Items() {
		f, ok := files.Item(d.ID)
		if !ok {
			continue
		}
		it, err := addProof(res, d.ID, typeIdx[d.ID], types.KindType, types.SevHigh,
			fmt.Sprintf("type %s is both a domain and a file type", d.ID))
		if err != nil {
			return err
		}
		for _, src := range [][]types.Proof{d.Proofs(), f.Proofs()} {
			for _, p := range src {
				it.AddProof(p.Duplicate())
			}
		}
	}
	return nil
}

func indexOf(names []string) map[string]int {
	out := make(map[string]int, len(names))
	for i, n := range names {
		out[n] = i
	}
	return out
}

func fileContextLine(path, fileType, ctx string) string {
	if fileType == "" {
		return path + " " + ctx
	}
	return path + " " + fileType + " " + ctx
}
