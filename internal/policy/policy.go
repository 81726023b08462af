package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sechecker/sechecker/internal/types"
)

// Type distinguishes source policies from compiled binary policies.
type Type int

const (
	TypeSource Type = iota + 1
	TypeBinary
)

func (t Type) String() string {
	switch t {
	case TypeSource:
		return "source"
	case TypeBinary:
		return "binary"
	}
	return "unknown"
}

// ParseType accepts "source" or "binary".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source":
		return TypeSource, nil
	case "binary":
		return TypeBinary, nil
	}
	return 0, fmt.Errorf("%w: policy type %q", types.ErrInvalidArgument, s)
}

type TypeDecl struct {
	Name       string   `yaml:"name"`
	Attributes []string `yaml:"attributes"`
	Aliases    []string `yaml:"aliases"`
}

// HasAttribute reports whether the type carries attr.
func (t TypeDecl) HasAttribute(attr string) bool {
	for _, a := range t.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string   `yaml:"name"`
	Types []string `yaml:"types"`
}

type Boolean struct {
	Name        string `yaml:"name"`
	State       bool   `yaml:"state"`
	Conditional bool   `yaml:"conditional"`
}

// Policy is the read-only handle shared by every module. Implementations
// return copies from every enumeration so callers cannot mutate shared state.
type Policy interface {
	Version() int
	Type() Type
	SELinuxEnabled() bool
	MLS() bool
	MLSSystem() bool

	Types() []TypeDecl
	Attributes() []string
	Roles() []Role
	Booleans() []Boolean
	Boolean(name string) (Boolean, error)
	FileContexts() []FileContext
}

// Facts is the on-disk YAML shape of a policy fact sheet.
type Facts struct {
	Version        int        `yaml:"version"`
	Type           string     `yaml:"type"`
	MLS            bool       `yaml:"mls"`
	SELinuxEnabled *bool      `yaml:"selinux_enabled"`
	MLSSystem      *bool      `yaml:"mls_system"`
	Attributes     []string   `yaml:"attributes"`
	Types          []TypeDecl `yaml:"types"`
	Roles          []Role     `yaml:"roles"`
	Booleans       []Boolean  `yaml:"booleans"`
}

// File is a Policy backed by a fact sheet and a file_contexts file.
type File struct {
	path      string
	version   int
	typ       Type
	mls       bool
	selinux   bool
	mlsSystem bool
	attrs     []string
	types     []TypeDecl
	roles     []Role
	bools     []Boolean
	boolIndex map[string]int
	fc        []FileContext
}

// Open reads the fact sheet at policyPath and, when fcPath is non-empty, the
// file_contexts file at fcPath.
func Open(policyPath, fcPath string) (*File, error) {
	if policyPath == "" {
		return nil, fmt.Errorf("%w: policy path is required", types.ErrInvalidArgument)
	}
	b, err := os.ReadFile(policyPath)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	var facts Facts
	if err := yaml.Unmarshal(b, &facts); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", policyPath, err)
	}
	var fc []FileContext
	if fcPath != "" {
		f, err := os.Open(fcPath)
		if err != nil {
			return nil, fmt.Errorf("read file contexts: %w", err)
		}
		defer f.Close()
		if fc, err = ParseFileContexts(f); err != nil {
			return nil, fmt.Errorf("parse file contexts %s: %w", fcPath, err)
		}
	}
	p, err := FromFacts(facts, fc)
	if err != nil {
		return nil, err
	}
	p.path = policyPath
	return p, nil
}

// FromFacts builds a policy from an in-memory fact sheet. Host facts that
// the sheet leaves unset are probed from the running system.
func FromFacts(facts Facts, fc []FileContext) (*File, error) {
	typ, err := ParseType(facts.Type)
	if err != nil {
		return nil, err
	}
	p := &File{
		version:   facts.Version,
		typ:       typ,
		mls:       facts.MLS,
		attrs:     append([]string(nil), facts.Attributes...),
		types:     append([]TypeDecl(nil), facts.Types...),
		roles:     append([]Role(nil), facts.Roles...),
		bools:     append([]Boolean(nil), facts.Booleans...),
		boolIndex: make(map[string]int, len(facts.Booleans)),
		fc:        append([]FileContext(nil), fc...),
	}
	for i, b := range p.bools {
		if _, dup := p.boolIndex[b.Name]; dup {
			return nil, fmt.Errorf("%w: boolean %q declared twice", types.ErrInvalidArgument, b.Name)
		}
		p.boolIndex[b.Name] = i
	}
	if facts.SELinuxEnabled != nil {
		p.selinux = *facts.SELinuxEnabled
	} else {
		p.selinux = hostSELinuxEnabled()
	}
	if facts.MLSSystem != nil {
		p.mlsSystem = *facts.MLSSystem
	} else {
		p.mlsSystem = hostMLSEnabled()
	}
	return p, nil
}

func (p *File) Path() string         { return p.path }
func (p *File) Version() int         { return p.version }
func (p *File) Type() Type           { return p.typ }
func (p *File) SELinuxEnabled() bool { return p.selinux }
func (p *File) MLS() bool            { return p.mls }
func (p *File) MLSSystem() bool      { return p.mlsSystem }

func (p *File) Attributes() []string { return append([]string(nil), p.attrs...) }

func (p *File) Types() []TypeDecl {
	out := make([]TypeDecl, len(p.types))
	for i, t := range p.types {
		out[i] = TypeDecl{
			Name:       t.Name,
			Attributes: append([]string(nil), t.Attributes...),
			Aliases:    append([]string(nil), t.Aliases...),
		}
	}
	return out
}

func (p *File) Roles() []Role {
	out := make([]Role, len(p.roles))
	for i, r := range p.roles {
		out[i] = Role{Name: r.Name, Types: append([]string(nil), r.Types...)}
	}
	return out
}

func (p *File) Booleans() []Boolean { return append([]Boolean(nil), p.bools...) }

// Boolean looks up a boolean by name.
func (p *File) Boolean(name string) (Boolean, error) {
	if name == "" {
		return Boolean{}, fmt.Errorf("%w: boolean name is required", types.ErrInvalidArgument)
	}
	i, ok := p.boolIndex[name]
	if !ok {
		return Boolean{}, fmt.Errorf("boolean %s: %w", name, types.ErrNotFound)
	}
	return p.bools[i], nil
}

func (p *File) FileContexts() []FileContext {
	out := make([]FileContext, len(p.fc))
	for i, fc := range p.fc {
		out[i] = fc
		if fc.Context != nil {
			c := *fc.Context
			out[i].Context = &c
		}
	}
	return out
}

const selinuxMount = "/sys/fs/selinux"

func hostSELinuxEnabled() bool {
	_, err := os.Stat(selinuxMount + "/enforce")
	return err == nil
}

func hostMLSEnabled() bool {
	b, err := os.ReadFile(selinuxMount + "/mls")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(b)) == "1"
}
