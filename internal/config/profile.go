package config

import (
	"fmt"
	"os"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v3"

	"github.com/sechecker/sechecker/internal/types"
)

// ProfileMajor is the only profile format major version this build reads.
const ProfileMajor = 1

// ModuleDecl declares one module inside a profile. Nil lists leave the
// module's built-in declarations alone.
type ModuleDecl struct {
	Name         string            `yaml:"name"`
	Output       string            `yaml:"output"`
	Options      []types.NameValue `yaml:"options"`
	Requirements []types.NameValue `yaml:"requirements"`
	Dependencies []types.NameValue `yaml:"dependencies"`
}

// Format parses Output; an empty value yields 0.
func (d ModuleDecl) Format() (types.OutputFormat, error) {
	if d.Output == "" {
		return 0, nil
	}
	return types.ParseOutputFormat(d.Output)
}

// Profile is the root of a module declaration document.
type Profile struct {
	Version string       `yaml:"version"`
	Output  string       `yaml:"output"`
	Modules []ModuleDecl `yaml:"modules"`
}

func (p Profile) Format() (types.OutputFormat, error) {
	if p.Output == "" {
		return 0, nil
	}
	return types.ParseOutputFormat(p.Output)
}

// Names lists the declared module names in document order.
func (p Profile) Names() []string {
	out := make([]string, 0, len(p.Modules))
	for _, m := range p.Modules {
		out = append(out, m.Name)
	}
	return out
}

// Validate checks the version, output keywords and module names.
func (p Profile) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("%w: profile version is required", types.ErrInvalidArgument)
	}
	v, err := semver.ParseTolerant(p.Version)
	if err != nil {
		return fmt.Errorf("%w: profile version %q: %v", types.ErrInvalidArgument, p.Version, err)
	}
	if v.Major != ProfileMajor {
		return fmt.Errorf("%w: profile version %s not supported (want %d.x)", types.ErrInvalidArgument, v, ProfileMajor)
	}
	if _, err := p.Format(); err != nil {
		return err
	}
	seen := map[string]bool{}
	for i, m := range p.Modules {
		if m.Name == "" {
			return fmt.Errorf("%w: module %d has no name", types.ErrInvalidArgument, i)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: %s declared twice", types.ErrDuplicateName, m.Name)
		}
		seen[m.Name] = true
		if _, err := m.Format(); err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
		for _, nv := range append(append(append([]types.NameValue(nil), m.Options...), m.Requirements...), m.Dependencies...) {
			if nv.Name == "" {
				return fmt.Errorf("%w: module %s has an entry without a name", types.ErrInvalidArgument, m.Name)
			}
		}
	}
	return nil
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(b []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func LoadProfile(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	return ParseProfile(b)
}
