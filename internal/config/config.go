package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for sechecker.
type FileConfig struct {
	Policy       *string  `yaml:"policy"`
	FileContexts *string  `yaml:"file_contexts"`
	Profile      *string  `yaml:"profile"`
	Output       *string  `yaml:"output"`
	FailOn       *string  `yaml:"fail_on"`
	NoColor      *bool    `yaml:"no_color"`
	Debug        *bool    `yaml:"debug"`
	Modules      []string `yaml:"modules"`
	Ignore       *string  `yaml:"ignore"`

	// Persistence
	CacheDir    *string `yaml:"cache_dir"`
	MetricsFile *string `yaml:"metrics_file"`
	Audit       *bool   `yaml:"audit"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLocal searches dir for .sechecker.yml/.yaml, then sechecker.yml/.yaml.
func LoadLocal(dir string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".sechecker.yml", ".sechecker.yaml", "sechecker.yml", "sechecker.yaml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// LoadGlobal loads $XDG_CONFIG_HOME/sechecker/config.yml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return cfg, errors.New("no config dir")
	}
	p := filepath.Join(base, "sechecker", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}
