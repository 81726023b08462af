package sechecker

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/sechecker/sechecker/internal/config"
)

// loadConfigs returns the local and global config layers. An explicit
// --config file replaces the local layer and must exist.
func loadConfigs(explicit string) (local, global config.FileConfig, err error) {
	if c, err := config.LoadGlobal(); err == nil {
		global = c
	}
	if explicit != "" {
		local, err = config.LoadFile(explicit)
		return local, global, err
	}
	if wd, err := os.Getwd(); err == nil {
		if c, err := config.LoadLocal(wd); err == nil {
			local = c
		}
	}
	return local, global, nil
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickStrings(cli, local, global []string) []string {
	if len(cli) > 0 {
		return cli
	}
	if len(local) > 0 {
		return local
	}
	return global
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

// colorEnabled reports whether w is a terminal and colour was not disabled.
func colorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
