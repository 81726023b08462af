package sechecker

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/modules"
	"github.com/sechecker/sechecker/internal/types"
)

type moduleInfo struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Options      []types.NameValue `json:"options,omitempty"`
	Requirements []types.NameValue `json:"requirements,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List available check modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listModules(cmd.OutOrStdout(), modules.All(), flagJSON)
		},
	}
	rootCmd.AddCommand(cmd)
}

func listModules(w io.Writer, mods []*engine.Module, asJSON bool) error {
	infos := make([]moduleInfo, 0, len(mods))
	for _, m := range mods {
		infos = append(infos, moduleInfo{
			Name:         m.Name,
			Description:  m.Description,
			Options:      m.Options,
			Requirements: m.Requirements,
			Dependencies: m.DependencyNames(),
		})
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	table := tablewriter.NewWriter(w)
	table.Header("Module", "Requirements", "Dependencies", "Description")
	for _, in := range infos {
		if err := table.Append([]string{in.Name, joinPairs(in.Requirements), orDash(strings.Join(in.Dependencies, ", ")), in.Description}); err != nil {
			return err
		}
	}
	return table.Render()
}

func joinPairs(nvs []types.NameValue) string {
	parts := make([]string, 0, len(nvs))
	for _, nv := range nvs {
		parts = append(parts, nv.String())
	}
	return orDash(strings.Join(parts, ", "))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
