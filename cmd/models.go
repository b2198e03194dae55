package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"polyvibe/proxy"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model catalogue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printModels(cmd.OutOrStdout(), proxy.Catalogue(newUpstream(cfg)), modelsJSON)
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print the catalogue as JSON")
}

func printModels(w io.Writer, models []proxy.ModelInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(proxy.ModelsResponse{Models: models})
	}

	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)
	for _, m := range models {
		mark := dim.Sprint("·")
		if m.Available {
			mark = green.Sprint("✓")
		}
		fmt.Fprintf(w, "  %s %-14s %-10s %s\n", mark, m.ID, m.Provider, dim.Sprint(m.Description))
	}
	return nil
}
