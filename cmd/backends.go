package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgate/internal/backend"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List configured backends and their availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		return backendsRun()
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func backendsRun() error {
	apiKey := viper.GetString("anthropic.api_key")

	table := ui.Table([]string{"NAME", "KIND", "COMMAND / MODEL", "AVAILABLE"})
	for _, name := range registry.Names() {
		recipe := registry[name]

		target := strings.Join(recipe.Command, " ")
		if recipe.Kind == backend.KindAPI {
			target = recipe.Model
		}

		available := "no"
		if inv, err := backend.New(registry, name, apiKey); err == nil {
			if err := inv.Check(); err == nil {
				available = "yes"
			}
		}

		table.Append([]string{name, string(recipe.Kind), target, available})
	}
	table.Render()
	return nil
}
