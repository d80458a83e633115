package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/report"
)

var gateCmd = &cobra.Command{
	Use:   "gate <file>",
	Short: "Review a document and exit nonzero if the gate blocks",
	Long: `Run the multi-backend review and print a terse gate summary. Exits 1
when the merged decision is BLOCK, so the command works as a CI or
pre-publish check.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, _, err := executeReview(cmd, args[0])
		if err != nil {
			return err
		}
		report.Gate(ui.Out, run)
		if run.Gate == models.GateBlock {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	gateCmd.Flags().StringVar(&reviewClaimsFile, "claims", "", "YAML file listing claims to verify")
	gateCmd.Flags().StringVar(&reviewBeliefsFile, "beliefs", "", "Prior-beliefs file to include in the prompt")
	gateCmd.Flags().StringVar(&reviewEntriesDir, "entries", "", "Directory of supporting entries to include")
	gateCmd.Flags().BoolVar(&reviewNoSave, "no-save", false, "Skip saving raw responses and the aggregate")
	gateCmd.Flags().StringVar(&reviewSaveDir, "save-dir", "", "Directory for saved runs (default from config)")
	rootCmd.AddCommand(gateCmd)
}
