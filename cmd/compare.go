package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/reviewgate/internal/report"
)

var compareCmd = &cobra.Command{
	Use:   "compare <file>",
	Short: "Review a document and show a side-by-side verdict matrix",
	Long: `Run the same multi-backend review as "review" but report a per-claim
matrix of every backend's verdict, highlighting where they disagree.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, backends, err := executeReview(cmd, args[0])
		if err != nil {
			return err
		}
		report.Compare(ui, run, backends, args[0])
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&reviewClaimsFile, "claims", "", "YAML file listing claims to verify")
	compareCmd.Flags().StringVar(&reviewBeliefsFile, "beliefs", "", "Prior-beliefs file to include in the prompt")
	compareCmd.Flags().StringVar(&reviewEntriesDir, "entries", "", "Directory of supporting entries to include")
	compareCmd.Flags().BoolVar(&reviewNoSave, "no-save", false, "Skip saving raw responses and the aggregate")
	compareCmd.Flags().StringVar(&reviewSaveDir, "save-dir", "", "Directory for saved runs (default from config)")
	rootCmd.AddCommand(compareCmd)
}
