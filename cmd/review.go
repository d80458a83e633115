package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgate/internal/claims"
	"github.com/joescharf/reviewgate/internal/engine"
	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/prompt"
	"github.com/joescharf/reviewgate/internal/report"
)

var (
	reviewClaimsFile  string
	reviewBeliefsFile string
	reviewEntriesDir  string
	reviewJSONOut     bool
	reviewNoSave      bool
	reviewSaveDir     string
)

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Review a document's claims across multiple model backends",
	Long: `Send a document to each configured backend in parallel and merge the
per-claim verdicts into a single gate decision.

Claims come from a YAML file (--claims) or from inline [C:id] markers
in the document itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd, args[0])
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewClaimsFile, "claims", "", "YAML file listing claims to verify")
	reviewCmd.Flags().StringVar(&reviewBeliefsFile, "beliefs", "", "Prior-beliefs file to include in the prompt")
	reviewCmd.Flags().StringVar(&reviewEntriesDir, "entries", "", "Directory of supporting entries to include")
	reviewCmd.Flags().BoolVar(&reviewJSONOut, "json", false, "Emit machine-readable JSON instead of the report")
	reviewCmd.Flags().BoolVar(&reviewNoSave, "no-save", false, "Skip saving raw responses and the aggregate")
	reviewCmd.Flags().StringVar(&reviewSaveDir, "save-dir", "", "Directory for saved runs (default from config)")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(cmd *cobra.Command, file string) error {
	run, backends, err := executeReview(cmd, file)
	if err != nil {
		return err
	}

	if reviewJSONOut {
		return report.ReviewJSON(ui.Out, run, backends, file)
	}
	report.Review(ui, run, backends, file, verbose)
	return nil
}

// executeReview loads the document and claims, runs the engine, and saves
// the run. Shared by review, compare, and gate.
func executeReview(cmd *cobra.Command, file string) (*engine.ReviewRun, []string, error) {
	document, err := prompt.LoadDocument(file)
	if err != nil {
		return nil, nil, err
	}

	units, err := loadClaims(document)
	if err != nil {
		return nil, nil, err
	}

	eng, err := getEngine(cmd)
	if err != nil {
		return nil, nil, err
	}

	beliefsFile := reviewBeliefsFile
	if beliefsFile == "" {
		beliefsFile = viper.GetString("beliefs_file")
	}
	entriesDir := reviewEntriesDir
	if entriesDir == "" {
		entriesDir = viper.GetString("entries_dir")
	}

	beliefs := prompt.LoadBeliefs(beliefsFile)
	entries := prompt.LoadEntries(entriesDir)

	ui.Info("Reviewing %s with %d backends, %d claims", file, len(eng.Backends()), len(units))

	run, err := eng.RunReview(context.Background(), units, prompt.Review(document, beliefs, entries))
	if err != nil {
		return nil, nil, err
	}

	if !reviewNoSave {
		dir := reviewSaveDir
		if dir == "" {
			dir = viper.GetString("save_dir")
		}
		if saved, err := eng.SaveReview(run, dir); err != nil {
			ui.Warning("failed to save run: %v", err)
		} else {
			ui.VerboseLog("saved run to %s", saved)
		}
	}

	return run, eng.Backends(), nil
}

func loadClaims(document string) ([]models.Claim, error) {
	if reviewClaimsFile != "" {
		return claims.LoadFile(reviewClaimsFile)
	}
	units := claims.Extract(document)
	if len(units) == 0 {
		return nil, fmt.Errorf("no claims found: annotate the document with [C:id] markers or pass --claims")
	}
	return units, nil
}
