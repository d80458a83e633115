package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/refs"
	"github.com/joescharf/reviewgate/internal/report"
)

var (
	checkRefsFetch     bool
	checkRefsPapersDir string
	checkRefsCachePath string
	checkRefsJSONOut   bool
	checkRefsNoSave    bool
	checkRefsSaveDir   string
	checkRefsGate      bool
)

var checkRefsCmd = &cobra.Command{
	Use:   "check-refs <file>",
	Short: "Verify each reference in a document across model backends",
	Long: `Extract the bibliography from a LaTeX or markdown document and ask each
backend, independently per reference, whether the work exists, whether
it is attributed correctly, and whether it supports the claims citing it.

With --fetch, references are first resolved to verified metadata through
the lookup pipeline (cache, local papers, arXiv, Semantic Scholar,
CrossRef) and the fetched abstracts are included in the prompts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkRefsRun(cmd, args[0])
	},
}

func init() {
	checkRefsCmd.Flags().BoolVar(&checkRefsFetch, "fetch", false, "Resolve reference metadata before checking")
	checkRefsCmd.Flags().StringVar(&checkRefsPapersDir, "papers-dir", "", "Local directory of downloaded papers")
	checkRefsCmd.Flags().StringVar(&checkRefsCachePath, "cache-path", "", "Reference cache database (default from config)")
	checkRefsCmd.Flags().BoolVar(&checkRefsJSONOut, "json", false, "Emit machine-readable JSON instead of the report")
	checkRefsCmd.Flags().BoolVar(&checkRefsNoSave, "no-save", false, "Skip saving raw responses and the aggregate")
	checkRefsCmd.Flags().StringVar(&checkRefsSaveDir, "save-dir", "", "Directory for saved runs (default from config)")
	checkRefsCmd.Flags().BoolVar(&checkRefsGate, "gate", false, "Exit 1 when the merged decision is BLOCK")
	rootCmd.AddCommand(checkRefsCmd)
}

func checkRefsRun(cmd *cobra.Command, file string) error {
	references, err := refs.Load(file)
	if err != nil {
		return err
	}
	if len(references) == 0 {
		return fmt.Errorf("no references found in %s", file)
	}

	resolvedByKey := map[string]*models.ResolvedReference{}
	if checkRefsFetch {
		if checkRefsCachePath != "" {
			viper.Set("cache_path", checkRefsCachePath)
		}
		pipeline, err := getPipeline(checkRefsPapersDir)
		if err != nil {
			return err
		}
		ui.Info("Resolving %d references", len(references))
		for i := range references {
			res, err := pipeline.Resolve(context.Background(), references[i])
			if err != nil {
				ui.Warning("resolve %s: %v", references[i].Key, err)
				continue
			}
			references[i].FetchedContent = res.PromptText()
			resolvedByKey[references[i].Key] = &res
		}
	}

	eng, err := getEngine(cmd)
	if err != nil {
		return err
	}

	ui.Info("Checking %d references with %d backends", len(references), len(eng.Backends()))

	run, err := eng.CheckRefs(context.Background(), references, resolvedByKey)
	if err != nil {
		return err
	}

	if !checkRefsNoSave {
		dir := checkRefsSaveDir
		if dir == "" {
			dir = viper.GetString("save_dir")
		}
		if saved, err := eng.SaveRefRun(run, dir); err != nil {
			ui.Warning("failed to save run: %v", err)
		} else {
			ui.VerboseLog("saved run to %s", saved)
		}
	}

	if checkRefsJSONOut {
		if err := report.RefsJSON(ui.Out, run, eng.Backends(), file); err != nil {
			return err
		}
	} else {
		report.Refs(ui, run, references, eng.Backends(), file, verbose)
	}

	if checkRefsGate && run.Gate == models.GateBlock {
		os.Exit(1)
	}
	return nil
}
