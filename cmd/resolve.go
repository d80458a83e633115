package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgate/internal/models"
)

var (
	resolveKey       string
	resolvePapersDir string
	resolveCachePath string
	resolveJSONOut   bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <entry text>",
	Short: "Resolve one bibliography entry to verified metadata",
	Long: `Look up a single bibliography entry through the tiered pipeline:
cached result, local papers directory, arXiv, Semantic Scholar, then
CrossRef. Results are cached, including definitive misses.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveRun(strings.Join(args, " "))
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveKey, "key", "ref", "Citation key for the entry")
	resolveCmd.Flags().StringVar(&resolvePapersDir, "papers-dir", "", "Local directory of downloaded papers")
	resolveCmd.Flags().StringVar(&resolveCachePath, "cache-path", "", "Reference cache database (default from config)")
	resolveCmd.Flags().BoolVar(&resolveJSONOut, "json", false, "Emit the resolved metadata as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func resolveRun(entryText string) error {
	if resolveCachePath != "" {
		viper.Set("cache_path", resolveCachePath)
	}
	pipeline, err := getPipeline(resolvePapersDir)
	if err != nil {
		return err
	}

	res, err := pipeline.Resolve(context.Background(), models.Reference{
		Key:       resolveKey,
		EntryText: entryText,
	})
	if err != nil {
		return err
	}

	if resolveJSONOut {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Tier == models.TierNone {
		ui.Warning("no source found for %q", resolveKey)
		return nil
	}

	fmt.Fprintf(ui.Out, "Tier:    %s\n", res.Tier)
	fmt.Fprintf(ui.Out, "Title:   %s\n", res.Meta.Title)
	if len(res.Meta.Authors) > 0 {
		fmt.Fprintf(ui.Out, "Authors: %s\n", strings.Join(res.Meta.Authors, ", "))
	}
	if res.Meta.Year != "" {
		fmt.Fprintf(ui.Out, "Year:    %s\n", res.Meta.Year)
	}
	if res.Meta.DOI != "" {
		fmt.Fprintf(ui.Out, "DOI:     %s\n", res.Meta.DOI)
	}
	if res.Meta.Venue != "" {
		fmt.Fprintf(ui.Out, "Venue:   %s\n", res.Meta.Venue)
	}
	if res.Meta.Abstract != "" {
		fmt.Fprintf(ui.Out, "\n%s\n", res.Meta.Abstract)
	}
	return nil
}
