package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgate/internal/backend"
	"github.com/joescharf/reviewgate/internal/engine"
	"github.com/joescharf/reviewgate/internal/output"
	"github.com/joescharf/reviewgate/internal/resolve"
	"github.com/joescharf/reviewgate/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui       *output.UI
	registry backend.Registry
	cache    store.Cache

	verbose bool
	quiet   bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reviewgate",
	Short: "Multi-model adversarial review gate for documents and references",
	Long: `reviewgate sends a document to multiple AI model backends in parallel,
collects independent verdicts on its claims and references, and merges
them into a single conservative PASS/BLOCK gate decision.

Any single BLOCK from any backend blocks the gate. Unparseable or
failed responses count as BLOCK.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/reviewgate/config.yaml)")
	rootCmd.PersistentFlags().StringSliceP("model", "m", nil, "Backend to invoke (repeatable; default from config)")
	rootCmd.PersistentFlags().Int("timeout", 0, "Per-invocation timeout in seconds (default from config)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "reviewgate")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REVIEWGATE")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "reviewgate")

	viper.SetDefault("models", []string{"claude", "gemini"})
	viper.SetDefault("timeout_seconds", 300)
	viper.SetDefault("backends_file", filepath.Join(defaultConfigDir, "backends.yaml"))
	viper.SetDefault("cache_path", filepath.Join(defaultConfigDir, "refcache.db"))
	viper.SetDefault("papers_dir", "")
	viper.SetDefault("save_dir", "reviews")
	viper.SetDefault("beliefs_file", "")
	viper.SetDefault("entries_dir", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.Quiet = quiet

	reg, err := backend.LoadRegistry(viper.GetString("backends_file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load backends file: %v\n", err)
		os.Exit(1)
	}
	registry = reg

	// Cache is opened lazily; review and gate never touch it.
}

// modelNames returns the backends to invoke, preferring --model flags.
func modelNames(cmd *cobra.Command) []string {
	if names, _ := cmd.Flags().GetStringSlice("model"); len(names) > 0 {
		return names
	}
	return viper.GetStringSlice("models")
}

// invokeTimeout returns the per-invocation timeout, preferring --timeout.
func invokeTimeout(cmd *cobra.Command) time.Duration {
	secs, _ := cmd.Flags().GetInt("timeout")
	if secs <= 0 {
		secs = viper.GetInt("timeout_seconds")
	}
	return time.Duration(secs) * time.Second
}

// getEngine builds the review engine for the requested backends.
func getEngine(cmd *cobra.Command) (*engine.Engine, error) {
	names := modelNames(cmd)
	apiKey := viper.GetString("anthropic.api_key")

	var invokers []backend.Invoker
	for _, name := range names {
		inv, err := backend.New(registry, name, apiKey)
		if err != nil {
			return nil, err
		}
		invokers = append(invokers, inv)
	}
	return engine.New(invokers, invokeTimeout(cmd), ui)
}

// getCache returns the shared reference cache, initializing it on first call.
func getCache() (store.Cache, error) {
	if cache != nil {
		return cache, nil
	}

	dbPath := viper.GetString("cache_path")
	s, err := store.NewSQLiteCache(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate cache database: %w", err)
	}

	cache = s
	return cache, nil
}

// getPipeline builds the reference resolution pipeline over the shared cache.
func getPipeline(papersDir string) (*resolve.Pipeline, error) {
	c, err := getCache()
	if err != nil {
		return nil, err
	}

	if papersDir == "" {
		papersDir = viper.GetString("papers_dir")
	}
	var opts []resolve.Option
	if papersDir != "" {
		opts = append(opts, resolve.WithPaperStore(resolve.NewPaperStore(papersDir, ui)))
	}
	return resolve.NewPipeline(c, ui, opts...), nil
}
