package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crsurvey/internal/drafts"
	"crsurvey/internal/output"
	"crsurvey/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui         *output.UI
	dataStore  store.Store
	draftStore *drafts.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "crsurvey",
	Short: "Code review survey - evaluator slots, questionnaires, and responses",
	Long: `crsurvey runs a code review evaluation survey.
It manages a fixed pool of evaluator slots, serves the developer profile
and review questionnaires over HTTP, and records Likert responses and
in-progress drafts for each evaluator.`,
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

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/crsurvey/config.yaml)")
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

		configDir := filepath.Join(home, ".config", "crsurvey")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CRSURVEY")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "crsurvey")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "crsurvey.db"))
	viper.SetDefault("drafts_dir", filepath.Join(defaultConfigDir, "drafts"))
	viper.SetDefault("port", 8080)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store and draft store are initialized lazily so config/version
	// commands can run without touching the data directory.
}

// rootRun handles `crsurvey` with no subcommand: show the evaluator dashboard.
func rootRun(cmd *cobra.Command) error {
	if _, err := os.Stat(viper.GetString("db_path")); err != nil {
		return cmd.Help()
	}
	return statusOverviewRun()
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getDrafts returns the shared draft store, initializing it on first call.
func getDrafts() (*drafts.Store, error) {
	if draftStore != nil {
		return draftStore, nil
	}

	ds, err := drafts.Open(viper.GetString("drafts_dir"))
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}

	draftStore = ds
	return draftStore, nil
}
