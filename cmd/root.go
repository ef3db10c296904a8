package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/awt/internal/agents"
	"github.com/joescharf/awt/internal/git"
	"github.com/joescharf/awt/internal/logger"
	"github.com/joescharf/awt/internal/output"
	"github.com/joescharf/awt/internal/resolver"
	"github.com/joescharf/awt/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "awt",
	Short: "Agent worktrees - bind git worktrees to coding-agent sessions",
	Long: `awt manages git worktrees bound to coding-agent sessions
(Claude Code, Codex CLI, Gemini, OpenCode, Qwen, or custom agents).
It locates the session an agent wrote for a worktree so it can be
resumed later, and batch-merges a source branch across all branches.`,
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
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/awt/config.yaml)")
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

		configDir := filepath.Join(home, ".config", "awt")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AWT")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "awt")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "awt.db"))
	viper.SetDefault("agents_file", filepath.Join(defaultConfigDir, "agents.yaml"))
	viper.SetDefault("merge.remote", "origin")
	viper.SetDefault("merge.auto_push", false)
	viper.SetDefault("resolver.window_ms", 1800000)
	viper.SetDefault("resolver.poll_interval_ms", 2000)
	viper.SetDefault("resolver.timeout_ms", 120000)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	logPath := filepath.Join(viper.GetString("state_dir"), "awt.log")
	if err := logger.Init(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	logger.SetDebug(verbose)

	// Initialize store lazily — only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// rootRun handles `awt` with no subcommand: if cwd is a repo, show its
// worktrees, otherwise show help.
func rootRun(cmd *cobra.Command) error {
	gc := git.NewClient()
	if _, err := gc.RepoRoot("."); err != nil {
		return cmd.Help()
	}
	return worktreeListRun(".")
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

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getRegistry loads the agent registry from the configured agents file.
func getRegistry() (*agents.Registry, error) {
	return agents.LoadRegistry(viper.GetString("agents_file"))
}

// getResolver builds a session resolver wired to git and the agent registry.
func getResolver() (*resolver.Resolver, error) {
	reg, err := getRegistry()
	if err != nil {
		return nil, err
	}
	r := resolver.New(git.NewClient(), reg)
	return r, nil
}
