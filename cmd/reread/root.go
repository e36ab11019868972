package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"news-reread/internal/app"
	"news-reread/internal/config"
	"news-reread/internal/output"
	"news-reread/internal/store"
)

var (
	cfgFile     string
	verbose     bool
	cfg         *config.Config
	logger      *zap.Logger
	application *app.App
	printer     *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "reread",
	Short: "reread - save articles now, review them later",
	Long: `reread is a terminal client for the reread service.

It keeps a local copy of everything it fetches, so saved articles stay
readable in local mode without an account.

Example usage:
  reread login ada             # Sign in
  reread add https://go.dev    # Save a URL
  reread list --favorite       # List favorites
  reread show 12               # Read one article
  reread local on              # Use the local copy only`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .reread.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func setup(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err = app.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	application, err = app.New(cfg, logger)
	if err != nil {
		return err
	}

	printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(cfg.Output.Colors))
	logger.Debug("Configuration loaded",
		zap.String("api", cfg.API.BaseURL),
		zap.String("storage", cfg.Storage.Dir))
	return nil
}

// teardown runs after every command, including failed ones.
func teardown() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	_ = logger.Sync()
	return err
}

// display maps the stored preferences onto output options.
func display() output.Display {
	prefs := application.KV.Preferences()
	return output.Display{
		ShowURL:     prefs.ShowURL,
		ShowSummary: prefs.ShowSummary,
		ShowMemo:    prefs.ShowMemo,
	}
}

func prefKeys() []string {
	return []string{store.PrefShowURL, store.PrefShowSummary, store.PrefShowMemo}
}
