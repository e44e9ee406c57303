package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deusflow/lankanews/internal/app"
	"github.com/deusflow/lankanews/internal/config"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lankanews",
		Short: "Scrape, summarize and serve Sinhala news",
		Long: `lankanews collects articles from Sinhala news sites and feeds,
groups duplicate stories, categorizes and summarizes them, stores the
result and serves it over a small read API.

Examples:
  # One scrape and store run
  lankanews run

  # Re-process archived batches
  lankanews import data/

  # Rebuild the weekly feature articles
  lankanews feature --all

  # Start the read API
  lankanews serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newFeatureCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// withApp builds the app for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("❌ Failed to start", "error", err)
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()
	return fn(a)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scrape configured sources, process and store one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				rep, err := a.RunOnce(cmd.Context())
				if err != nil {
					logger.Error("❌ Run failed", "error", err)
					return err
				}
				logger.Info("✅ Done", "inserted", rep.Inserted, "skipped", rep.Skipped, "groups", rep.Groups)
				return nil
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Process archived batch files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				rep, err := a.Import(cmd.Context(), args)
				logger.Info("✅ Import finished", "input", rep.Input, "inserted", rep.Inserted, "skipped", rep.Skipped)
				return err
			})
		},
	}
}

func newFeatureCmd() *cobra.Command {
	var week string
	var all bool

	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Regenerate weekly feature articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && week != "" {
				return errors.New("--week and --all are mutually exclusive")
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				return a.GenerateFeatures(cmd.Context(), week, all)
			})
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "week key, e.g. 2024_03_WEEK2 (default: current week)")
	cmd.Flags().BoolVar(&all, "all", false, "regenerate every week in storage")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(a *app.App) error {
				srv := a.Server()
				errCh := make(chan error, 1)
				go func() { errCh <- srv.Start() }()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}
