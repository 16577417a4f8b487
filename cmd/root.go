package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/portfolio-backend/internal/app"
	"github.com/yungbote/portfolio-backend/internal/services"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "portfolio",
		Short:        "Project portfolio backend",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSweepCmd(),
		newImportCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.Log.Info("Migrations applied", "driver", a.Cfg.DBDriver)
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stored images that no project references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sweeper := services.NewOrphanSweeper(a.Log, a.Repos.Images, a.Store, a.Locker, a.Metrics, services.SweeperConfig{
				GracePeriod:   a.Cfg.SweepGrace,
				Concurrency:   a.Cfg.SweepConcurrency,
				DeleteTimeout: a.Cfg.DeleteTimeout,
				DryRun:        dryRun,
			})
			res, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned=%d referenced=%d too_young=%d orphans=%d kept=%d deleted=%d failed=%d\n",
				res.Scanned, res.Referenced, res.TooYoung, len(res.Orphans), res.Kept, res.Deleted, res.Failed)
			if dryRun {
				for _, ref := range res.Orphans {
					fmt.Fprintln(out, ref)
				}
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d orphan deletes failed", res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphans without deleting them")
	return cmd
}

func newImportCmd() *cobra.Command {
	var stopOnError bool
	cmd := &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Create projects from a YAML manifest and the images beside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			importer := services.NewImporter(a.Log, a.Services.Projects, stopOnError)
			res, err := importer.Import(cmd.Context(), os.DirFS(filepath.Dir(path)), filepath.Base(path))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range res.Created {
				fmt.Fprintf(out, "created %s\n", id)
			}
			for _, f := range res.Failed {
				fmt.Fprintf(out, "failed #%d %q: %s\n", f.Index, f.Title, f.Error)
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d of %d projects failed to import", len(res.Failed), len(res.Failed)+len(res.Created))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort at the first project that fails")
	return cmd
}

