package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/semharvest/harvest"
	"github.com/c360studio/semharvest/repository"
	"github.com/c360studio/semharvest/watch"
)

func watchCmd(flags *globalFlags) *cobra.Command {
	var (
		repoURL  string
		debounce string
	)

	cmd := &cobra.Command{
		Use:   "watch <checkout-dir>",
		Short: "Harvest a local checkout and re-harvest on changes",
		Long: `Watch harvests a checkout already on disk, then watches it for changes to
Turtle and CSV files and harvests it again after each debounced batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve checkout path: %w", err)
			}
			if repoURL == "" {
				repoURL = "file://" + filepath.ToSlash(root)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a := newApp(cfg, logger)
			defer a.close(context.Background())

			h, err := a.build(ctx, buildOptions{Source: repository.Local{Root: root}})
			if err != nil {
				return err
			}

			wcfg := watch.DefaultConfig()
			if debounce != "" {
				wcfg.DebounceDelay = debounce
			}
			w, err := watch.New(wcfg, root, logger)
			if err != nil {
				return err
			}
			return watchLoop(ctx, h, w, harvest.Repository{URL: repoURL}, logger)
		},
	}

	cmd.Flags().StringVar(&repoURL, "repo-url", "", "Repository URL recorded for the checkout (default file://<dir>)")
	cmd.Flags().StringVar(&debounce, "debounce", "", "Quiet period before re-harvesting (default 2s)")

	return cmd
}

// watchLoop harvests once, then once per batch of changes until ctx ends.
// A failed run is logged and the loop keeps watching.
func watchLoop(ctx context.Context, h *harvest.Harvester, w *watch.Watcher, repo harvest.Repository, logger *slog.Logger) error {
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	runOnce := func(trigger string) {
		ec := harvest.NewExecutionContext(repo, harvest.WithStartedBy(trigger))
		if _, err := h.HarvestRepository(ctx, ec); err != nil {
			logger.Warn("Harvest run failed", "run_id", ec.RunID, "error", err)
		}
	}

	runOnce("watch")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped")
			return nil
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			for _, c := range batch.Changes {
				logger.Debug("Checkout changed", "path", c.Path, "operation", c.Operation)
			}
			logger.Info("Re-harvesting checkout", "changes", len(batch.Changes))
			runOnce("watch:change")
		}
	}
}
