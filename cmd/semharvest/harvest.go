package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/c360studio/semharvest/config"
	"github.com/c360studio/semharvest/harvest"
	"github.com/c360studio/semharvest/repository"
)

func harvestCmd(flags *globalFlags) *cobra.Command {
	var (
		branch      string
		concurrency int
		asJSON      bool
		publish     bool
	)

	cmd := &cobra.Command{
		Use:   "harvest [repository-url...]",
		Short: "Harvest repositories",
		Long: `Harvest clones each repository, harvests its semantic assets and
removes the checkout. Without arguments the repositories listed in the
configuration are harvested.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			repos, err := harvestTargets(cfg, args, branch)
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = cfg.Harvest.Concurrency
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a := newApp(cfg, logger)
			defer a.close(context.Background())

			h, err := a.build(ctx, buildOptions{NATS: publish})
			if err != nil {
				return err
			}

			summaries, runErr := h.HarvestAll(ctx, repos, concurrency,
				harvest.WithStartedBy("cli"),
				harvest.WithCorrelationID(uuid.NewString()))
			if err := printSummaries(cmd.OutOrStdout(), summaries, asJSON); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch to harvest for repositories given as arguments")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Repositories harvested at once (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print run summaries as JSON")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish entities and run events to NATS")

	return cmd
}

// harvestTargets returns the repositories named on the command line, or the
// configured ones when there are none.
func harvestTargets(cfg *config.Config, args []string, branch string) ([]harvest.Repository, error) {
	if len(args) == 0 {
		repos := cfg.HarvestRepositories()
		if len(repos) == 0 {
			return nil, errors.New("no repositories given and none configured")
		}
		return repos, nil
	}
	repos := make([]harvest.Repository, 0, len(args))
	for _, url := range args {
		if err := repository.ValidateURL(url); err != nil {
			return nil, err
		}
		repos = append(repos, harvest.Repository{URL: url, Branch: branch})
	}
	return repos, nil
}

// printSummaries writes one line per run, or the summaries as a JSON array.
func printSummaries(w io.Writer, summaries []*harvest.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	for _, s := range summaries {
		if s == nil {
			continue
		}
		status := "ok"
		if s.Error != "" {
			status = "failed: " + s.Error
		}
		fmt.Fprintf(w, "%s  run=%s  assets=%d  failed=%d  %s\n",
			s.RepoURL, s.RunID, s.Succeeded(), s.Failed(), status)
		for _, f := range s.Failures {
			fmt.Fprintf(w, "    %s %s: %s\n", f.Type, f.Path, f.Cause)
		}
	}
	return nil
}

func purgeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <repository-url>",
		Short: "Remove everything a repository contributed to the stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			a := newApp(cfg, logger)
			defer a.close(context.Background())

			h, err := a.build(cmd.Context(), buildOptions{})
			if err != nil {
				return err
			}
			if err := h.Purge(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", args[0])
			return nil
		},
	}
}
