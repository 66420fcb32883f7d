package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semharvest/config"
)

func configCmd(flags *globalFlags) *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration after defaults, the user file, the
project file and environment overrides are applied. With --write the
defaults are written to a new file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if write != "" {
				if _, err := os.Stat(write); err == nil {
					return fmt.Errorf("%s already exists", write)
				}
				if err := config.DefaultConfig().SaveToFile(write); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", write)
				return nil
			}

			cfg, _, err := flags.setup()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(redact(cfg))
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&write, "write", "", "Write the default configuration to this path")

	return cmd
}

const redacted = "********"

// redact returns a copy of cfg with passwords masked.
func redact(cfg *config.Config) *config.Config {
	shown := *cfg
	if shown.TripleStore.Neo4j.Password != "" {
		shown.TripleStore.Neo4j.Password = redacted
	}
	if shown.Vocabulary.Password != "" {
		shown.Vocabulary.Password = redacted
	}
	return &shown
}
