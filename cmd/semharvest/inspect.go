package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/export"
	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/validation"
)

// inspection is the report printed by the inspect command.
type inspection struct {
	File         string             `json:"file"`
	Type         asset.Type         `json:"type"`
	Triples      int                `json:"triples"`
	Metadata     asset.Metadata     `json:"metadata"`
	RightsHolder asset.RightsHolder `json:"rights_holder"`
	Maintainers  []asset.Maintainer `json:"maintainers,omitempty"`
	Errors       []validation.Issue `json:"errors"`
	Warnings     []validation.Issue `json:"warnings"`
	Counts       validation.Counts  `json:"counts"`
}

func inspectCmd(_ *globalFlags) *cobra.Command {
	var (
		typeName string
		repoURL  string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file.ttl>",
		Short: "Extract and validate the metadata of one Turtle file",
		Long: `Inspect loads a Turtle file, locates its main resource and prints the
extracted metadata with the validation report as JSON. Nothing is stored.
Without --type the asset type is detected from the main resource class.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t asset.Type
			if typeName != "" {
				parsed, err := asset.ParseType(typeName)
				if err != nil {
					return err
				}
				t = parsed
			}
			out := cmd.OutOrStdout()
			report, g, err := inspectFile(args[0], t, repoURL)
			if err != nil {
				return err
			}
			if format != "" {
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				return export.Export(out, g, f)
			}
			return writeInspection(out, report)
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "Asset type (ontology, controlled_vocabulary, schema)")
	cmd.Flags().StringVar(&repoURL, "repo-url", "", "Repository URL recorded in the metadata")
	cmd.Flags().StringVar(&format, "export", "", "Print the graph instead of the report (turtle, ntriples)")

	return cmd
}

// inspectFile loads path and extracts the metadata of its main resource. A
// zero t tries every asset type in harvest order. Extraction failures are
// part of the report, not an error.
func inspectFile(path string, t asset.Type, repoURL string) (*inspection, *graph.Graph, error) {
	g, err := graph.Load(path)
	if err != nil {
		return nil, nil, err
	}

	types := asset.Types()
	if t != "" {
		types = []asset.Type{t}
	}
	var (
		mainRes  graph.Resource
		found    bool
		attempts []error
	)
	for _, candidate := range types {
		res, err := g.MainResource(candidate.MainClass())
		if err != nil {
			attempts = append(attempts, err)
			continue
		}
		mainRes, t, found = res, candidate, true
		break
	}
	if !found {
		return nil, nil, fmt.Errorf("locate main resource: %w", errors.Join(attempts...))
	}

	result, report, _ := extract.AssetMetadata(mainRes, t, repoURL)
	return &inspection{
		File:         path,
		Type:         t,
		Triples:      g.Len(),
		Metadata:     result.Metadata,
		RightsHolder: result.RightsHolder,
		Maintainers:  result.Maintainers,
		Errors:       nonNil(report.Errors()),
		Warnings:     nonNil(report.Warnings()),
		Counts:       report.Counts(),
	}, g, nil
}

func nonNil(issues []validation.Issue) []validation.Issue {
	if issues == nil {
		return []validation.Issue{}
	}
	return issues
}

func writeInspection(w io.Writer, report *inspection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
