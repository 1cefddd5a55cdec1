package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/genogram/internal/genogram"
)

type analyzeOptions struct {
	root   string
	depth  int
	format string
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Detect patterns in a genogram snapshot",
		Long: `Detect intergenerational patterns in a genogram snapshot file.

The file format is chosen from its extension: .json, .yaml or .yml.

Examples:
  # Analyze a family and print pattern cards
  geno analyze family.yaml

  # Analyze from a different member's point of view, three generations up
  geno analyze family.yaml --root maria --depth 3

  # Machine-readable output
  geno analyze family.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "root member id (overrides the snapshot)")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "ancestor search depth (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")

	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, path string) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: expected text or json", opts.format)
	}

	snap, err := loadSnapshot(path, opts.root)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	reg, err := root.registry(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close(ctx) }()

	depth := opts.depth
	if depth <= 0 {
		depth = reg.Config().Engine.MaxDepth
	}

	analysis, err := reg.Engine().Analyze(ctx, snap, depth)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		return writeJSON(out, analysis)
	}
	_, err = fmt.Fprintln(out, renderAnalysis(analysis, reg.Config().Engine.HighPriorityScore))
	return err
}

// loadSnapshot reads and validates a snapshot file, applying a root override.
func loadSnapshot(path, root string) (*genogram.Snapshot, error) {
	snap, err := genogram.LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	if root != "" {
		snap.RootMemberID = root
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
