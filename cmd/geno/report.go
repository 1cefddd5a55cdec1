package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/genogram/internal/reflection"
)

type reportOptions struct {
	root           string
	depth          int
	format         string
	noCorrelations bool
	noInsights     bool
	maxInsights    int
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Generate a reflection report for a genogram snapshot",
		Long: `Generate a reflection report: detected patterns, how they relate,
key insights and a consolidated list of recommendations.

Examples:
  # Markdown report
  geno report family.yaml

  # Plain text without correlations
  geno report family.yaml --format text --no-correlations`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "root member id (overrides the snapshot)")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "ancestor search depth (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "markdown", "output format: markdown, text or json")
	cmd.Flags().BoolVar(&opts.noCorrelations, "no-correlations", false, "omit correlations between patterns")
	cmd.Flags().BoolVar(&opts.noInsights, "no-insights", false, "omit insights")
	cmd.Flags().IntVar(&opts.maxInsights, "max-insights", 10, "maximum insights to include")

	return cmd
}

func runReport(cmd *cobra.Command, root *rootOptions, opts *reportOptions, path string) error {
	switch opts.format {
	case "markdown", "text", "json":
	default:
		return fmt.Errorf("invalid format %q: expected markdown, text or json", opts.format)
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

	ro := reflection.DefaultReportOptions()
	ro.IncludeCorrelations = !opts.noCorrelations
	ro.IncludeInsights = !opts.noInsights
	if opts.maxInsights > 0 {
		ro.MaxInsights = opts.maxInsights
	}

	report, err := reg.Reporter().Generate(ctx, snap, depth, ro)
	if err != nil {
		return err
	}

	text, err := reflection.FormatReport(report, opts.format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
