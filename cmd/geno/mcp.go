package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/genogram/internal/mcp"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the engine as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout exposing genogram_analyze,
genogram_report and genogram_rules. Logs are written to stderr.

Example MCP client configuration:
  {"command": "geno", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg, err := root.registry(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close(ctx) }()

			srv, err := mcp.NewServer(&mcp.Config{
				Name:     "genogram",
				Version:  version,
				MaxDepth: reg.Config().Engine.MaxDepth,
				Logger:   reg.Logger(),
				Meter:    reg.Telemetry().Meter("github.com/fyrsmithlabs/genogram/internal/mcp"),
			}, reg.Engine())
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}
