// Package main implements the geno CLI for running pattern analysis locally
// and talking to a genogramd server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/genogram/internal/config"
	"github.com/fyrsmithlabs/genogram/internal/services"
)

// version information (set via ldflags during build)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "geno",
		Short: "Detect intergenerational patterns in family genograms",
		Long: `geno runs the genogram pattern engine against snapshot files.

A snapshot is a JSON or YAML document listing family members, the
relationships between them and the life events attached to them. geno
scores the patterns it finds, explains the evidence and points to
reflective content unlocked by strong patterns.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/genogram/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newRulesCmd(opts))
	root.AddCommand(newHealthCmd())
	root.AddCommand(newMCPCmd(opts))

	return root
}

// registry loads configuration and assembles the engine. Logs go to stderr
// so stdout carries only command output.
func (o *rootOptions) registry(ctx context.Context) (*services.Registry, error) {
	cfg, err := config.LoadWithFile(o.configPath)
	if err != nil {
		return nil, err
	}
	reg, err := services.New(ctx, cfg, services.Options{
		LogToStderr: true,
		Quiet:       !o.verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return reg, nil
}
