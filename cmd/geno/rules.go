package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRulesCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the pattern rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format %q: expected text or json", format)
			}

			ctx := cmd.Context()
			reg, err := root.registry(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close(ctx) }()

			rules := reg.Engine().Rules()
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), rules)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderRules(rules))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
