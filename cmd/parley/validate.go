package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/pkg/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate [workflow]",
	Short: "Check the graph for consistency",
	Long:  `Builds the workflow graph and crawls it from the start node, reporting unreachable nodes and unroutable branches.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), workflowArg(args))
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.bot.Graph(cmd.Context())
		if err != nil {
			return err
		}
		if err := graph.Validate(g); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Graph is valid (%d nodes)\n", g.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
