package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/presentation/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [workflow]",
	Short: "Talk to the workflow in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := newApp(ctx, workflowArg(args))
		if err != nil {
			return fmt.Errorf("initializing parley: %w", err)
		}
		defer a.Close()

		tui.PrintBanner(os.Stdout)
		ch := tui.NewStdio(cfg.AgentName)
		err = a.bot.Converse(ctx, ch, sessionID, "cli", nil)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session id (a fresh one is generated when empty)")
}
