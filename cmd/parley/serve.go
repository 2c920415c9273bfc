package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/aretw0/parley/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve [workflow]",
	Short: "Start the websocket chat server",
	Long: `Starts Parley as a server. Each websocket connection on /ws/{origin}/{session_id}
runs one conversation; session state is exposed over HTTP and server-sent events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		streams := httpAdapter.NewStreamManager(logger)
		metricHooks, metricsHandler, err := withMetrics()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), workflowArg(args), metricHooks, streams.Hooks())
		if err != nil {
			return fmt.Errorf("initializing parley: %w", err)
		}
		defer a.Close()

		chat := httpAdapter.New(a.bot,
			httpAdapter.WithStreams(streams),
			httpAdapter.WithOrigins(cfg.Origins...),
			httpAdapter.WithMetrics(metricsHandler),
			httpAdapter.WithLogger(logger),
		)
		defer endConversations(chat)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           chat,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting parley server", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("killing server: %w", err)
				}
			}
			logger.Info("parley server stopped")
			return nil
		}
	},
}

// endConversations cancels the websocket conversations, which Shutdown does
// not track, and waits for their sessions to be saved.
func endConversations(chat *httpAdapter.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := chat.Shutdown(ctx); err != nil {
		logger.Error("conversations not saved before exit", "err", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
