package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"news-reread/internal/server"
	"news-reread/internal/worker"
)

const kvGCInterval = 5 * time.Minute

var shareCmd = &cobra.Command{
	Use:   "share <text>",
	Short: "Hand shared text to the inbox for confirmation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := application.Shares()
		if err != nil {
			return err
		}
		sh, err := svc.Receive(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		printer.Success("Queued %s as %s", sh.URL, sh.ID)
		return nil
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List shares waiting for confirmation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := application.Shares()
		if err != nil {
			return err
		}
		shares, err := svc.Pending(cmd.Context(), 0)
		if err != nil {
			return err
		}
		return printer.Shares(shares)
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <share-id>",
	Short: "Save a shared URL as an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		svc, _, err := application.Shares()
		if err != nil {
			return err
		}
		a, err := svc.Confirm(cmd.Context(), id)
		if err != nil {
			return err
		}
		printer.Success("Saved %s as article %d", a.URL, a.ID)
		return nil
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard <share-id>",
	Short: "Drop a shared URL without saving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		svc, _, err := application.Shares()
		if err != nil {
			return err
		}
		if err := svc.Discard(cmd.Context(), id); err != nil {
			return err
		}
		printer.Success("Discarded %s", id)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the share receiver and the preview worker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, inbox, err := application.Shares()
		if err != nil {
			return err
		}

		w := worker.NewWorker(inbox, logger.Named("worker"))
		go w.Start(ctx)
		go application.KV.RunGC(ctx, kvGCInterval)

		srv := server.NewServer(svc, application.Registry, logger.Named("server"))
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.Server.Addr) }()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("Server shutdown failed", zap.Error(err))
		}
		logger.Info("Goodbye!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shareCmd, inboxCmd, confirmCmd, discardCmd, serveCmd)
}
