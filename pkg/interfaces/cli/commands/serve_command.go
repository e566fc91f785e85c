package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/interfaces/rest"
)

// ServeCommand runs the REST facade and, when reconcile.interval is set, the
// reconciliation schedule
type ServeCommand struct {
	app    *App
	csvDir string
}

func NewServeCommand(app *App, csvDir string) *ServeCommand {
	return &ServeCommand{app: app, csvDir: csvDir}
}

// Execute blocks until ctx is cancelled or the server fails
func (c *ServeCommand) Execute(ctx context.Context) error {
	source, release, err := c.app.OpenSource(c.csvDir)
	if err != nil {
		return fmt.Errorf("failed to open ERP source: %w", err)
	}
	defer release()

	logger := c.app.Logger
	handler := rest.NewHandler(c.app.Engine, source, c.app.Cutting, logger.Named("http"))
	server := rest.NewServer(c.app.Config.Server, rest.NewRouter(handler, logger.Named("http")))

	if interval := c.app.Config.Reconcile.Interval; interval > 0 {
		go c.app.Engine.Schedule(ctx, interval, source)
		logger.Info("reconcile schedule started", zap.Duration("interval", interval))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.app.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func newServeCmd(open appOpener) *cobra.Command {
	var csvDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			return NewServeCommand(app, csvDir).Execute(ctx)
		},
	}
	cmd.Flags().StringVar(&csvDir, "csv", "", "Reconcile from CSV exports in this directory instead of Fishbowl")
	return cmd
}
