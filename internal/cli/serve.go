package cli

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

	"github.com/mesh-intelligence/grid/internal/api"
	"github.com/mesh-intelligence/grid/internal/auth"
	"github.com/mesh-intelligence/grid/internal/generator"
	"github.com/mesh-intelligence/grid/internal/grid"
	"github.com/mesh-intelligence/grid/internal/logger"
	"github.com/mesh-intelligence/grid/internal/sqlite"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 2 * time.Minute
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.config.ServerAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server_addr from config)")
	return cmd
}

// serve runs the API until ctx is cancelled, then drains in-flight requests.
func (a *app) serve(ctx context.Context, addr string) error {
	verifier, err := auth.NewJWTVerifier(a.config.AuthSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	store, err := sqlite.Open(ctx, a.config)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	svc := grid.NewService(store, generator.New(uint64(time.Now().UnixNano())), a.config.PageSize)
	router := api.SetupRoutes(api.NewGridHandler(svc), auth.NewMiddleware(verifier))

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting", "addr", addr, "backend", a.config.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Log.Info("server stopped")
	return nil
}
