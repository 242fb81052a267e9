package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/auth"
	"github.com/ekaya-inc/ekaya-console/pkg/handlers"
	"github.com/ekaya-inc/ekaya-console/pkg/middleware"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP API and the project poller",
		Example: `  ekaya-console serve
  ekaya-console serve --config /etc/ekaya/console.yaml --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP listen port (overrides config)")

	return cmd
}

func runServe(ctx context.Context, opts *options, port string) error {
	c, err := opts.build()
	if err != nil {
		return err
	}
	defer func() { _ = c.logger.Sync() }()
	if port != "" {
		c.cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              c.cfg.Addr(),
		Handler:           c.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go c.poller.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("Starting ekaya-console",
			zap.String("addr", srv.Addr),
			zap.String("version", c.cfg.Version),
			zap.String("backend", c.cfg.Backend.BaseURL),
			zap.Duration("refresh_interval", c.cfg.Refresh.Interval))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handler assembles the console's routes and middleware chain.
func (c *console) handler() http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(c.cfg, c.store.Status, c.logger).RegisterRoutes(mux)

	if c.cfg.SessionSecret == "" {
		c.logger.Warn("SESSION_SECRET not set; notice cookies are signed with an empty key")
	}
	notices := auth.NewNoticeStore(c.cfg.SessionSecret, c.cfg.Env != "local")
	handlers.NewAppHandler(c.dashboard, notices, c.logger).
		RegisterRoutes(mux, middleware.RateLimit(c.cfg.HTTP.MutationsPerMinute))

	return middleware.Chain(mux,
		middleware.Recoverer,
		middleware.RealIP,
		middleware.RequestLogger(c.logger),
		middleware.CORS(c.cfg.HTTP.AllowedOrigins),
		auth.ForwardToken,
	)
}
