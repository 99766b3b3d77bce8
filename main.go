package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-publisher/infrastructure/configuration"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/utils"
	httpHandler "blog-publisher/interfaces/http"
	"blog-publisher/server"
	"blog-publisher/usecase"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
		os.Exit(2)
	}
}

func main() {
	defer recoverPanic()
	if err := newRootCmd().Execute(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "blog-publisher",
		Short:         "Publishes generated posts to Tistory, Blogger and WordPress",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Env files are non-destructive; OS env still has precedence.
			configuration.LoadEnvFromFile("config.env", ".env")
			configuration.Reload()
		},
	}
	root.AddCommand(newServeCmd(), newSweepCmd(), newTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var noSweep bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled sweep loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configuration.C, !noSweep)
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "disable the in-process sweep loop (use the sweep command from cron instead)")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Publish due scheduled posts once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, configuration.C)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.sweep.PublishScheduledPosts(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		userName string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for the API, signed with the app secret key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configuration.C.App.SecretKey == "" {
				return errors.New("app secret key not configured")
			}
			token, err := utils.GenerateToken(args[0], userName, configuration.C.App.SecretKey, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userName, "name", "", "username claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for none")
	return cmd
}

func serve(ctx context.Context, cfg configuration.Config, sweepLoop bool) error {
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	router := server.InitiateRouter(server.Handlers{
		Post:       httpHandler.NewPostHandler(app.posts),
		Connection: httpHandler.NewConnectionHandler(app.connections, cfg.App.ConnectRedirect),
		Sweep:      httpHandler.NewSweepHandler(app.sweep),
		Health:     httpHandler.NewHealthHandler(app.db),
		Stream:     app.hub.Serve,
	}, cfg.App.SecretKey, cfg.App.Origins)

	g, ctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with the server so event streams close on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logger.GetLogger().WithFields(map[string]interface{}{"port": cfg.App.Port, "tls": cfg.App.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		var err error
		if cfg.App.TLSEnabled && cfg.App.TLSCertFile != "" && cfg.App.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.App.TLSCertFile, cfg.App.TLSKeyFile)
		} else {
			if cfg.App.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.GetLogger().Info("Application shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if sweepLoop {
		interval := time.Duration(cfg.Publisher.SweepIntervalSec) * time.Second
		g.Go(func() error { return runSweepLoop(ctx, app.sweep, interval) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runSweepLoop triggers a sweep every interval until ctx ends. A failed sweep
// is logged and retried on the next tick.
func runSweepLoop(ctx context.Context, sweep usecase.ISweepUsecase, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, interval*5)
			if _, err := sweep.PublishScheduledPosts(runCtx); err != nil {
				logger.GetLogger().WithField("error", err).Error("Scheduled sweep failed")
			}
			cancel()
		}
	}
}
