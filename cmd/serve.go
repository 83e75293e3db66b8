package cmd

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
	"go.uber.org/zap"

	"github.com/retailtools/catalogcheck/internal/api"
	clocksystem "github.com/retailtools/catalogcheck/internal/clock/system"
	iduuid "github.com/retailtools/catalogcheck/internal/id/uuid"
	"github.com/retailtools/catalogcheck/internal/logging"
	"github.com/retailtools/catalogcheck/internal/session"
	"github.com/retailtools/catalogcheck/internal/store/memory"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP service with the browser form and JSON API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := initRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	envCookies := session.FromEnv()

	factory := func(p api.RunParams) (api.Pipeline, func(), error) {
		cookies := session.Cookies{}
		cookies.Merge(envCookies)
		cookies.Merge(session.ParseCookieHeader(p.CookieHeader))

		delay := cfg.Delay()
		if p.Delay > 0 {
			delay = p.Delay
		}
		headless := cfg.Headless.Enabled
		if p.Headless != nil {
			headless = *p.Headless && cfg.Headless.Enabled
		}
		useAPI := true
		if p.UseAPI != nil {
			useAPI = *p.UseAPI
		}
		return buildRunner(cfg, logger, pipelineParams{
			cookies:  cookies,
			delay:    delay,
			headless: headless,
			useAPI:   useAPI,
		})
	}

	server := api.NewServer(
		memory.NewRunStore(),
		factory,
		iduuid.NewGenerator(),
		clocksystem.New(),
		api.Options{
			APIKey:         authKey(cfg.Auth.Enabled, cfg.Auth.APIKey),
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MaxBatchSize:   cfg.Server.MaxBatchSize,
		},
		logging.Named(logger, "api"),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func authKey(enabled bool, key string) string {
	if !enabled {
		return ""
	}
	return key
}
