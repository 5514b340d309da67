package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/api"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/config"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API and watches the config file.

Edits to the rate_limit section take effect without a restart. Other
sections are read once at startup.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.New(a.grid, a.limiter,
		api.WithMetrics(a.metrics.Handler()),
		api.WithUserHeader(cfg.Server.UserHeader),
	).Handler()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.GetReadTimeout(),
		WriteTimeout:      cfg.GetWriteTimeout(),
	}

	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		a.limiter.SetRules(next.RateLimit.Rules())
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Boot("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Boot("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
