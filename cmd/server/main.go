package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"pricewatch/internal/app"
	"pricewatch/internal/config"
	"pricewatch/internal/handler"
	"pricewatch/internal/logger"
	"pricewatch/internal/metrics"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/symbolview"
)

// revision is stamped at build time with -ldflags "-X main.revision=...".
var revision = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pricewatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(log)
	log.Info("starting pricewatch", "revision", revision, "env", cfg.Env, "store", cfg.Database.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	deps, err := app.Build(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Warn("closing dependencies", "error", err)
		}
	}()

	conn, err := deps.Opener(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer conn.Close()

	views := symbolview.NewService(conn, deps.ReadQuotes, log.With("component", "symbolview"))
	h := handler.New(views,
		handler.WithMetrics(m, reg),
		handler.WithRequestTimeout(time.Duration(cfg.Server.RequestTimeoutSec)*time.Second),
		handler.WithLogger(log.With("component", "http")),
	)

	trigger, err := scheduler.NewTrigger(cfg.Batch.Schedule, deps.Runner.Run, cfg.Database,
		scheduler.WithGuard(deps.Guard),
		scheduler.WithMetrics(m),
		scheduler.WithLogger(log.With("component", "scheduler")),
	)
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h.InitRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	grace := time.Duration(cfg.Server.ShutdownGraceSec) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		trigger.Start(gctx)
		<-gctx.Done()

		// an in-flight batch must release its store connection before deps close
		waitCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		select {
		case <-trigger.Stop().Done():
		case <-waitCtx.Done():
			log.Warn("batch still running at shutdown", "grace", grace)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("pricewatch stopped", "revision", revision)
	return err
}
