// Package app wires configuration into the pipeline components shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"pricewatch/internal/batch"
	"pricewatch/internal/config"
	"pricewatch/internal/events"
	"pricewatch/internal/httpx"
	"pricewatch/internal/metrics"
	"pricewatch/internal/quote"
	"pricewatch/internal/quote/finnhub"
	"pricewatch/internal/quote/ratelimit"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/store"
	"pricewatch/internal/store/gormstore"
	"pricewatch/internal/store/memory"
)

// Deps holds the wired components. Close releases whatever Build opened.
type Deps struct {
	Opener store.Opener
	// Quotes is used by batch passes; ReadQuotes by the HTTP read path.
	Quotes     quote.Client
	ReadQuotes quote.Client
	Runner     *batch.Runner
	Guard      scheduler.Guard

	closers []io.Closer
}

// Opener picks the store implementation for cfg.Driver.
func Opener(cfg store.Config, log *slog.Logger) (store.Opener, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New().Open, nil
	case gormstore.DriverPostgres, gormstore.DriverSQLite:
		return gormstore.NewOpener(log), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func Build(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*Deps, error) {
	d := &Deps{}

	opener, err := Opener(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	d.Opener = opener
	if cfg.Database.Driver != "memory" {
		if err := gormstore.Migrate(ctx, cfg.Database, log); err != nil {
			return nil, err
		}
	}

	if cfg.Finnhub.Token == "" {
		log.Warn("FINNHUB_API_TOKEN not set; quote requests will be rejected by the provider")
	}
	hc := httpx.New(time.Duration(cfg.Finnhub.TimeoutSec) * time.Second)
	fh, err := finnhub.NewClient(cfg.Finnhub.Token,
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithHTTPClient(hc),
	)
	if err != nil {
		return nil, fmt.Errorf("finnhub client: %w", err)
	}
	d.Quotes = fh
	d.ReadQuotes = fh
	if cfg.Finnhub.MaxRequestsPerMinute > 0 {
		d.ReadQuotes = &ratelimit.Limited{
			Client: fh,
			TB:     ratelimit.PerMinute(cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst),
		}
	}

	opts := []batch.Option{
		batch.WithPacer(ratelimit.NewPacer(cfg.Batch.CallsPerSecond)),
		batch.WithMetrics(m),
		batch.WithLogger(log.With("component", "batch")),
	}
	if cfg.Kafka.Enabled() {
		pub := events.NewKafkaPublisher(cfg.Kafka, log.With("component", "events"))
		d.closers = append(d.closers, pub)
		opts = append(opts, batch.WithPublisher(pub))
		log.Info("sample events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	d.Runner = batch.NewRunner(opener, fh, opts...)

	d.Guard = &scheduler.LocalGuard{}
	if cfg.Redis.Addr != "" {
		client, err := scheduler.DialRedis(ctx, cfg.Redis)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.closers = append(d.closers, client)
		d.Guard = scheduler.NewRedisGuard(client, cfg.Redis.LockKey, time.Duration(cfg.Redis.LockTTL)*time.Second).
			WithLogger(log.With("component", "guard"))
		log.Info("distributed overlap guard enabled", "addr", cfg.Redis.Addr)
	}
	return d, nil
}

func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
