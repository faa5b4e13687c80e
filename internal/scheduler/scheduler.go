// Package scheduler fires batch passes on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"pricewatch/internal/batch"
	"pricewatch/internal/metrics"
	"pricewatch/internal/store"
	"pricewatch/internal/worker"
)

const DefaultSchedule = "* * * * *"

// BatchFunc runs one pass; (*batch.Runner).Run satisfies it.
type BatchFunc func(ctx context.Context, cfg *batch.Config) (batch.Outcome, error)

// Tick describes what one firing did.
type Tick struct {
	Token   string
	Skipped bool
	Outcome batch.Outcome
	Err     error
}

type Trigger struct {
	spec     string
	schedule cron.Schedule
	run      BatchFunc
	store    store.Config
	guard    Guard
	metrics  *metrics.Metrics
	log      *slog.Logger
	newToken func() string

	cron *cron.Cron
}

type Option func(*Trigger)

func WithGuard(g Guard) Option { return func(t *Trigger) { t.guard = g } }

func WithMetrics(m *metrics.Metrics) Option { return func(t *Trigger) { t.metrics = m } }

func WithLogger(l *slog.Logger) Option {
	return func(t *Trigger) {
		if l != nil {
			t.log = l
		}
	}
}

func WithTokenFunc(f func() string) Option { return func(t *Trigger) { t.newToken = f } }

// NewTrigger parses spec (standard five fields; empty means DefaultSchedule).
// storeCfg is copied into every run.
func NewTrigger(spec string, run BatchFunc, storeCfg store.Config, opts ...Option) (*Trigger, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	t := &Trigger{
		spec:     spec,
		schedule: sched,
		run:      run,
		store:    storeCfg,
		guard:    &LocalGuard{},
		log:      slog.Default(),
		newToken: uuid.NewString,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

func (t *Trigger) Spec() string { return t.spec }

// Fire runs one tick synchronously. Failures are logged and returned in the Tick, never raised.
func (t *Trigger) Fire(ctx context.Context) Tick {
	token := t.newToken()
	log := t.log.With("token", token)
	tick := Tick{Token: token}

	release, acquired, err := t.guard.TryAcquire(ctx, token)
	switch {
	case err != nil:
		log.Warn("overlap guard unavailable, running anyway", "err", err)
	case !acquired:
		tick.Skipped = true
		t.metrics.TickSkipped()
		log.Info("previous batch still running, tick skipped")
		return tick
	}
	if release != nil {
		defer release()
	}

	cfg := &batch.Config{Token: token, Store: t.store}
	inst := worker.Spawn(ctx, token, func(ctx context.Context) (batch.Outcome, error) {
		return t.run(ctx, cfg)
	})
	log.Info("launched")

	// hold the guard until the worker is done, even on shutdown
	tick.Outcome, tick.Err = inst.Result(context.WithoutCancel(ctx))

	var execErr *worker.ExecutionError
	switch {
	case errors.As(tick.Err, &execErr):
		t.metrics.WorkerError()
		log.Error("worker execution error", "err", execErr.Err, "stack", string(execErr.Stack))
	case tick.Err != nil:
		log.Error("batch failed", "err", tick.Err, "state", tick.Outcome.State.String())
	default:
		log.Info("batch finished",
			"succeeded", tick.Outcome.Succeeded,
			"instruments", tick.Outcome.Instruments,
			"stored", tick.Outcome.Stored,
			"failed", tick.Outcome.Failed,
			"duration", tick.Outcome.Duration,
		)
	}
	return tick
}

// Start schedules Fire with ctx as the parent of every run.
func (t *Trigger) Start(ctx context.Context) {
	t.cron = cron.New()
	t.cron.Schedule(t.schedule, cron.FuncJob(func() { t.Fire(ctx) }))
	t.cron.Start()
	t.log.Info("scheduler started", "schedule", t.spec)
}

// Stop halts new ticks. The returned context is done once a running tick finishes.
func (t *Trigger) Stop() context.Context {
	if t.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return t.cron.Stop()
}
