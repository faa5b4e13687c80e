// Package batch runs one sampling pass over every watched instrument.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"pricewatch/internal/metrics"
	"pricewatch/internal/model"
	"pricewatch/internal/quote"
	"pricewatch/internal/quote/ratelimit"
	"pricewatch/internal/store"
)

// ErrNotConfigured is returned when Run has no config, opener or quote client.
var ErrNotConfigured = errors.New("batch: not configured")

type State int

const (
	Idle State = iota
	Enumerating
	PerInstrumentLoop
	Finalizing
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Enumerating:
		return "enumerating"
	case PerInstrumentLoop:
		return "per_instrument_loop"
	case Finalizing:
		return "finalizing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Config is the per-run input. The runner never shares it between runs.
type Config struct {
	Token string
	Store store.Config
}

// Outcome summarizes one run. Succeeded is true once the loop completed,
// even if every instrument failed; Failed counts those instruments.
type Outcome struct {
	Token       string        `json:"token"`
	State       State         `json:"state"`
	Succeeded   bool          `json:"succeeded"`
	Instruments int           `json:"instruments"`
	Stored      int           `json:"stored"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"-"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	return json.Marshal(struct {
		plain
		Duration string `json:"duration"`
	}{plain(o), o.Duration.String()})
}

// Pacer spaces external calls; *ratelimit.Pacer implements it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SamplePublisher is told about every stored sample.
type SamplePublisher interface {
	PublishSample(ctx context.Context, token string, in model.Instrument, s model.PriceSample) error
}

type Runner struct {
	open      store.Opener
	quotes    quote.Client
	pacer     Pacer
	publisher SamplePublisher
	metrics   *metrics.Metrics
	log       *slog.Logger
}

type Option func(*Runner)

func WithPacer(p Pacer) Option { return func(r *Runner) { r.pacer = p } }

func WithPublisher(p SamplePublisher) Option { return func(r *Runner) { r.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner returns a runner pacing at ratelimit.DefaultCallsPerSecond unless WithPacer is given.
func NewRunner(open store.Opener, quotes quote.Client, opts ...Option) *Runner {
	r := &Runner{
		open:   open,
		quotes: quotes,
		pacer:  ratelimit.NewPacer(ratelimit.DefaultCallsPerSecond),
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run performs one pass. The store connection it opens is closed exactly once
// before Run returns, whatever happened inside the loop.
func (r *Runner) Run(ctx context.Context, cfg *Config) (Outcome, error) {
	if r == nil || cfg == nil || r.open == nil || r.quotes == nil {
		return Outcome{State: Failed}, ErrNotConfigured
	}
	start := time.Now()
	log := r.log.With("token", cfg.Token)
	out := Outcome{Token: cfg.Token, State: Enumerating}

	conn, err := r.open(ctx, cfg.Store)
	if err != nil {
		return r.finish(log, out, start, store.Wrap("open", err))
	}
	closed := false
	closeConn := func() {
		if closed {
			return
		}
		closed = true
		if err := conn.Close(); err != nil {
			log.Warn("store close failed", "err", err)
		}
	}
	defer closeConn()

	loopErr := r.sample(ctx, log, cfg.Token, conn, &out)

	out.State = Finalizing
	closeConn()
	return r.finish(log, out, start, loopErr)
}

func (r *Runner) sample(ctx context.Context, log *slog.Logger, token string, conn store.Conn, out *Outcome) error {
	instruments, err := conn.Instruments().List(ctx)
	if err != nil {
		return store.Wrap("list instruments", err)
	}
	out.Instruments = len(instruments)
	out.State = PerInstrumentLoop
	log.Debug("instruments enumerated", "count", len(instruments))

	samples := conn.Samples()
	for _, in := range instruments {
		if err := r.pacer.Wait(ctx); err != nil {
			return err
		}

		price, err := r.quotes.FetchPrice(ctx, token, in.Symbol)
		if err != nil {
			out.Failed++
			r.metrics.InstrumentFailed(failureKind(err))
			log.Warn("price fetch failed", "symbol", in.Symbol, "err", err)
			continue
		}

		s, err := samples.Append(ctx, in.ID, price)
		if err != nil {
			out.Failed++
			r.metrics.InstrumentFailed(failureKind(err))
			log.Warn("sample not stored", "symbol", in.Symbol, "price", price, "err", err)
			continue
		}
		out.Stored++
		r.metrics.SampleStored()
		log.Debug("sample stored", "symbol", in.Symbol, "price", price)

		if r.publisher != nil {
			if err := r.publisher.PublishSample(ctx, token, in, s); err != nil {
				log.Warn("sample event not published", "symbol", in.Symbol, "err", err)
			}
		}
	}
	return nil
}

func (r *Runner) finish(log *slog.Logger, out Outcome, start time.Time, err error) (Outcome, error) {
	out.Duration = time.Since(start)
	if err != nil {
		out.State = Failed
		out.Succeeded = false
		r.metrics.ObserveBatch(Failed.String(), out.Duration, out.Failed)
		log.Error("batch failed", "err", err, "stored", out.Stored, "failed", out.Failed)
		return out, err
	}
	out.State = Succeeded
	out.Succeeded = true
	r.metrics.ObserveBatch(Succeeded.String(), out.Duration, out.Failed)
	return out, nil
}

func failureKind(err error) string {
	var fe *quote.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "store"
}
