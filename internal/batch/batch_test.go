package batch_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pricewatch/internal/batch"
	"pricewatch/internal/metrics"
	"pricewatch/internal/model"
	"pricewatch/internal/quote"
	"pricewatch/internal/quote/quotemock"
	"pricewatch/internal/store"
	"pricewatch/internal/store/memory"
	"pricewatch/internal/store/storemock"
)

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return ctx.Err()
}

type recordingPublisher struct {
	symbols []string
	err     error
}

func (p *recordingPublisher) PublishSample(_ context.Context, _ string, in model.Instrument, _ model.PriceSample) error {
	p.symbols = append(p.symbols, in.Symbol)
	return p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seed(t *testing.T, db *memory.DB, symbols ...string) []model.Instrument {
	t.Helper()
	conn, err := db.Open(t.Context(), store.Config{})
	require.NoError(t, err)
	defer conn.Close()

	out := make([]model.Instrument, 0, len(symbols))
	for _, s := range symbols {
		in, _, err := conn.Instruments().AddIfAbsent(t.Context(), s)
		require.NoError(t, err)
		out = append(out, in)
	}
	return out
}

func TestRun_PartialFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	db := memory.New()
	ins := seed(t, db, "AAA", "BBB")
	pacer := &countingPacer{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	gomock.InOrder(
		quotes.EXPECT().FetchPrice(gomock.Any(), "tok-1", "AAA").
			Return(0.0, &quote.FetchError{Kind: quote.NoPrice, Symbol: "AAA"}),
		quotes.EXPECT().FetchPrice(gomock.Any(), "tok-1", "BBB").Return(42.5, nil),
	)

	r := batch.NewRunner(db.Open, quotes,
		batch.WithPacer(pacer), batch.WithMetrics(m), batch.WithLogger(quietLogger()))

	// Act
	out, err := r.Run(t.Context(), &batch.Config{Token: "tok-1"})

	// Assert
	require.NoError(t, err)
	require.True(t, out.Succeeded)
	require.Equal(t, batch.Succeeded, out.State)
	require.Equal(t, 2, out.Instruments)
	require.Equal(t, 1, out.Stored)
	require.Equal(t, 1, out.Failed)
	require.Equal(t, 2, pacer.waits)

	conn, err := db.Open(t.Context(), store.Config{})
	require.NoError(t, err)
	aaa, err := conn.Samples().Recent(t.Context(), ins[0].ID, 10)
	require.NoError(t, err)
	require.Empty(t, aaa)
	bbb, err := conn.Samples().Recent(t.Context(), ins[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, bbb, 1)
	require.InDelta(t, 42.5, bbb[0].Price, 0)

	require.InDelta(t, 1, testutil.ToFloat64(m.InstrumentFailures.WithLabelValues("no_price")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.BatchRuns.WithLabelValues("succeeded")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.LastBatchFailures), 0)
}

func TestRun_AllFailuresStillSucceed(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	db := memory.New()
	seed(t, db, "AAA", "BBB")

	quotes.EXPECT().FetchPrice(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0.0, &quote.FetchError{Kind: quote.Unreachable}).Times(2)

	r := batch.NewRunner(db.Open, quotes, batch.WithPacer(&countingPacer{}), batch.WithLogger(quietLogger()))
	out, err := r.Run(t.Context(), &batch.Config{Token: "tok"})

	require.NoError(t, err)
	require.True(t, out.Succeeded)
	require.Equal(t, 0, out.Stored)
	require.Equal(t, 2, out.Failed)
}

func TestRun_ListFailureClosesOnce(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	conn := storemock.NewMockConn(ctrl)
	registry := storemock.NewMockInstrumentRegistry(ctrl)

	boom := errors.New("relation does not exist")
	conn.EXPECT().Instruments().Return(registry)
	registry.EXPECT().List(gomock.Any()).Return(nil, boom)
	conn.EXPECT().Close().Return(nil).Times(1)

	open := func(context.Context, store.Config) (store.Conn, error) { return conn, nil }
	r := batch.NewRunner(open, quotes, batch.WithPacer(&countingPacer{}), batch.WithLogger(quietLogger()))

	// Act
	out, err := r.Run(t.Context(), &batch.Config{Token: "tok"})

	// Assert
	var se *store.StoreError
	require.ErrorAs(t, err, &se)
	require.ErrorIs(t, err, boom)
	require.False(t, out.Succeeded)
	require.Equal(t, batch.Failed, out.State)
	require.Equal(t, 0, out.Stored)
}

func TestRun_OpenFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	open := func(context.Context, store.Config) (store.Conn, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	r := batch.NewRunner(open, quotes, batch.WithLogger(quietLogger()))
	out, err := r.Run(t.Context(), &batch.Config{Token: "tok"})

	var se *store.StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "open", se.Op)
	require.Equal(t, batch.Failed, out.State)
}

func TestRun_NotConfigured(t *testing.T) {
	t.Parallel()

	db := memory.New()
	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)

	_, err := batch.NewRunner(db.Open, quotes).Run(t.Context(), nil)
	require.ErrorIs(t, err, batch.ErrNotConfigured)

	_, err = batch.NewRunner(nil, quotes).Run(t.Context(), &batch.Config{})
	require.ErrorIs(t, err, batch.ErrNotConfigured)

	var r *batch.Runner
	_, err = r.Run(t.Context(), &batch.Config{})
	require.ErrorIs(t, err, batch.ErrNotConfigured)
}

func TestRun_AppendRejectionCounted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	conn := storemock.NewMockConn(ctrl)
	registry := storemock.NewMockInstrumentRegistry(ctrl)
	samples := storemock.NewMockSampleStore(ctrl)

	in := model.Instrument{ID: "id-1", Symbol: "AAPL"}
	conn.EXPECT().Instruments().Return(registry)
	conn.EXPECT().Samples().Return(samples)
	registry.EXPECT().List(gomock.Any()).Return([]model.Instrument{in}, nil)
	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "AAPL").Return(190.1, nil)
	samples.EXPECT().Append(gomock.Any(), "id-1", 190.1).
		Return(model.PriceSample{}, &store.StoreError{Op: "append sample", Err: errors.New("disk full")})
	conn.EXPECT().Close().Return(errors.New("already closed"))

	open := func(context.Context, store.Config) (store.Conn, error) { return conn, nil }
	r := batch.NewRunner(open, quotes, batch.WithPacer(&countingPacer{}), batch.WithLogger(quietLogger()))

	out, err := r.Run(t.Context(), &batch.Config{Token: "tok"})

	// Assert: close errors are logged, not returned
	require.NoError(t, err)
	require.True(t, out.Succeeded)
	require.Equal(t, 1, out.Failed)
	require.Equal(t, 0, out.Stored)
}

func TestRun_PublishesStoredSamples(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	db := memory.New()
	seed(t, db, "AAPL", "MSFT")
	pub := &recordingPublisher{err: errors.New("broker down")}

	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "AAPL").Return(190.0, nil)
	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "MSFT").Return(410.0, nil)

	r := batch.NewRunner(db.Open, quotes,
		batch.WithPacer(&countingPacer{}), batch.WithPublisher(pub), batch.WithLogger(quietLogger()))
	out, err := r.Run(t.Context(), &batch.Config{Token: "tok"})

	// Assert: publish failures never fail the pass
	require.NoError(t, err)
	require.Equal(t, 2, out.Stored)
	require.Equal(t, []string{"AAPL", "MSFT"}, pub.symbols)
}

func TestRun_CanceledContextFails(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	db := memory.New()
	seed(t, db, "AAPL")

	ctx, cancel := context.WithCancel(t.Context())
	opened := false
	open := func(ctx context.Context, cfg store.Config) (store.Conn, error) {
		conn, err := db.Open(ctx, cfg)
		opened = true
		cancel()
		return conn, err
	}

	r := batch.NewRunner(open, quotes, batch.WithPacer(&countingPacer{}), batch.WithLogger(quietLogger()))
	out, err := r.Run(ctx, &batch.Config{Token: "tok"})

	require.True(t, opened)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, out.Succeeded)
}

func TestOutcomeJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(batch.Outcome{Token: "tok", State: batch.Succeeded, Succeeded: true, Stored: 3})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "succeeded", got["state"])
	require.Equal(t, "tok", got["token"])
	require.Equal(t, "0s", got["duration"])
	require.InDelta(t, 3, got["stored"], 0)
}
