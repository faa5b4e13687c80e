package symbolview_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pricewatch/internal/model"
	"pricewatch/internal/quote"
	"pricewatch/internal/quote/quotemock"
	"pricewatch/internal/store"
	"pricewatch/internal/store/memory"
	"pricewatch/internal/store/storemock"
	"pricewatch/internal/symbolview"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func requireKind(t *testing.T, err error, kind symbolview.Kind) *symbolview.Error {
	t.Helper()
	var ve *symbolview.Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, kind, ve.Kind)
	return ve
}

func TestGetSymbolView_MovingAverage(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	db := memory.New().WithClock(stepClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)))
	conn, err := db.Open(t.Context(), store.Config{})
	require.NoError(t, err)

	aapl, _, err := conn.Instruments().AddIfAbsent(t.Context(), "AAPL")
	require.NoError(t, err)
	_, _, err = conn.Instruments().AddIfAbsent(t.Context(), "MSFT")
	require.NoError(t, err)

	var last time.Time
	for _, p := range []float64{186, 187, 188, 189, 190} {
		s, err := conn.Samples().Append(t.Context(), aapl.ID, p)
		require.NoError(t, err)
		last = s.CreatedAt
	}

	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "AAPL").Return(191.0, nil)
	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "MSFT").Return(410.0, nil)
	svc := symbolview.NewService(conn, quotes, quietLogger())

	// Act
	view, err := svc.GetSymbolView(t.Context(), "tok", "AAPL")
	require.NoError(t, err)
	empty, err := svc.GetSymbolView(t.Context(), "tok", "MSFT")
	require.NoError(t, err)

	// Assert
	require.InDelta(t, 191.0, view.CurrentPrice, 0)
	require.InDelta(t, 188.0, view.MovingAverage, 1e-9)
	require.True(t, view.LastCheckedAt.Equal(last))

	require.InDelta(t, 410.0, empty.MovingAverage, 0)
	msft, err := conn.Instruments().FindBySymbol(t.Context(), "MSFT")
	require.NoError(t, err)
	require.True(t, empty.LastCheckedAt.Equal(msft.CreatedAt))
}

func TestGetSymbolView_UsesOnlyLastTenSamples(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	db := memory.New().WithClock(stepClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)))
	conn, err := db.Open(t.Context(), store.Config{})
	require.NoError(t, err)
	in, _, err := conn.Instruments().AddIfAbsent(t.Context(), "TSLA")
	require.NoError(t, err)

	// 1000 is outside the window
	_, err = conn.Samples().Append(t.Context(), in.ID, 1000)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err = conn.Samples().Append(t.Context(), in.ID, 10)
		require.NoError(t, err)
	}

	quotes.EXPECT().FetchPrice(gomock.Any(), gomock.Any(), "TSLA").Return(11.0, nil)
	view, err := symbolview.NewService(conn, quotes, quietLogger()).GetSymbolView(t.Context(), "tok", "TSLA")

	require.NoError(t, err)
	require.InDelta(t, 10.0, view.MovingAverage, 1e-9)
}

func TestGetSymbolView_Errors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	conn, err := memory.New().Open(t.Context(), store.Config{})
	require.NoError(t, err)
	_, _, err = conn.Instruments().AddIfAbsent(t.Context(), "AAPL")
	require.NoError(t, err)
	svc := symbolview.NewService(conn, quotes, quietLogger())

	_, err = svc.GetSymbolView(t.Context(), "tok", "TOOLONG")
	ve := requireKind(t, err, symbolview.KindValidation)
	require.Equal(t, "symbol must be maximum 5 characters", ve.Message)

	_, err = svc.GetSymbolView(t.Context(), "tok", "")
	requireKind(t, err, symbolview.KindValidation)

	_, err = svc.GetSymbolView(t.Context(), "tok", "ZZZZ")
	ve = requireKind(t, err, symbolview.KindNotFound)
	require.Equal(t, "Symbol ZZZZ is not found", ve.Message)

	// Assert: a provider failure is masked as not found
	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "AAPL").
		Return(0.0, &quote.FetchError{Kind: quote.Unreachable, Symbol: "AAPL"})
	_, err = svc.GetSymbolView(t.Context(), "tok", "AAPL")
	requireKind(t, err, symbolview.KindNotFound)
}

func TestGetSymbolView_StoreFailureIsInternal(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	conn := storemock.NewMockConn(ctrl)
	registry := storemock.NewMockInstrumentRegistry(ctrl)
	conn.EXPECT().Instruments().Return(registry)
	conn.EXPECT().Samples().Return(storemock.NewMockSampleStore(ctrl))

	boom := &store.StoreError{Op: "find instrument", Err: errors.New("timeout")}
	registry.EXPECT().FindBySymbol(gomock.Any(), "AAPL").Return(model.Instrument{}, boom)

	_, err := symbolview.NewService(conn, quotes, quietLogger()).GetSymbolView(t.Context(), "tok", "AAPL")

	require.ErrorIs(t, err, boom)
	var ve *symbolview.Error
	require.False(t, errors.As(err, &ve))
}

func TestRegisterSymbol(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	conn, err := memory.New().Open(t.Context(), store.Config{})
	require.NoError(t, err)
	svc := symbolview.NewService(conn, quotes, quietLogger())
	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "NVDA").Return(120.5, nil)

	// Act
	view, err := svc.RegisterSymbol(t.Context(), "tok", "NVDA")
	require.NoError(t, err)
	_, again := svc.RegisterSymbol(t.Context(), "tok", "NVDA")

	// Assert
	require.InDelta(t, 120.5, view.CurrentPrice, 0)
	require.InDelta(t, 120.5, view.MovingAverage, 0)
	in, err := conn.Instruments().FindBySymbol(t.Context(), "NVDA")
	require.NoError(t, err)
	require.True(t, view.LastCheckedAt.Equal(in.CreatedAt))

	ve := requireKind(t, again, symbolview.KindAlreadyExists)
	require.Equal(t, "Symbol NVDA is already added", ve.Message)
}

func TestRegisterSymbol_UnknownToProvider(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	conn, err := memory.New().Open(t.Context(), store.Config{})
	require.NoError(t, err)
	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "QQQQQ").
		Return(0.0, &quote.FetchError{Kind: quote.NoPrice, Symbol: "QQQQQ"})

	_, err = symbolview.NewService(conn, quotes, quietLogger()).RegisterSymbol(t.Context(), "tok", "QQQQQ")

	requireKind(t, err, symbolview.KindNotFound)
	list, err := conn.Instruments().List(t.Context())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRegisterSymbol_SoftDeletedStaysTaken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	quotes := quotemock.NewMockClient(ctrl)
	db := memory.New()
	conn, err := db.Open(t.Context(), store.Config{})
	require.NoError(t, err)
	_, _, err = conn.Instruments().AddIfAbsent(t.Context(), "GME")
	require.NoError(t, err)
	require.True(t, db.SoftDelete("GME"))
	quotes.EXPECT().FetchPrice(gomock.Any(), "tok", "GME").Return(25.0, nil)

	_, err = symbolview.NewService(conn, quotes, quietLogger()).RegisterSymbol(t.Context(), "tok", "GME")

	requireKind(t, err, symbolview.KindAlreadyExists)
}
