// Package symbolview answers point-in-time queries for watched symbols.
package symbolview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pricewatch/internal/aggregate"
	"pricewatch/internal/model"
	"pricewatch/internal/quote"
	"pricewatch/internal/store"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindAlreadyExists
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a client-facing failure. Anything else returned by Service is internal.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func notFound(symbol string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Symbol %s is not found", symbol)}
}

func alreadyExists(symbol string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: fmt.Sprintf("Symbol %s is already added", symbol)}
}

type Service struct {
	instruments store.InstrumentRegistry
	samples     store.SampleStore
	quotes      quote.Client
	log         *slog.Logger
}

func NewService(conn store.Conn, quotes quote.Client, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		instruments: conn.Instruments(),
		samples:     conn.Samples(),
		quotes:      quotes,
		log:         log,
	}
}

// GetSymbolView fetches the live price and combines it with the stored window.
// A symbol whose price cannot be fetched is reported as not found.
func (s *Service) GetSymbolView(ctx context.Context, token, symbol string) (model.SymbolView, error) {
	if err := model.ValidateSymbol(symbol); err != nil {
		return model.SymbolView{}, &Error{Kind: KindValidation, Message: err.Error()}
	}

	in, err := s.instruments.FindBySymbol(ctx, symbol)
	if errors.Is(err, store.ErrNotFound) {
		return model.SymbolView{}, notFound(symbol)
	}
	if err != nil {
		return model.SymbolView{}, err
	}

	price, err := s.quotes.FetchPrice(ctx, token, symbol)
	if err != nil {
		s.log.Error("price fetch failed", "token", token, "symbol", symbol, "err", err)
		return model.SymbolView{}, notFound(symbol)
	}

	recent, err := s.samples.Recent(ctx, in.ID, model.MovingAverageWindow)
	if err != nil {
		return model.SymbolView{}, err
	}
	recent = aggregate.Window(recent)

	return model.SymbolView{
		CurrentPrice:  price,
		MovingAverage: aggregate.MovingAverage(recent, price),
		LastCheckedAt: aggregate.LastChecked(recent, in.CreatedAt),
	}, nil
}

// RegisterSymbol starts watching symbol once the provider has quoted it.
func (s *Service) RegisterSymbol(ctx context.Context, token, symbol string) (model.SymbolView, error) {
	if err := model.ValidateSymbol(symbol); err != nil {
		return model.SymbolView{}, &Error{Kind: KindValidation, Message: err.Error()}
	}

	_, err := s.instruments.FindBySymbol(ctx, symbol)
	switch {
	case err == nil:
		return model.SymbolView{}, alreadyExists(symbol)
	case !errors.Is(err, store.ErrNotFound):
		return model.SymbolView{}, err
	}

	price, err := s.quotes.FetchPrice(ctx, token, symbol)
	if err != nil {
		s.log.Error("price fetch failed", "token", token, "symbol", symbol, "err", err)
		return model.SymbolView{}, notFound(symbol)
	}

	in, created, err := s.instruments.AddIfAbsent(ctx, symbol)
	if err != nil {
		return model.SymbolView{}, err
	}
	if !created {
		return model.SymbolView{}, alreadyExists(symbol)
	}
	s.log.Info("symbol registered", "token", token, "symbol", symbol, "instrument_id", in.ID)

	return model.SymbolView{
		CurrentPrice:  price,
		MovingAverage: price,
		LastCheckedAt: in.CreatedAt,
	}, nil
}
