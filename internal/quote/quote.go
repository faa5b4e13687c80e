package quote

import (
	"context"
	"fmt"
)

// Client returns the current price for a symbol.
// Implementations never retry; retry policy belongs to the caller.
//
//go:generate mockgen -package=quotemock -destination=quotemock/mock_client.go -source=quote.go Client
type Client interface {
	FetchPrice(ctx context.Context, correlationID, symbol string) (float64, error)
}

// ErrorKind classifies a FetchError.
type ErrorKind int

const (
	// NoPrice means the provider knows nothing to quote for the symbol (price 0).
	NoPrice ErrorKind = iota + 1
	// ProviderError covers HTTP-level failures and undecodable responses.
	ProviderError
	// Unreachable means the provider could not be connected to.
	Unreachable
)

func (k ErrorKind) String() string {
	switch k {
	case NoPrice:
		return "no_price"
	case ProviderError:
		return "provider_error"
	case Unreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FetchError is the only error type returned by Client implementations.
type FetchError struct {
	Kind          ErrorKind
	Symbol        string
	CorrelationID string
	// Message carries the provider's own error text when it sent one.
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("quote %s for %s (correlation %s)", e.Kind, e.Symbol, e.CorrelationID)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches another *FetchError by kind, so errors.Is(err, &FetchError{Kind: NoPrice}) works.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
