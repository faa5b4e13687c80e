package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"pricewatch/internal/quote"
)

const correlationHeader = "X-Correlation-Id"

// quoteResponse is the subset of /quote we read.
//
//	{"c": 261.74, "d": 0.41, "dp": 0.1569, "h": 263.31, "l": 260.68, "o": 261.07, "pc": 261.33, "t": 1602705600}
type quoteResponse struct {
	Current float64 `json:"c"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// FetchPrice retrieves the current price for symbol.
func (c *Client) FetchPrice(ctx context.Context, correlationID, symbol string) (float64, error) {
	fail := func(kind quote.ErrorKind, msg string, err error) (float64, error) {
		return 0, &quote.FetchError{
			Kind:          kind,
			Symbol:        symbol,
			CorrelationID: correlationID,
			Message:       msg,
			Err:           err,
		}
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/quote?%s", c.baseURL, query.Encode()), http.NoBody)
	if err != nil {
		return fail(quote.ProviderError, "", fmt.Errorf("creating request: %w", err))
	}
	req.Header = c.header.Clone()
	if correlationID != "" {
		req.Header.Set(correlationHeader, correlationID)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectionError(err) {
			return fail(quote.Unreachable, "", fmt.Errorf("performing request: %w", err))
		}
		return fail(quote.ProviderError, "", fmt.Errorf("performing request: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		var payload errorResponse
		if json.Unmarshal(b, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
			return fail(quote.ProviderError, payload.Error, fmt.Errorf("unexpected status code: %d", res.StatusCode))
		}
		return fail(quote.ProviderError, "", fmt.Errorf("unexpected status code: %d", res.StatusCode))
	}

	var body quoteResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fail(quote.ProviderError, "", fmt.Errorf("decoding quote response: %w", err))
	}
	if body.Current == 0 {
		return fail(quote.NoPrice, fmt.Sprintf("symbol %s has no price", symbol), nil)
	}
	return body.Current, nil
}

// isConnectionError reports failures that happened before any HTTP exchange.
func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
