// Package fetch pulls daily closing prices for the configured instruments
// and lands them in the raw market table.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"crackwatch/internal/models"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 10 // requests per second
)

// flexFloat64 handles JSON values that may be either a number or a string.
// Some EOD feeds emit "N/A" or quoted numbers on holiday rows. A value that
// cannot be parsed is flagged as missing, never decoded as zero: a zero
// price would flow into the spread arithmetic as a real observation.
type flexFloat64 struct {
	value float64
	valid bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.value, f.valid = num, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f.valid = false
			return nil
		}
		f.value, f.valid = num, true
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// ClosePrice is one daily closing observation for a single symbol.
type ClosePrice struct {
	Date  time.Time
	Close float64
}

// PriceSource is the market-data dependency of the Fetcher.
type PriceSource interface {
	DailyCloses(ctx context.Context, symbol, lookback string) ([]ClosePrice, error)
}

// Client queries an EOD market-data HTTP API for daily closing prices.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the request rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a market-data client for the given base URL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents a non-200 response from the market-data API.
type APIError struct {
	StatusCode int
	Symbol     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error for %s (status: %d)", e.Symbol, e.StatusCode)
}

type eodRow struct {
	Date  string      `json:"date"`
	Close flexFloat64 `json:"close"`
}

// DailyCloses fetches the daily closing series for one symbol over the
// given lookback period (e.g. "5y", "90d").
func (c *Client) DailyCloses(ctx context.Context, symbol, lookback string) ([]ClosePrice, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("period", lookback)
	if c.apiKey != "" {
		params.Set("api_token", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/eod/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, &APIError{StatusCode: resp.StatusCode, Symbol: symbol}
	}

	var raw []eodRow
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response for %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no data returned for %s", symbol)
	}

	out := make([]ClosePrice, 0, len(raw))
	missing := 0
	for _, r := range raw {
		if !r.Close.valid {
			missing++
			continue
		}
		d, err := time.ParseInLocation(models.DateFormat, r.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q for %s: %w", r.Date, symbol, err)
		}
		out = append(out, ClosePrice{Date: d, Close: r.Close.value})
	}
	if missing > 0 {
		// Dropped dates become gaps for the bounded forward-fill to handle.
		slog.Warn("close prices missing, dropping rows", "symbol", symbol, "rows", missing)
	}
	return out, nil
}
