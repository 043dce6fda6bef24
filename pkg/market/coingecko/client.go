package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"coinboard-api/pkg/market"
)

const (
	defaultBaseURL          = "https://api.coingecko.com/api/v3"
	defaultVsCurrency       = "usd"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond
)

// Client wraps access to the CoinGecko public API.
type Client struct {
	baseURL    string
	vsCurrency string
	httpClient *http.Client
	maxRetries int
	logger     *log.Logger
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithVsCurrency overrides the quote currency (defaults to "usd").
func WithVsCurrency(currency string) Option {
	return func(c *Client) {
		if currency != "" {
			c.vsCurrency = currency
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithLogger injects a custom logger (defaults to log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a CoinGecko API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		vsCurrency: defaultVsCurrency,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// MarketChart fetches the daily price and volume history for an asset and
// returns it normalized and merged on the shared timestamp axis.
func (c *Client) MarketChart(ctx context.Context, assetID string, windowDays int) (*market.Snapshot, error) {
	query := url.Values{}
	query.Set("vs_currency", c.vsCurrency)
	query.Set("days", fmt.Sprintf("%d", windowDays))
	query.Set("interval", "daily")

	body, err := c.doGet(ctx, fmt.Sprintf("%s/coins/%s/market_chart", c.baseURL, url.PathEscape(assetID)), query)
	if err != nil {
		return nil, err
	}

	var payload marketChartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode market_chart for %s: %v", market.ErrDataUnavailable, assetID, err)
	}
	if len(payload.Prices) == 0 {
		return nil, fmt.Errorf("%w: empty market_chart response for %s", market.ErrDataUnavailable, assetID)
	}

	snapshot := normalizeMarketChart(&payload)
	snapshot.AssetID = assetID
	snapshot.WindowDays = windowDays
	return snapshot, nil
}

// OHLC fetches candle history for an asset. The window must belong to the
// endpoint's enumerated set; anything else fails before any network I/O.
func (c *Client) OHLC(ctx context.Context, assetID string, windowDays int) (*market.Snapshot, error) {
	if _, ok := ohlcWindows[windowDays]; !ok {
		return nil, fmt.Errorf("%w: ohlc window must be one of 1,7,14,30,90,180,365 days, got %d", market.ErrInvalidWindow, windowDays)
	}

	query := url.Values{}
	query.Set("vs_currency", c.vsCurrency)
	query.Set("days", fmt.Sprintf("%d", windowDays))

	body, err := c.doGet(ctx, fmt.Sprintf("%s/coins/%s/ohlc", c.baseURL, url.PathEscape(assetID)), query)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode ohlc for %s: %v", market.ErrDataUnavailable, assetID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty ohlc response for %s", market.ErrDataUnavailable, assetID)
	}

	snapshot, err := normalizeOHLC(rows)
	if err != nil {
		return nil, err
	}
	snapshot.AssetID = assetID
	snapshot.WindowDays = windowDays
	return snapshot, nil
}

// doGet performs a GET with retry and exponential backoff. Every transport
// or HTTP-status failure surfaces as ErrDataUnavailable once the retry
// budget is exhausted.
func (c *Client) doGet(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("coingecko: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", market.ErrDataUnavailable, ctx.Err())
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("read response: %w", readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(body, 256))
			} else {
				return body, nil
			}
		}

		if attempt < c.maxRetries {
			c.logf("coingecko: attempt %d/%d failed: %v", attempt+1, c.maxRetries+1, lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", market.ErrDataUnavailable, ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", market.ErrDataUnavailable, lastErr)
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
