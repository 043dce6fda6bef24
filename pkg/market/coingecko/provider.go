package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"coinboard-api/pkg/market"
)

const defaultProviderTimeout = 8 * time.Second

// Provider wraps the CoinGecko client behind the generic market.Provider
// contract and memoizes snapshots in a TTL cache so repeated dashboard
// interactions inside the TTL never touch the network.
type Provider struct {
	client  *Client
	timeout time.Duration
	cache   *market.SnapshotCache
}

type providerConfig struct {
	timeout      time.Duration
	cacheTTL     time.Duration
	cache        *market.SnapshotCache
	clientConfig []Option
}

// ProviderOption customises the CoinGecko provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithCacheTTL overrides how long fetched snapshots are memoized.
func WithCacheTTL(ttl time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if ttl > 0 {
			cfg.cacheTTL = ttl
		}
	}
}

// WithSnapshotCache injects a prebuilt cache, used by tests to control the
// cache clock.
func WithSnapshotCache(cache *market.SnapshotCache) ProviderOption {
	return func(cfg *providerConfig) {
		if cache != nil {
			cfg.cache = cache
		}
	}
}

// WithClientOptions passes options to the underlying CoinGecko client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientConfig = append(cfg.clientConfig, options...)
	}
}

// NewProvider constructs a CoinGecko market data provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{
		timeout:  defaultProviderTimeout,
		cacheTTL: market.DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	cache := cfg.cache
	if cache == nil {
		cache = market.NewSnapshotCache(cfg.cacheTTL)
	}
	return &Provider{
		client:  NewClient(cfg.clientConfig...),
		timeout: cfg.timeout,
		cache:   cache,
	}
}

func init() {
	market.RegisterProvider("coingecko", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.CacheTTL > 0 {
			opts = append(opts, WithCacheTTL(cfg.CacheTTL))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		if cfg.VsCurrency != "" {
			clientOptions = append(clientOptions, WithVsCurrency(cfg.VsCurrency))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		if len(clientOptions) > 0 {
			opts = append(opts, WithClientOptions(clientOptions...))
		}
		return NewProvider(opts...), nil
	})
}

// Snapshot implements market.Provider. Window validation happens before the
// cache lookup so an invalid request is never served stale data, and before
// any network I/O.
func (p *Provider) Snapshot(ctx context.Context, assetID string, windowDays int, kind market.Kind) (*market.Snapshot, error) {
	if kind == market.KindOHLC {
		if _, ok := ohlcWindows[windowDays]; !ok {
			return nil, fmt.Errorf("%w: ohlc window must be one of 1,7,14,30,90,180,365 days, got %d", market.ErrInvalidWindow, windowDays)
		}
	} else if !kind.Valid() {
		return nil, fmt.Errorf("coingecko: unsupported kind %q", kind)
	}

	if snap, ok := p.cache.Get(assetID, windowDays, kind); ok {
		return snap, nil
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var (
		snap *market.Snapshot
		err  error
	)
	switch kind {
	case market.KindOHLC:
		snap, err = p.client.OHLC(ctx, assetID, windowDays)
	default:
		snap, err = p.client.MarketChart(ctx, assetID, windowDays)
	}
	if err != nil {
		logx.WithContext(ctx).Errorf("coingecko: fetch asset=%s days=%d kind=%s err=%v", assetID, windowDays, kind, err)
		return nil, err
	}

	p.cache.Put(snap)
	return snap, nil
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}
