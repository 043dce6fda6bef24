package svc

import (
	"log"

	"coinboard-api/internal/config"
	marketpkg "coinboard-api/pkg/market"

	// Import for side-effects: registers the coingecko provider type.
	_ "coinboard-api/pkg/market/coingecko"
)

type ServiceContext struct {
	Config config.Config

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.Provider
	DefaultMarket   marketpkg.Provider
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{Config: c}

	marketCfg := c.Market.Value
	if marketCfg == nil {
		marketCfg = config.MustLoadMarket()
	}

	providers, err := marketCfg.BuildProviders()
	if err != nil {
		log.Fatalf("failed to build market providers: %v", err)
	}
	svc.MarketConfig = marketCfg
	svc.MarketProviders = providers
	if marketCfg.Default != "" {
		svc.DefaultMarket = providers[marketCfg.Default]
	} else {
		for _, provider := range providers {
			svc.DefaultMarket = provider
			break
		}
	}
	return svc
}
