// Command export runs one fetch → normalize → derive pass and writes the
// snapshot as CSV to stdout, standing in for the dashboard's download button.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"coinboard-api/internal/config"
	"coinboard-api/pkg/market"

	// Import for side-effects: registers the coingecko provider type.
	_ "coinboard-api/pkg/market/coingecko"
)

const runTimeout = 30 * time.Second

func main() {
	asset := flag.String("asset", "bitcoin", "provider asset id, e.g. bitcoin, ethereum, solana")
	days := flag.Int("days", 30, "trailing window in days")
	kind := flag.String("kind", string(market.KindMarketChart), "market_chart or ohlc")
	ma := flag.Int("ma", 0, "attach a moving average with this window (0 = off)")
	rsi := flag.Int("rsi", 0, "attach an RSI with this period (0 = off)")
	ema := flag.Int("ema", 0, "attach an EMA with this span (0 = off)")
	marketConfig := flag.String("market-config", "", "market config path (defaults to etc/market.yaml)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime)

	var marketCfg *market.Config
	if *marketConfig != "" {
		cfg, err := market.LoadConfig(*marketConfig)
		if err != nil {
			log.Fatalf("[export] load market config: %v", err)
		}
		marketCfg = cfg
	} else {
		marketCfg = config.MustLoadMarket()
	}

	providers, err := marketCfg.BuildProviders()
	if err != nil {
		log.Fatalf("[export] build market providers: %v", err)
	}
	provider := providers[marketCfg.Default]
	if provider == nil {
		for _, p := range providers {
			provider = p
			break
		}
	}
	if provider == nil {
		log.Fatalf("[export] no market provider configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	snap, err := provider.Snapshot(ctx, *asset, *days, market.Kind(*kind))
	if err != nil {
		log.Fatalf("[export] fetch %s %dd %s: %v", *asset, *days, *kind, err)
	}

	if *ma > 0 {
		snap = snap.WithMovingAverage(*ma)
	}
	if *rsi > 0 {
		snap = snap.WithRSI(*rsi)
	}
	if *ema > 0 {
		snap = snap.WithEMA(*ema)
	}

	if err := snap.WriteCSV(os.Stdout); err != nil {
		log.Fatalf("[export] write csv: %v", err)
	}
	log.Printf("[export] wrote %d rows for %s (%dd, %s)", len(snap.Axis()), *asset, *days, snap.Kind)
}
