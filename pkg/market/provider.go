package market

import "context"

// Provider exposes source-agnostic historical market data.
type Provider interface {
	// Snapshot returns the normalized series bundle for one asset over one
	// trailing window. Failures wrap one of the package error sentinels.
	Snapshot(ctx context.Context, assetID string, windowDays int, kind Kind) (*Snapshot, error)
}
