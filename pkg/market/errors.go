package market

import "errors"

// Error taxonomy reported to presentation layers. All fetch and normalization
// failures wrap one of these sentinels so callers can match with errors.Is
// and degrade to an empty view instead of crashing.
var (
	// ErrDataUnavailable covers transport failures, non-2xx responses, and
	// undecodable or empty provider payloads. Recoverable; retry later.
	ErrDataUnavailable = errors.New("market: data unavailable")

	// ErrMalformedPayload marks structurally invalid provider data, such as a
	// truncated OHLC record. The whole snapshot is rejected rather than
	// silently dropping rows.
	ErrMalformedPayload = errors.New("market: malformed payload")

	// ErrInvalidWindow is returned before any network I/O when the requested
	// window is outside the provider's enumerated set.
	ErrInvalidWindow = errors.New("market: invalid window")
)
