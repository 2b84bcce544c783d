package pulse

import (
	"github.com/hazyhaar/worldpulse/pulse/internal/source"
	"github.com/hazyhaar/worldpulse/pulse/internal/store"
	"github.com/hazyhaar/worldpulse/pulse/internal/watchdog"
)

// Sentinel errors re-exported for callers. Trigger handlers map
// ErrUnknownDataset and ErrNoProbe to 404.
var (
	ErrUnknownDataset        = store.ErrUnknownDataset
	ErrNoProbe               = watchdog.ErrNoProbe
	ErrUpstreamUnavailable   = source.ErrUpstreamUnavailable
	ErrMalformedResponse     = source.ErrMalformedResponse
	ErrAllFallbacksExhausted = source.ErrAllFallbacksExhausted
)
