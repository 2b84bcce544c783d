package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/worldpulse/fact"
)

// Variant is one alternative upstream in a fallback chain.
type Variant struct {
	Name  string
	Fetch func(ctx context.Context) (*fact.Payload, error)
}

// fetchFirst tries variants in order and returns the first payload that
// fetches AND validates. A variant that returns an invalid payload counts
// as failed so the chain can keep going. If every variant fails, the
// returned error wraps ErrAllFallbacksExhausted together with the last
// underlying cause.
func fetchFirst(ctx context.Context, logger *slog.Logger, variants []Variant) (*fact.Payload, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: no variants configured", ErrAllFallbacksExhausted)
	}
	var lastErr error
	for _, v := range variants {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		payload, err := v.Fetch(ctx)
		if err == nil {
			if verr := payload.Validate(); verr != nil {
				err = fmt.Errorf("%w: %v", ErrMalformedResponse, verr)
			} else {
				return payload, nil
			}
		}
		lastErr = err
		logger.Warn("source variant failed, trying next",
			slog.String("variant", v.Name),
			slog.String("error", err.Error()))
	}
	return nil, errors.Join(ErrAllFallbacksExhausted, lastErr)
}
