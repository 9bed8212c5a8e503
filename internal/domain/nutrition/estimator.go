// Package nutrition estimates daily macro-nutrient intake from free-text food
// and drink entries by asking a text-generation service and decoding its
// answer defensively.
package nutrition

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Estimator turns item lists into an Estimate.
type Estimator struct {
	gen     Generator
	cache   Cache
	timeout time.Duration
	logger  zerolog.Logger
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithCache enables estimate caching.
func WithCache(c Cache) Option {
	return func(e *Estimator) { e.cache = c }
}

// WithTimeout bounds each upstream call. Zero leaves the caller's context as is.
func WithTimeout(d time.Duration) Option {
	return func(e *Estimator) { e.timeout = d }
}

func NewEstimator(gen Generator, logger zerolog.Logger, opts ...Option) *Estimator {
	e := &Estimator{gen: gen, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns the clamped estimate for the non-blank items. Failures are
// *Error values except ErrNoItems.
func (e *Estimator) Estimate(ctx context.Context, foods []FoodItem, drinks []DrinkItem) (*Estimate, error) {
	foods, drinks = FilterFoods(foods), FilterDrinks(drinks)
	if len(foods) == 0 && len(drinks) == 0 {
		return nil, ErrNoItems
	}

	key := CacheKey(foods, drinks)
	if e.cache != nil {
		cached, err := e.cache.Get(ctx, key)
		switch {
		case err == nil:
			e.logger.Debug().Str("key", key).Msg("nutrition estimate cache hit")
			return cached, nil
		case !errors.Is(err, ErrCacheMiss):
			e.logger.Warn().Err(err).Msg("nutrition estimate cache read failed")
		}
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	gen, err := e.gen.Generate(callCtx, BuildPrompt(foods, drinks))
	if err != nil {
		var nerr *Error
		if errors.As(err, &nerr) {
			return nil, nerr
		}
		if isTimeout(callCtx, err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindUpstream, Err: err}
	}

	est, err := e.decode(gen)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, *est); err != nil {
			e.logger.Warn().Err(err).Msg("nutrition estimate cache write failed")
		}
	}
	return est, nil
}

func (e *Estimator) decode(gen *Generation) (*Estimate, error) {
	truncated := gen.FinishReason == FinishReasonMaxTokens
	if strings.TrimSpace(gen.Text) == "" {
		if truncated {
			return nil, newError(KindTruncated, "empty text with finish reason %s", gen.FinishReason)
		}
		return nil, newError(KindUnparseable, "empty text (finish reason %q)", gen.FinishReason)
	}

	est, strategy, err := Decode(gen.Text)
	if err != nil {
		e.logger.Error().Str("text", truncate(gen.Text, 500)).Bool("truncated", truncated).Msg("nutrition estimate not decodable")
		if truncated {
			return nil, newError(KindTruncated, "no fields recoverable from truncated text")
		}
		return nil, err
	}

	e.logger.Info().
		Str("strategy", strategy).
		Float64("carbohydrate_percent", est.CarbohydratePercent).
		Float64("protein_gram", est.ProteinGram).
		Float64("fat_percent", est.FatPercent).
		Msg("nutrition estimate decoded")
	return &est, nil
}
