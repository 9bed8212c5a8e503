package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WindowLimiter counts requests per client in fixed windows shared through
// Redis, so the cap holds across replicas. It guards submissions, each of
// which may cost an upstream nutrition call.
type WindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

func NewWindowLimiter(client *redis.Client, limit int, window time.Duration, logger zerolog.Logger) *WindowLimiter {
	return &WindowLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:submit:",
		logger: logger,
		now:    time.Now,
	}
}

// Allow increments the caller's counter for the current window and reports
// whether it is still within the limit, plus the seconds left in the window.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	retryAfter := int(windowStart.Add(l.window).Sub(now).Seconds()) + 1
	return incr.Val() <= int64(l.limit), retryAfter, nil
}

// Middleware enforces the window limit. Redis failures are logged and the
// request is let through.
func (l *WindowLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.limit <= 0 {
				return next(c)
			}
			ok, retryAfter, err := l.Allow(c.Request().Context(), clientKey(c))
			if err != nil {
				l.logger.Warn().Err(err).Msg("submission rate limit unavailable")
				return next(c)
			}
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many submissions; please wait before trying again")
			}
			return next(c)
		}
	}
}
