package facts

import (
	"context"
	"log/slog"
	"time"

	"github.com/arbiterhq/arbiter"
)

// Timeout bounds each resolution with a deadline. The engine itself
// never enforces timeouts; bounding resolution latency is the fact
// provider's responsibility, and this wrapper is the simplest way to
// meet it. A resolution that exceeds d fails with context.DeadlineExceeded,
// which surfaces as a Failed leaf.
func Timeout(inner arbiter.FactsResolver, d time.Duration) arbiter.FactsResolver {
	return arbiter.ResolverFunc(func(ctx context.Context, key string) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return inner.Resolve(ctx, key)
	})
}

// Logged logs each resolution with its duration and outcome at Debug
// level, errors at Warn.
func Logged(inner arbiter.FactsResolver, logger *slog.Logger) arbiter.FactsResolver {
	return arbiter.ResolverFunc(func(ctx context.Context, key string) (any, error) {
		start := time.Now()
		v, err := inner.Resolve(ctx, key)
		elapsed := time.Since(start)
		if err != nil {
			logger.WarnContext(ctx, "fact resolution failed",
				"key", key, "elapsed", elapsed, "err", err)
			return nil, err
		}
		logger.DebugContext(ctx, "fact resolved",
			"key", key, "elapsed", elapsed, "null", v == nil)
		return v, nil
	})
}
