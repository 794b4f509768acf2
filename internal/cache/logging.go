package cache

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"conu-community/internal/metrics"
	"conu-community/pkg/logging/logging"
)

// LoggingAnswerCache wraps an AnswerCache with logging + metrics.
type LoggingAnswerCache struct {
	inner AnswerCache
}

// NewLoggingAnswerCache returns a cache that logs and records metrics.
func NewLoggingAnswerCache(inner AnswerCache) AnswerCache {
	return &LoggingAnswerCache{inner: inner}
}

func (c *LoggingAnswerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
		metrics.AnswerCacheHitsTotal.Inc()
	}

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}
	if parts, ok := parseKey(key); ok {
		fields = append(fields,
			zap.String("course", parts.course),
			zap.String("question_hash", parts.hash),
		)
	}

	if err != nil {
		logger.Error("answer_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Info("answer_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingAnswerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", latencyMs),
	}
	if parts, ok := parseKey(key); ok {
		fields = append(fields,
			zap.String("course", parts.course),
			zap.String("question_hash", parts.hash),
		)
	}

	if err != nil {
		logger.Error("answer_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Info("answer_cache_set", fields...)
	}

	return err
}

type keyParts struct {
	course string
	hash   string
}

// Expecting: answer:<COURSE>:<HASH>
func parseKey(key string) (keyParts, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "answer" {
		return keyParts{}, false
	}
	return keyParts{course: parts[1], hash: parts[2]}, true
}
