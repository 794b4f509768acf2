// Package cache stores serialized answers for a short TTL so repeated
// identical questions do not hammer the upstream platform.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Key identifies one cached answer: the course code plus a hash of the
// lowercased question text.
type Key struct {
	Course string
	Hash   string
}

// String converts the structured key into the final string used in the
// Redis/map backends: answer:<COURSE>:<HASH>.
func (k Key) String() string {
	return fmt.Sprintf("answer:%s:%s", k.Course, k.Hash)
}

// AnswerCache is the interface used by the question router.
// Implemented by the memory cache (dev) and the Redis cache (prod).
type AnswerCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
