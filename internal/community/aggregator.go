package community

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ErrUpstreamTimeout marks an aggregation that exhausted its overall
// deadline. Partial results are discarded, never returned degraded.
var ErrUpstreamTimeout = errors.New("upstream timeout")

// Searcher issues one search call against a single community.
// Implemented by the reddit client; mocked in tests.
type Searcher interface {
	Search(ctx context.Context, subreddit, query, sortOrder, timeWindow string, limit int) ([]Post, error)
}

const (
	// DefaultPerCallTimeout bounds each individual community fetch so one
	// slow or unreachable community cannot consume the whole budget.
	DefaultPerCallTimeout = 4 * time.Second

	// searchSort and searchWindow are fixed upstream listing parameters:
	// newest first, trailing year.
	searchSort   = "new"
	searchWindow = "year"
)

// Aggregator fans one search expression out across communities and merges
// the results into a single bounded, freshness-sorted slice.
type Aggregator struct {
	client         Searcher
	perCallTimeout time.Duration
	logger         *zap.Logger
}

// NewAggregator wires an aggregator around a search client. A non-positive
// perCallTimeout falls back to DefaultPerCallTimeout.
func NewAggregator(client Searcher, perCallTimeout time.Duration, logger *zap.Logger) *Aggregator {
	if perCallTimeout <= 0 {
		perCallTimeout = DefaultPerCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		client:         client,
		perCallTimeout: perCallTimeout,
		logger:         logger.Named("aggregator"),
	}
}

// Search executes the request sequentially per community (the client's
// pacing clock is global, so parallel fetches would not be faster), pools
// the results, filters by recency, sorts newest first and truncates.
//
// A per-community timeout fails that community only; the caller's context
// deadline fails the whole aggregation with ErrUpstreamTimeout.
func (a *Aggregator) Search(ctx context.Context, req Request) ([]Post, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("aggregator: limit must be positive, got %d", req.Limit)
	}

	var pooled []Post
	for _, sub := range req.Communities {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("aggregator: %w", ErrUpstreamTimeout)
		}

		posts, err := a.searchOne(ctx, sub, req)
		if err != nil {
			// The overall deadline aborts everything; a per-call timeout
			// only skips this community.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("aggregator: %w", ErrUpstreamTimeout)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				a.logger.Warn("community search timed out, skipping",
					zap.String("community", sub),
					zap.Duration("per_call_timeout", a.perCallTimeout),
				)
				continue
			}
			return nil, fmt.Errorf("aggregator: search %s: %w", sub, err)
		}
		pooled = append(pooled, posts...)
	}

	fresh := pooled[:0]
	for _, p := range pooled {
		if p.CreatedUTC >= req.Since {
			fresh = append(fresh, p)
		}
	}

	// Stable sort keeps original fetch order for equal timestamps.
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].CreatedUTC > fresh[j].CreatedUTC
	})

	if len(fresh) > req.Limit {
		fresh = fresh[:req.Limit]
	}
	return fresh, nil
}

func (a *Aggregator) searchOne(ctx context.Context, sub string, req Request) ([]Post, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.perCallTimeout)
	defer cancel()
	return a.client.Search(callCtx, sub, req.Expression, searchSort, searchWindow, req.Limit)
}
