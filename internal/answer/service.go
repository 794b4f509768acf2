package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"conu-community/internal/cache"
	"conu-community/internal/community"
	"conu-community/internal/query"
	"conu-community/internal/topic"
	"conu-community/pkg/logging/logging"
)

// Outcome tells the caller what to do with the response: render the
// community answer, fall back to the factual/catalogue path, or fall back
// because too few posts were found.
type Outcome string

const (
	OutcomeCommunity    Outcome = "community"
	OutcomeFactual      Outcome = "factual"
	OutcomeInsufficient Outcome = "insufficient_signal"
)

// MinSignalPosts is the smallest result count that justifies presenting a
// community-sourced answer.
const MinSignalPosts = 2

// Searcher runs one bounded aggregation. Implemented by
// community.Aggregator; mocked in tests.
type Searcher interface {
	Search(ctx context.Context, req community.Request) ([]community.Post, error)
}

// Options configures the router.
type Options struct {
	Communities    []string      // ordered, default ["Concordia"]
	CacheTTL       time.Duration // default 30s
	OverallTimeout time.Duration // end-to-end aggregation budget, default 6s
}

func (o Options) withDefaults() Options {
	if len(o.Communities) == 0 {
		o.Communities = []string{"Concordia"}
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 30 * time.Second
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = 6 * time.Second
	}
	return o
}

// Service is the question router: it gates factual questions away, serves
// cached answers, and otherwise drives classify → build → aggregate →
// summarize → store.
type Service struct {
	searcher Searcher
	store    cache.AnswerCache
	opts     Options
	now      func() time.Time
}

// NewService wires the router around an aggregator and an answer cache.
func NewService(searcher Searcher, store cache.AnswerCache, opts Options) *Service {
	return &Service{
		searcher: searcher,
		store:    store,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// Response is the router's verdict for one question.
type Response struct {
	Outcome Outcome
	Topic   topic.Category
	Result  *Result // nil for OutcomeFactual
}

// Answer runs the full state machine for one question. Aggregation failures
// (timeout or upstream error) surface as errors and are never cached.
func (s *Service) Answer(ctx context.Context, question, course string, windowDays, limit int) (Response, error) {
	logger := logging.L(ctx)

	// Step 1: factual questions never touch the community pipeline.
	if topic.IsFactual(question) {
		logger.Info("factual question, routing to catalogue path",
			zap.String("course", course),
		)
		return Response{Outcome: OutcomeFactual}, nil
	}

	// Step 2: short-lived cache, keyed by (course, lowercased question).
	key := cache.BuildKey(course, question).String()
	if cachedBytes, hit, err := s.store.Get(ctx, key); err != nil {
		// Cache is best-effort; treat errors as a miss.
		logger.Warn("answer_cache_get_error", zap.Error(err))
	} else if hit {
		var cached Result
		if err := json.Unmarshal(cachedBytes, &cached); err != nil {
			logger.Warn("answer_cache_unmarshal_error", zap.Error(err))
		} else {
			return s.respond(cached), nil
		}
	}

	// Steps 3-4: classify and build the bounded search.
	cat := topic.Classify(question)
	q := query.Build(course, cat, windowDays)

	// Step 5: aggregate under the overall deadline. Exceeding it fails the
	// whole request; partial results are discarded, not returned degraded.
	searchCtx, cancel := context.WithTimeout(ctx, s.opts.OverallTimeout)
	defer cancel()

	posts, err := s.searcher.Search(searchCtx, community.Request{
		Communities: s.opts.Communities,
		Expression:  q.Expression,
		Since:       q.Since,
		Limit:       limit,
	})
	if err != nil {
		return Response{}, fmt.Errorf("answer %q for %s: %w", question, course, err)
	}

	// Steps 6-7: summarize and store. Error outcomes never reach this point,
	// so nothing failed is ever cached.
	result := Summarize(posts, course, cat, s.now())

	if resultBytes, err := json.Marshal(result); err != nil {
		logger.Warn("marshal_result_error", zap.Error(err))
	} else if err := s.store.Set(ctx, key, resultBytes, s.opts.CacheTTL); err != nil {
		logger.Warn("answer_cache_set_error", zap.Error(err))
	}

	return s.respond(result), nil
}

// respond derives the outcome from the result count. Fewer than
// MinSignalPosts means the caller should fall back rather than present a
// thin answer.
func (s *Service) respond(result Result) Response {
	outcome := OutcomeCommunity
	if result.Count < MinSignalPosts {
		outcome = OutcomeInsufficient
	}
	return Response{
		Outcome: outcome,
		Topic:   result.Topic,
		Result:  &result,
	}
}

// Search runs one aggregation for an explicit topic, bypassing the gate and
// cache. Backs the raw search endpoint.
func (s *Service) Search(ctx context.Context, course string, cat topic.Category, windowDays, limit int) ([]community.Post, error) {
	q := query.Build(course, cat, windowDays)

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.OverallTimeout)
	defer cancel()

	posts, err := s.searcher.Search(searchCtx, community.Request{
		Communities: s.opts.Communities,
		Expression:  q.Expression,
		Since:       q.Since,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", course, err)
	}
	return posts, nil
}

// Communities exposes the configured community list for response payloads.
func (s *Service) Communities() []string {
	return s.opts.Communities
}
