package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"conu-community/internal/answer"
	"conu-community/internal/cache"
	"conu-community/internal/community"
	"conu-community/internal/handlers"
	"conu-community/internal/httpserver"
	"conu-community/internal/metrics"
	"conu-community/internal/reddit"
	"conu-community/pkg/logging/logging"
)

type Config struct {
	Host         string
	Port         string
	CacheBackend string // "memory" or "redis"
	RedisAddr    string

	Subreddits []string

	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string

	RequestDelay   time.Duration
	PerCallTimeout time.Duration
	OverallTimeout time.Duration
	AnswerCacheTTL time.Duration
}

func LoadConfig() Config {
	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         getenv("PORT", "4000"),
		CacheBackend: getenv("CACHE_BACKEND", "memory"),
		RedisAddr:    getenv("REDIS_ADDR", "127.0.0.1:6379"),

		Subreddits: parseSubreddits(getenv("SUBREDDITS", "r/Concordia")),

		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUsername:     os.Getenv("REDDIT_USERNAME"),
		RedditPassword:     os.Getenv("REDDIT_PASSWORD"),
		RedditUserAgent:    getenv("REDDIT_USER_AGENT", "conu-planner/0.1 (dev)"),

		RequestDelay:   getenvMillis("REQUEST_DELAY_MS", 1100),
		PerCallTimeout: getenvMillis("PER_CALL_TIMEOUT_MS", 4000),
		OverallTimeout: getenvMillis("OVERALL_TIMEOUT_MS", 6000),
		AnswerCacheTTL: getenvMillis("ANSWER_CACHE_TTL_MS", 30000),
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("community service exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := LoadConfig()

	logger.Info("loaded config",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.Strings("subreddits", cfg.Subreddits),
		zap.Duration("request_delay", cfg.RequestDelay),
		zap.Duration("per_call_timeout", cfg.PerCallTimeout),
		zap.Duration("overall_timeout", cfg.OverallTimeout),
		zap.Duration("answer_cache_ttl", cfg.AnswerCacheTTL),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Answer cache -----
	cacheCfg := cache.Config{
		Backend: cfg.CacheBackend,
		TTL:     cfg.AnswerCacheTTL,
		Prefix:  "conu",
	}
	answerCache := cache.NewAnswerCache(cacheCfg, redisClient)
	answerCache = cache.NewLoggingAnswerCache(answerCache)

	// ----- Reddit client -----
	redditClient, err := reddit.NewClient(reddit.Config{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
		UserAgent:    cfg.RedditUserAgent,
		RequestDelay: cfg.RequestDelay,
	}, logger)
	if err != nil {
		return err
	}
	defer redditClient.Close()

	// ----- Pipeline -----
	aggregator := community.NewAggregator(redditClient, cfg.PerCallTimeout, logger)
	service := answer.NewService(aggregator, answerCache, answer.Options{
		Communities:    cfg.Subreddits,
		CacheTTL:       cfg.AnswerCacheTTL,
		OverallTimeout: cfg.OverallTimeout,
	})
	communityHandler := handlers.NewCommunityHandler(service)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, communityHandler)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting community service",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// parseSubreddits splits the comma-separated allow-list and strips any
// leading "r/" prefix.
func parseSubreddits(raw string) []string {
	var subs []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "r/")
		if s != "" {
			subs = append(subs, s)
		}
	}
	return subs
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvMillis reads an integer millisecond value from the environment.
func getenvMillis(key string, defMs int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(defMs) * time.Millisecond
}
