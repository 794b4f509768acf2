package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"conu-community/internal/community"
	"conu-community/internal/metrics"
)

// Client talks to the platform API. All upstream calls flow through one
// shared rate limiter, so the effective request rate is bounded no matter
// how many logical requests are in flight.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// tokenSlack renews the token this long before its actual expiry.
const tokenSlack = 30 * time.Second

// Search fetches up to limit posts matching query from one subreddit, sorted
// by sortOrder within timeWindow. On a provider rate-limit response it logs
// and returns an empty page instead of failing the caller's pipeline; every
// other error propagates.
func (c *Client) Search(ctx context.Context, subreddit, query, sortOrder, timeWindow string, limit int) ([]community.Post, error) {
	start := time.Now()

	token, err := c.accessToken(ctx)
	if err != nil {
		metrics.RedditRequestsTotal.WithLabelValues(subreddit, "error").Inc()
		return nil, fmt.Errorf("reddit: access token: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", sortOrder)
	params.Set("t", timeWindow)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.cfg.BaseURL, url.PathEscape(subreddit), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reddit: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.do(ctx, req)
	if err != nil {
		metrics.RedditRequestsTotal.WithLabelValues(subreddit, "error").Inc()
		return nil, fmt.Errorf("reddit: search %s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		// Policy: continue after rate-limit errors. The page is lost, the
		// pipeline is not.
		metrics.RedditRequestsTotal.WithLabelValues(subreddit, "rate_limited").Inc()
		c.logger.Warn("rate limited by upstream, continuing with empty page",
			zap.String("subreddit", subreddit),
			zap.Duration("retry_after", parseRetryAfter(resp)),
		)
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.RedditRequestsTotal.WithLabelValues(subreddit, "error").Inc()
		c.logger.Error("upstream search error",
			zap.String("subreddit", subreddit),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 200)),
		)
		return nil, fmt.Errorf("reddit: upstream %d searching %s", resp.StatusCode, subreddit)
	}

	var listing listingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		metrics.RedditRequestsTotal.WithLabelValues(subreddit, "error").Inc()
		return nil, fmt.Errorf("reddit: decode listing: %w", err)
	}

	posts := make([]community.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		createdUTC := int64(p.CreatedUTC)
		posts = append(posts, community.Post{
			ID:           p.ID,
			Community:    "r/" + subreddit,
			Title:        p.Title,
			URL:          "https://www.reddit.com" + p.Permalink,
			Score:        p.Score,
			CommentCount: p.NumComments,
			CreatedUTC:   createdUTC,
			CreatedISO:   time.Unix(createdUTC, 0).UTC().Format(time.RFC3339),
		})
	}

	metrics.RedditRequestsTotal.WithLabelValues(subreddit, "ok").Inc()
	c.logger.Debug("search completed",
		zap.String("subreddit", subreddit),
		zap.Int("count", len(posts)),
		zap.Duration("duration", time.Since(start)),
	)

	return posts, nil
}

// do waits for the pacing clock, then issues the request.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// accessToken returns a valid bearer token, fetching a fresh one through the
// password grant when the cached token is absent or near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(tokenSlack).Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("token endpoint %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", fmt.Errorf("token grant rejected: %s", tok.Error)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Info("access token refreshed",
		zap.Time("expires_at", c.tokenExpiry),
	)

	return c.token, nil
}

// parseRetryAfter extracts the advised wait from a Retry-After header, as
// seconds or an HTTP date. Returns 0 if missing or invalid.
func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// truncate limits string length for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
