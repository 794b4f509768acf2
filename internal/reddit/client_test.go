package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func testConfig(srvURL string) Config {
	return Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Username:     "user",
		Password:     "pass",
		BaseURL:      srvURL,
		TokenURL:     srvURL + "/api/v1/access_token",
		RequestDelay: time.Millisecond,
	}
}

const tokenJSON = `{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
}

func TestSearchSuccess(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	var gotAuth, gotUA, gotQuery, gotSort, gotWindow, gotLimit string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/access_token":
			tokenCalls++
			user, pass, ok := r.BasicAuth()
			if !ok || user != "id" || pass != "secret" {
				t.Errorf("unexpected basic auth: %s/%s", user, pass)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if r.PostForm.Get("grant_type") != "password" {
				t.Errorf("unexpected grant_type: %s", r.PostForm.Get("grant_type"))
			}
			fmt.Fprint(w, tokenJSON)
		case "/r/Concordia/search.json":
			gotAuth = r.Header.Get("Authorization")
			gotUA = r.Header.Get("User-Agent")
			gotQuery = r.URL.Query().Get("q")
			gotSort = r.URL.Query().Get("sort")
			gotWindow = r.URL.Query().Get("t")
			gotLimit = r.URL.Query().Get("limit")
			fmt.Fprint(w, `{"data":{"children":[
				{"data":{"id":"abc","title":"Is COMP 248 hard?","permalink":"/r/Concordia/comments/abc/","score":41,"num_comments":17,"created_utc":1700000000.0,"subreddit":"Concordia"}}
			]}}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	posts, err := client.Search(context.Background(), "Concordia", `("COMP 248" OR COMP248)`, "new", "year", 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotAuth != "Bearer tok-1" {
		t.Errorf("unexpected Authorization header: %s", gotAuth)
	}
	if !strings.Contains(gotUA, "conu-planner") {
		t.Errorf("unexpected User-Agent: %s", gotUA)
	}
	if gotQuery != `("COMP 248" OR COMP248)` {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if gotSort != "new" || gotWindow != "year" || gotLimit != "20" {
		t.Errorf("unexpected listing params: sort=%s t=%s limit=%s", gotSort, gotWindow, gotLimit)
	}

	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != "abc" || p.Community != "r/Concordia" || p.Score != 41 || p.CommentCount != 17 {
		t.Errorf("post not mapped correctly: %#v", p)
	}
	if p.URL != "https://www.reddit.com/r/Concordia/comments/abc/" {
		t.Errorf("unexpected URL: %s", p.URL)
	}
	if p.CreatedUTC != 1700000000 {
		t.Errorf("unexpected CreatedUTC: %d", p.CreatedUTC)
	}

	// Second search reuses the cached token.
	if _, err := client.Search(context.Background(), "Concordia", "q", "new", "year", 5); err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if tokenCalls != 1 {
		t.Errorf("expected 1 token fetch, got %d", tokenCalls)
	}
}

func TestSearchContinuesPastRateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			fmt.Fprint(w, tokenJSON)
			return
		}
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	posts, err := client.Search(context.Background(), "Concordia", "q", "new", "year", 5)
	if err != nil {
		t.Fatalf("rate limit must not surface as an error, got %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected empty page on rate limit, got %d posts", len(posts))
	}
}

func TestSearchPropagatesUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			fmt.Fprint(w, tokenJSON)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := client.Search(context.Background(), "Concordia", "q", "new", "year", 5); err == nil {
		t.Fatalf("expected upstream error to propagate")
	}
}

func TestTokenGrantRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if _, err := client.Search(context.Background(), "Concordia", "q", "new", "year", 5); err == nil || !strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("expected invalid_grant error, got %v", err)
	}
}

func TestPacingIsGlobal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			fmt.Fprint(w, tokenJSON)
			return
		}
		fmt.Fprint(w, `{"data":{"children":[]}}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RequestDelay = 50 * time.Millisecond

	client, err := NewClient(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	// Token fetch + two searches = three paced calls, so at least two full
	// delay intervals must elapse.
	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := client.Search(context.Background(), "Concordia", "q", "new", "year", 5); err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("expected pacing to spread 3 calls over >=100ms, took %s", elapsed)
	}
}
