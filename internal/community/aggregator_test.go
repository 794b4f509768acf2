package community

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

// searchFunc adapts a function to the Searcher interface.
type searchFunc func(ctx context.Context, subreddit, query, sort, timeWindow string, limit int) ([]Post, error)

func (f searchFunc) Search(ctx context.Context, subreddit, query, sort, timeWindow string, limit int) ([]Post, error) {
	return f(ctx, subreddit, query, sort, timeWindow, limit)
}

func post(id string, created int64) Post {
	return Post{ID: id, Community: "r/Concordia", Title: "t-" + id, CreatedUTC: created}
}

func TestSearchSortsNewestFirst(t *testing.T) {
	t.Parallel()

	client := searchFunc(func(_ context.Context, _, _, _, _ string, _ int) ([]Post, error) {
		return []Post{post("a", 100), post("b", 300), post("c", 200)}, nil
	})
	agg := NewAggregator(client, time.Second, zaptest.NewLogger(t))

	got, err := agg.Search(context.Background(), Request{
		Communities: []string{"Concordia"},
		Expression:  "q",
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	var stamps []int64
	for _, p := range got {
		stamps = append(stamps, p.CreatedUTC)
	}
	if diff := cmp.Diff([]int64{300, 200, 100}, stamps); diff != "" {
		t.Errorf("sort order mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchStableForEqualTimestamps(t *testing.T) {
	t.Parallel()

	client := searchFunc(func(_ context.Context, _, _, _, _ string, _ int) ([]Post, error) {
		return []Post{post("first", 200), post("second", 200), post("third", 200)}, nil
	})
	agg := NewAggregator(client, time.Second, zaptest.NewLogger(t))

	got, err := agg.Search(context.Background(), Request{
		Communities: []string{"Concordia"},
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, ids); diff != "" {
		t.Errorf("tie order not preserved (-want +got):\n%s", diff)
	}
}

func TestSearchFiltersAndTruncates(t *testing.T) {
	t.Parallel()

	client := searchFunc(func(_ context.Context, _, _, _, _ string, _ int) ([]Post, error) {
		return []Post{post("old", 50), post("a", 400), post("b", 300), post("c", 200)}, nil
	})
	agg := NewAggregator(client, time.Second, zaptest.NewLogger(t))

	got, err := agg.Search(context.Background(), Request{
		Communities: []string{"Concordia"},
		Since:       100,
		Limit:       2,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2 posts, got %d", len(got))
	}
	for _, p := range got {
		if p.CreatedUTC < 100 {
			t.Errorf("post %s older than since cutoff: %d", p.ID, p.CreatedUTC)
		}
	}
}

func TestSearchMergesAcrossCommunities(t *testing.T) {
	t.Parallel()

	client := searchFunc(func(_ context.Context, sub, _, _, _ string, _ int) ([]Post, error) {
		switch sub {
		case "Concordia":
			return []Post{post("a", 100)}, nil
		case "mcgill":
			return []Post{post("b", 200)}, nil
		}
		return nil, nil
	})
	agg := NewAggregator(client, time.Second, zaptest.NewLogger(t))

	got, err := agg.Search(context.Background(), Request{
		Communities: []string{"Concordia", "mcgill"},
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected merged results: %#v", got)
	}
}

func TestSearchSkipsSlowCommunity(t *testing.T) {
	t.Parallel()

	client := searchFunc(func(ctx context.Context, sub, _, _, _ string, _ int) ([]Post, error) {
		if sub == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []Post{post("ok", 100)}, nil
	})
	agg := NewAggregator(client, 20*time.Millisecond, zaptest.NewLogger(t))

	got, err := agg.Search(context.Background(), Request{
		Communities: []string{"slow", "Concordia"},
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("expected slow community to be skipped, got error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("unexpected results: %#v", got)
	}
}

func TestSearchOverallDeadline(t *testing.T) {
	t.Parallel()

	client := searchFunc(func(ctx context.Context, _, _, _, _ string, _ int) ([]Post, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	agg := NewAggregator(client, time.Second, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := agg.Search(ctx, Request{
		Communities: []string{"Concordia"},
		Limit:       10,
	})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestSearchPropagatesUpstreamErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("auth failure")
	client := searchFunc(func(_ context.Context, _, _, _, _ string, _ int) ([]Post, error) {
		return nil, boom
	})
	agg := NewAggregator(client, time.Second, zaptest.NewLogger(t))

	_, err := agg.Search(context.Background(), Request{
		Communities: []string{"Concordia"},
		Limit:       10,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected upstream error to propagate, got %v", err)
	}
}
