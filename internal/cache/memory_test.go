package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryAnswerCacheTTL(t *testing.T) {
	c := NewMemoryAnswerCache(time.Minute)
	defer c.Close()

	base := time.Now()
	c.now = func() time.Time { return base }

	ctx := context.Background()
	key := BuildKey("COMP 248", "Is COMP 248 hard?").String()
	val := []byte(`{"count":3}`)

	if err := c.Set(ctx, key, val, 30*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit immediately after Set")
	}
	if string(got) != `{"count":3}` {
		t.Fatalf("unexpected value: %q", got)
	}

	// 29 seconds in: still fresh.
	c.now = func() time.Time { return base.Add(29 * time.Second) }
	if _, hit, _ := c.Get(ctx, key); !hit {
		t.Fatalf("expected hit before TTL expiry")
	}

	// 31 seconds in: expired, never served.
	c.now = func() time.Time { return base.Add(31 * time.Second) }
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Fatalf("expected miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read, have %d items", c.Len())
	}
}

func TestMemoryAnswerCacheNonPositiveTTLDeletes(t *testing.T) {
	c := NewMemoryAnswerCache(time.Minute)
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set with zero TTL failed: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Fatalf("zero TTL should remove the entry")
	}
}

func TestBuildKeyNormalizesQuestion(t *testing.T) {
	a := BuildKey("COMP 248", "Is COMP 248 Hard?")
	b := BuildKey("comp 248", "is comp 248 hard?  ")
	if a.String() != b.String() {
		t.Fatalf("expected case/space-insensitive keys, got %s vs %s", a, b)
	}
	if a.Course != "COMP-248" {
		t.Fatalf("course segment not normalized: %s", a.Course)
	}

	other := BuildKey("COMP 248", "is the final hard?")
	if other.String() == a.String() {
		t.Fatalf("different questions must produce different keys")
	}
}
