package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d %v", v, ok)
	}
	st := c.Stats()
	if st.Evictions != 1 || st.Size != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string](10, time.Second)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("props", "v1")
	if _, ok := c.Get("props"); !ok {
		t.Fatalf("expected hit before ttl")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("props"); ok {
		t.Fatalf("expected miss after ttl")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, time.Second)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(500 * time.Millisecond)
	c.Set("c", 3)
	now = now.Add(700 * time.Millisecond)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if c.Size() != 1 {
		t.Fatalf("expected 1 left, got %d", c.Size())
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Second)

	m := NewManager(nil)
	m.Register("test", c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx, time.Hour)
	cancel()
	m.Wait()
}
