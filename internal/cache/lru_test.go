package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string, string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string, string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCacheEviction(t *testing.T) {
	c, _ := newTestCache(3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1")           // key1 becomes most recently used
	c.Set("key4", "value4") // evicts key2

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "2")

	clock.t = clock.t.Add(45 * time.Second)
	if _, found := c.Get("a"); found {
		t.Error("a should have expired")
	}
	if v, found := c.Get("b"); !found || v != "2" {
		t.Errorf("b should be live, got %q %v", v, found)
	}

	clock.t = clock.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after cleanup", c.Size())
	}
}

func TestLRUCacheSetOverwritesAndPurge(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("k", "old")
	c.Set("k", "new")
	if v, _ := c.Get("k"); v != "new" {
		t.Errorf("Get(k) = %q, want new", v)
	}
	c.Set("j", "x")
	c.Delete("j")
	if _, found := c.Get("j"); found {
		t.Error("j should be deleted")
	}
	if n := c.Purge(); n != 1 {
		t.Errorf("Purge() = %d, want 1", n)
	}
	if _, found := c.Get("k"); found {
		t.Error("k should be purged")
	}
}

func TestLRUCacheStatsAndStructKeys(t *testing.T) {
	type key struct {
		version int64
		month   string
	}
	c := NewLRUCache[key, int](4, time.Hour)
	c.Set(key{1, "2025-03"}, 10)

	if v, ok := c.Get(key{1, "2025-03"}); !ok || v != 10 {
		t.Errorf("Get = %d %v, want 10 true", v, ok)
	}
	if _, ok := c.Get(key{2, "2025-03"}); ok {
		t.Error("different version should miss")
	}
	if got := c.Stats(); got != (Stats{Hits: 1, Misses: 1, Size: 1}) {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", "1")
	clock.t = clock.t.Add(2 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	// Stop without StartCleanup must not block.
	NewManager().Stop()
}
