package cache

import "testing"

func TestTextureCacheGetPut(t *testing.T) {
	c := New[int](0)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put("a", 42, 100)
	v, ok := c.Get("a")
	if !ok || v != 42 {
		t.Fatalf("Get(a) = (%d,%v), want (42,true)", v, ok)
	}
}

func TestTextureCacheEvictsLRUUnderBudget(t *testing.T) {
	c := New[int](250)
	c.Put("a", 1, 100)
	c.Put("b", 2, 100)
	c.Put("c", 2, 100) // total would be 300 > 250, evicts "a" (oldest)

	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to survive")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestTextureCacheAccessUpdatesRecency(t *testing.T) {
	c := New[int](250)
	c.Put("a", 1, 100)
	c.Put("b", 2, 100)
	c.Get("a") // touch a, making b the least recently used
	c.Put("c", 3, 100)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted after a was touched")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive due to recent access")
	}
}

func TestTextureCacheGetOrCreateIdempotent(t *testing.T) {
	c := New[int](0)
	calls := 0
	create := func() (int, int64) {
		calls++
		return 7, 10
	}
	v1 := c.GetOrCreate("u", create)
	v2 := c.GetOrCreate("u", create)
	if v1 != 7 || v2 != 7 {
		t.Fatalf("unexpected values %d %d", v1, v2)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestTextureCacheDelete(t *testing.T) {
	c := New[int](0)
	c.Put("a", 1, 10)
	if !c.Delete("a") {
		t.Fatal("expected Delete to report found")
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be gone after Delete")
	}
	if c.Delete("a") {
		t.Error("expected second Delete to report not found")
	}
}

func TestTextureCacheStatsHitMiss(t *testing.T) {
	c := New[int](0)
	c.Put("a", 1, 10)
	c.Get("a")
	c.Get("missing")
	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want Hits=1 Misses=1", stats)
	}
}

func TestTextureCacheZeroBudgetUnbounded(t *testing.T) {
	c := New[int](0)
	for i := 0; i < 1000; i++ {
		c.Put(string(rune('a'+i%26))+string(rune(i)), i, 1<<20)
	}
	if c.Stats().Evictions != 0 {
		t.Errorf("expected no evictions with zero budget, got %d", c.Stats().Evictions)
	}
}
