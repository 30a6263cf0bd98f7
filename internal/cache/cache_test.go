package cache

import (
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	config1 := map[string]any{"model": "gpt-4", "temperature": 0.7}
	config2 := map[string]any{"temperature": 0.7, "model": "gpt-4"}
	inputs := map[string]any{"prompt": "hello"}

	key1 := Key("llm_text_generation", config1, inputs)
	key2 := Key("llm_text_generation", config2, inputs)

	if key1 != key2 {
		t.Errorf("key depends on map key order: %s != %s", key1, key2)
	}
}

func TestKey_NestedMapOrder(t *testing.T) {
	inputs1 := map[string]any{"data": map[string]any{"a": 1, "b": map[string]any{"x": true, "y": nil}}}
	inputs2 := map[string]any{"data": map[string]any{"b": map[string]any{"y": nil, "x": true}, "a": 1}}

	if Key("http_request", nil, inputs1) != Key("http_request", nil, inputs2) {
		t.Error("nested maps with different key order produced different keys")
	}
}

func TestKey_DifferentValues(t *testing.T) {
	base := map[string]any{"url": "https://example.com"}

	cases := []map[string]any{
		{"url": "https://example.org"},
		{"url": "https://example.com", "method": "POST"},
		{},
	}

	baseKey := Key("http_request", base, nil)
	for _, c := range cases {
		if Key("http_request", c, nil) == baseKey {
			t.Errorf("config %v collided with %v", c, base)
		}
	}

	// Разные типы узлов — разные ключи
	if Key("other_type", base, nil) == baseKey {
		t.Error("different node types produced the same key")
	}
}

func TestKey_Prefix(t *testing.T) {
	key := Key("http_request", nil, nil)

	want := "http_request:"
	if len(key) != len(want)+keyDigestLen {
		t.Errorf("unexpected key length: %s", key)
	}
	if key[:len(want)] != want {
		t.Errorf("key should start with %q, got %s", want, key)
	}
}

func TestCache_GetSet(t *testing.T) {
	c := New()
	config := map[string]any{"model": "gpt-4"}
	inputs := map[string]any{"prompt": "hi"}

	if _, ok := c.Get("llm", config, inputs); ok {
		t.Fatal("empty cache returned a value")
	}

	c.Set("llm", config, inputs, "result")

	got, ok := c.Get("llm", config, inputs)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "result" {
		t.Errorf("expected %q, got %v", "result", got)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.TotalRequests != 2 {
		t.Errorf("expected 2 total requests, got %d", stats.TotalRequests)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", stats.HitRate)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New()

	current := time.Now()
	c.now = func() time.Time { return current }

	c.SetTTL("llm", nil, nil, "value", 10*time.Second)

	// До истечения TTL — hit
	current = current.Add(9 * time.Second)
	if _, ok := c.Get("llm", nil, nil); !ok {
		t.Fatal("entry expired before its TTL")
	}

	// После истечения — miss, запись удалена при чтении
	current = current.Add(time.Second)
	if _, ok := c.Get("llm", nil, nil); ok {
		t.Fatal("entry survived past its TTL")
	}
	if size := c.Stats().Size; size != 0 {
		t.Errorf("expired entry not evicted on read, size=%d", size)
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := New()

	current := time.Now()
	c.now = func() time.Time { return current }

	c.SetTTL("llm", nil, nil, "forever", 0)

	current = current.Add(1000 * time.Hour)
	if _, ok := c.Get("llm", nil, nil); !ok {
		t.Error("zero-TTL entry expired")
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New()
	c.Set("llm", map[string]any{"a": 1}, nil, "r1")
	c.Set("llm", map[string]any{"a": 2}, nil, "r2")
	c.Set("http", nil, nil, "r3")

	removed := c.Invalidate("llm")
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	if _, ok := c.Get("http", nil, nil); !ok {
		t.Error("invalidate removed an entry of another type")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New()
	c.Set("llm", nil, nil, "r")
	c.Get("llm", nil, nil)
	c.Get("http", nil, nil)

	c.Clear()

	stats := c.Stats()
	if stats.Size != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("clear did not reset state: %+v", stats)
	}
	if stats.HitRate != 0 {
		t.Errorf("hit rate after clear should be 0, got %f", stats.HitRate)
	}
}

func TestCache_CleanupExpired(t *testing.T) {
	c := New()

	current := time.Now()
	c.now = func() time.Time { return current }

	c.SetTTL("llm", map[string]any{"a": 1}, nil, "r1", 5*time.Second)
	c.SetTTL("llm", map[string]any{"a": 2}, nil, "r2", time.Minute)
	c.SetTTL("llm", map[string]any{"a": 3}, nil, "r3", 0)

	current = current.Add(30 * time.Second)

	removed := c.CleanupExpired()
	if removed != 1 {
		t.Errorf("expected 1 expired entry removed, got %d", removed)
	}
	if size := c.Stats().Size; size != 2 {
		t.Errorf("expected 2 entries left, got %d", size)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			config := map[string]any{"worker": n}
			for j := 0; j < 100; j++ {
				c.Set("llm", config, nil, j)
				c.Get("llm", config, nil)
				c.Stats()
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if got := c.Stats().Size; got != 8 {
		t.Errorf("expected 8 distinct entries, got %d", got)
	}
}
