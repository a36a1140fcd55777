package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemoryCache(maxSize int) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL: time.Hour,
		MaxSize:    maxSize,
		// No background cleanup for tests
	})
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	cache := newTestMemoryCache(100)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "redirect:promo", []byte(`{"id":1}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "redirect:promo")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != `{"id":1}` {
		t.Errorf("got %s", val)
	}

	has, err := cache.Has(ctx, "redirect:promo")
	if err != nil || !has {
		t.Errorf("Has = %v, %v; want true, nil", has, err)
	}

	if err := cache.Delete(ctx, "redirect:promo"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "redirect:promo"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), 20*time.Millisecond)
	_ = cache.Set(ctx, "long", []byte("v"), time.Hour)

	time.Sleep(40 * time.Millisecond)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("short: expected ErrCacheMiss, got %v", err)
	}
	if has, _ := cache.Has(ctx, "short"); has {
		t.Error("short: Has should be false after expiry")
	}
	if _, err := cache.Get(ctx, "long"); err != nil {
		t.Errorf("long: unexpected error %v", err)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	cache := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	for _, key := range []string{"redirect:a", "redirect:b", "redirect:c?x=1", "settings"} {
		_ = cache.Set(ctx, key, []byte(key), 0)
	}

	if err := cache.DeleteByPrefix(ctx, "redirect:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	for _, key := range []string{"redirect:a", "redirect:b", "redirect:c?x=1"} {
		if _, err := cache.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("expected %s to be deleted", key)
		}
	}
	if _, err := cache.Get(ctx, "settings"); err != nil {
		t.Error("expected settings to still exist")
	}
	if got := cache.Stats().Items; got != 1 {
		t.Errorf("Items = %d, want 1", got)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), 0)
	_ = cache.Set(ctx, "b", []byte("22"), 0)

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats := cache.Stats()
	if stats.Items != 0 || stats.Size != 0 {
		t.Errorf("after Clear: Items=%d Size=%d, want 0 0", stats.Items, stats.Size)
	}
}

func TestMemoryCache_MaxSizeEvicts(t *testing.T) {
	cache := newTestMemoryCache(3)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "soon", []byte("v"), time.Minute)
	_ = cache.Set(ctx, "later1", []byte("v"), time.Hour)
	_ = cache.Set(ctx, "later2", []byte("v"), time.Hour)
	_ = cache.Set(ctx, "new", []byte("v"), time.Hour)

	if got := cache.Stats().Items; got != 3 {
		t.Errorf("Items = %d, want 3", got)
	}
	if has, _ := cache.Has(ctx, "soon"); has {
		t.Error("entry closest to expiry should have been evicted")
	}
	if has, _ := cache.Has(ctx, "new"); !has {
		t.Error("new entry should be present")
	}

	// Overwriting an existing key never evicts.
	_ = cache.Set(ctx, "later1", []byte("v2"), time.Hour)
	if got := cache.Stats().Items; got != 3 {
		t.Errorf("Items after overwrite = %d, want 3", got)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "key1", []byte("value1"), 0)
	_ = cache.Set(ctx, "key2", []byte("value2"), 0)
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "nonexistent")

	stats := cache.Stats()
	if stats.Backend != "memory" {
		t.Errorf("Backend = %q", stats.Backend)
	}
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 2 || stats.Items != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Size != 12 {
		t.Errorf("Size = %d, want 12", stats.Size)
	}

	expectedHitRate := float64(2) / float64(3) * 100
	if stats.HitRate < expectedHitRate-0.01 || stats.HitRate > expectedHitRate+0.01 {
		t.Errorf("expected hit rate ~%.2f, got %.2f", expectedHitRate, stats.HitRate)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := newTestMemoryCache(50)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				_ = cache.Set(ctx, fmt.Sprintf("redirect:%d", (id+j)%80), []byte("value"), 0)
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				_, _ = cache.Get(ctx, fmt.Sprintf("redirect:%d", (id+j)%80))
			}
		}(i)
	}
	wg.Wait()

	if got := cache.Stats().Items; got < 1 || got > 80 {
		t.Errorf("Items = %d out of range", got)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	cache := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	original := []byte("original")
	_ = cache.Set(ctx, "key", original, 0)
	original[0] = 'X'

	val, _ := cache.Get(ctx, "key")
	if string(val) != "original" {
		t.Errorf("cache didn't copy on set: %s", val)
	}
	val[0] = 'Y'

	val2, _ := cache.Get(ctx, "key")
	if string(val2) != "original" {
		t.Errorf("cache didn't copy on get: %s", val2)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Second,
	})
	ctx := context.Background()

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := cache.Get(ctx, "key"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get: expected ErrCacheClosed, got %v", err)
	}
	if err := cache.Set(ctx, "key", []byte("v"), 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set: expected ErrCacheClosed, got %v", err)
	}
	if err := cache.DeleteByPrefix(ctx, "redirect:"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("DeleteByPrefix: expected ErrCacheClosed, got %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("second Close should succeed, got %v", err)
	}
}
