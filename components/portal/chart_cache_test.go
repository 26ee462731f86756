package portal

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestChartCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewChartCache(time.Minute)
	cache.now = func() time.Time { return now }

	renders := 0
	render := func() (string, error) {
		renders++
		return "<div>chart</div>", nil
	}
	for range 2 {
		if _, err := cache.GetOrRender("k", render); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if renders != 1 {
		t.Fatalf("expected cached render, got %d renders", renders)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.GetOrRender("k", render); err != nil {
		t.Fatalf("render: %v", err)
	}
	if renders != 2 {
		t.Fatalf("expected re-render after expiry, got %d", renders)
	}
}

func TestChartCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	failing := func() (string, error) {
		calls++
		return "", errors.New("boom")
	}
	_, _ = cache.GetOrRender("k", failing)
	_, _ = cache.GetOrRender("k", failing)
	if calls != 2 {
		t.Fatalf("errors must not be cached")
	}
}

func TestChartCacheSharesConcurrentRenders(t *testing.T) {
	cache := NewChartCache(time.Minute)
	release := make(chan struct{})
	var renders atomic.Int32
	render := func() (string, error) {
		renders.Add(1)
		<-release
		return "<div>chart</div>", nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if html, err := cache.GetOrRender("stats", render); err != nil || html == "" {
				t.Errorf("GetOrRender = %q, %v", html, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if got := renders.Load(); got != 1 {
		t.Fatalf("expected one shared render, got %d", got)
	}
}

func TestChartCacheSweepsExpiredCharts(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewChartCache(time.Minute)
	cache.now = func() time.Time { return now }
	render := func() (string, error) { return "x", nil }

	_, _ = cache.GetOrRender("a", render)
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetOrRender("b", render)
	if cache.Len() != 1 {
		t.Fatalf("expected expired chart swept, have %d", cache.Len())
	}
}
