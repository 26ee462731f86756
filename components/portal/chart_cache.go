package portal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RenderCache memoizes rendered chart HTML.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// ChartCache keeps rendered statistics charts for a fixed time. Concurrent
// misses on one key share a single render.
type ChartCache struct {
	ttl    time.Duration
	now    func() time.Time
	flight singleflight.Group

	mu     sync.Mutex
	charts map[string]renderedChart
}

type renderedChart struct {
	html string
	at   time.Time
}

// NewChartCache builds a cache holding charts for ttl. A non-positive ttl
// renders on every call.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{ttl: ttl, now: time.Now, charts: make(map[string]renderedChart)}
}

// GetOrRender returns the chart stored under key while it is fresh and
// renders it otherwise. Failed renders are not stored.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	if html, ok := c.fresh(key); ok {
		return html, nil
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		html, err := render()
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.sweep()
		c.charts[key] = renderedChart{html: html, at: c.now()}
		c.mu.Unlock()
		return html, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len reports the number of stored charts, fresh or not.
func (c *ChartCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

func (c *ChartCache) fresh(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chart, ok := c.charts[key]
	if !ok || c.now().Sub(chart.at) >= c.ttl {
		return "", false
	}
	return chart.html, true
}

// sweep drops expired charts. Callers hold mu.
func (c *ChartCache) sweep() {
	now := c.now()
	for key, chart := range c.charts {
		if now.Sub(chart.at) >= c.ttl {
			delete(c.charts, key)
		}
	}
}

// contentHash returns a deterministic key for v.
func contentHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
