package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const userAgent = "reviewgate/1.0 (academic reference checker)"

// rateLimiter enforces a minimum interval between requests per service.
// It is per-pipeline, not process-global.
type rateLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	sleep    func(time.Duration)
}

var minIntervals = map[string]time.Duration{
	"semantic_scholar": 100 * time.Millisecond,
	"crossref":         time.Second,
	"arxiv":            3 * time.Second,
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		lastCall: make(map[string]time.Time),
		sleep:    time.Sleep,
	}
}

// wait blocks until the service's minimum interval has elapsed.
func (r *rateLimiter) wait(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	min, ok := minIntervals[service]
	if !ok {
		min = time.Second
	}
	if elapsed := time.Since(r.lastCall[service]); elapsed < min {
		r.sleep(min - elapsed)
	}
	r.lastCall[service] = time.Now()
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

// fetchURL GETs a URL with the tool's user agent. Non-2xx statuses are
// errors so callers treat them as soft misses.
func fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
