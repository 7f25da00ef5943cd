package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// requestRecord tracks the number of requests and the window start time
type requestRecord struct {
	count       int
	windowStart time.Time
}

// Throttle is a fixed-window limiter keyed by caller. Authenticated callers
// are keyed by user id, anonymous ones by client IP.
type Throttle struct {
	mu      sync.Mutex
	records map[string]*requestRecord
	limit   int
	window  time.Duration
	clock   func() time.Time
}

// NewThrottle allows limit requests per window for each caller.
func NewThrottle(limit int, window time.Duration) *Throttle {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Throttle{
		records: make(map[string]*requestRecord),
		limit:   limit,
		window:  window,
		clock:   time.Now,
	}
}

// Allow checks if the caller can make a request and counts it.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	record, ok := t.records[key]
	if !ok || now.Sub(record.windowStart) >= t.window {
		t.records[key] = &requestRecord{count: 1, windowStart: now}
		return true
	}
	if record.count >= t.limit {
		return false
	}
	record.count++
	return true
}

// Run drops expired windows every interval until ctx is done.
func (t *Throttle) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

func (t *Throttle) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.clock().Add(-t.window)
	for key, record := range t.records {
		if record.windowStart.Before(cutoff) {
			delete(t.records, key)
		}
	}
}

// Handler rejects callers over the limit with 429 and Retry-After.
func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if user, ok := CurrentUser(c); ok {
			key = "user:" + strconv.FormatUint(user.UserID, 10)
		}

		if !t.Allow(key) {
			c.Header("Retry-After", formatRetryAfter(t.window))
			abort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// formatRetryAfter formats the period as seconds for Retry-After header
func formatRetryAfter(period time.Duration) string {
	seconds := int(period.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
