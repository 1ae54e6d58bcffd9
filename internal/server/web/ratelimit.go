package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Rate limit windows. Auth endpoints share one budget per client IP; the
// forgot-password endpoint gets a tighter one because each hit can send
// an email.
const (
	authRateLimit   = 5
	authRateWindow  = 15 * time.Minute
	resetRateLimit  = 3
	resetRateWindow = time.Hour
)

type window struct {
	start time.Time
	count int
}

// fixedWindowStore is a per-identifier fixed-window counter implementing
// echo's middleware.RateLimiterStore.
type fixedWindowStore struct {
	mu        sync.Mutex
	limit     int
	interval  time.Duration
	windows   map[string]*window
	now       func() time.Time
	lastSweep time.Time
}

func newFixedWindowStore(limit int, interval time.Duration) *fixedWindowStore {
	return &fixedWindowStore{
		limit:    limit,
		interval: interval,
		windows:  map[string]*window{},
		now:      time.Now,
	}
}

func (s *fixedWindowStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	w := s.windows[identifier]
	if w == nil || now.Sub(w.start) >= s.interval {
		w = &window{start: now}
		s.windows[identifier] = w
	}
	w.count++
	return w.count <= s.limit, nil
}

// sweep drops expired windows at most once per interval, keeping the map
// bounded by the identifiers seen in the last two intervals. Caller holds
// the lock.
func (s *fixedWindowStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.interval {
		return
	}
	for id, w := range s.windows {
		if now.Sub(w.start) >= s.interval {
			delete(s.windows, id)
		}
	}
	s.lastSweep = now
}

// rateLimiter builds the echo middleware around a fixed-window store with
// a JSON deny response.
func rateLimiter(store *fixedWindowStore, message string) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, messageResponse{Message: "Request rejected"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, messageResponse{Message: message})
		},
	})
}
