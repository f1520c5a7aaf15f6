// Package ratelimit limits mutating dashboard requests per client.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	applog "finboard/internal/log"
)

// Config sets the bucket shape. Zero fields take DefaultConfig values.
type Config struct {
	// RequestsPerMinute is the refill rate.
	RequestsPerMinute int
	// Burst is the bucket size: how many requests a rested client may send
	// at once.
	Burst int
	// IdleTimeout forgets clients that sent nothing for this long.
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig allows a burst of 60 refilled at 60 a minute.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		Burst:             60,
		IdleTimeout:       10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps a token bucket per client.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time

	every rate.Limit
	burst int
	idle  time.Duration

	denied   atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter and starts its cleanup loop. Call Stop to
// end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		clients: make(map[string]*client),
		now:     time.Now,
		every:   rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		burst:   cfg.Burst,
		idle:    cfg.IdleTimeout,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop(cfg.CleanupInterval)
	return l
}

// bucket returns the limiter of id, creating a full one for a new client.
// Callers hold mu.
func (l *Limiter) bucket(id string, now time.Time) *rate.Limiter {
	c, ok := l.clients[id]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[id] = c
	}
	c.seen = now
	return c.lim
}

// Allow spends one token of id's bucket and reports whether there was
// one to spend.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.bucket(id, now).AllowN(now, 1) {
		return true
	}
	l.denied.Add(1)
	return false
}

// RetryAfter is how long id must wait for its next token.
func (l *Limiter) RetryAfter(id string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	r := l.bucket(id, now).ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return wait
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep forgets idle clients and returns how many it dropped.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	removed := 0
	for id, c := range l.clients {
		if c.seen.Before(cutoff) {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Metrics is a snapshot of the limiter counters.
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.denied.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware limits requests whose method is in methods; with no methods
// every request is limited. onLimit may be nil.
func (l *Limiter) Middleware(clientOf func(*http.Request) string, onLimit http.HandlerFunc, methods ...string) func(http.Handler) http.Handler {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(limited) > 0 && !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			id := clientOf(r)
			if l.Allow(id) {
				next.ServeHTTP(w, r)
				return
			}

			wait := l.RetryAfter(id)
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, id,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				"retry_after", wait.String())
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Round(time.Millisecond).Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
