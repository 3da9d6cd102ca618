package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// identityLimiter tracks a per-identity rate limiter and when it was last used.
type identityLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CheckInLimiter throttles requests per identity with a token bucket.
// It must run after RequireIdentity.
type CheckInLimiter struct {
	perMinute int
	mu        sync.Mutex
	limiters  map[int64]*identityLimiter
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewCheckInLimiter allows perMinute requests per identity with a burst of the same size.
// perMinute <= 0 disables limiting.
func NewCheckInLimiter(perMinute int) *CheckInLimiter {
	l := &CheckInLimiter{
		perMinute: perMinute,
		limiters:  make(map[int64]*identityLimiter),
		stop:      make(chan struct{}),
	}
	if perMinute > 0 {
		go l.cleanupLoop()
	}
	return l
}

func (l *CheckInLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			for id, il := range l.limiters {
				if time.Since(il.lastSeen) > 10*time.Minute {
					delete(l.limiters, id)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the background cleanup.
func (l *CheckInLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *CheckInLimiter) limiter(identityID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	il, ok := l.limiters[identityID]
	if !ok {
		il = &identityLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.limiters[identityID] = il
	}
	il.lastSeen = time.Now()
	return il.limiter
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (l *CheckInLimiter) Middleware(next http.Handler) http.Handler {
	if l.perMinute <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil {
			next.ServeHTTP(w, r)
			return
		}

		reservation := l.limiter(identity.ID).Reserve()
		if delay := reservation.Delay(); !reservation.OK() || delay > 0 {
			reservation.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			writeJSONError(w, http.StatusTooManyRequests, "too many check-in attempts, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}
