package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimitBurst   = 3
	visitorIdleLimit = 5 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
	log       *zap.SugaredLogger
}

func newIPRateLimiter(perMinute int, log *zap.SugaredLogger) *ipRateLimiter {
	if perMinute <= 0 {
		perMinute = 6
	}
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    rateLimitBurst,
		now:      time.Now,
		log:      log,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > time.Minute {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorIdleLimit {
				delete(l.visitors, key)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Handler rejects requests beyond the per-IP budget with 429.
func (l *ipRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip) {
			l.log.Warnw("rate limit exceeded", "ip", ip, "path", c.FullPath())
			respondError(c, http.StatusTooManyRequests, "too many messages, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ContactRateLimit guards the public contact form.
func (a *API) ContactRateLimit() gin.HandlerFunc {
	return a.contact.Handler()
}
