// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package a2a

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientKey is the gin context key holding the authenticated API key.
const clientKey = "a2a.client"

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// requireAPIKey accepts "Authorization: Bearer <key>" or "X-API-Key: <key>"
// matching one of keys. With no keys every request passes.
func requireAPIKey(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}
		presented := credential(c.Request)
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key: send Authorization: Bearer <key> or X-API-Key"})
			return
		}
		if !validKey(presented, keys) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
			return
		}
		c.Set(clientKey, presented)
		c.Next()
	}
}

func credential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// validKey compares against every key so the time taken does not reveal
// which one matched.
func validKey(presented string, keys []string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(presented), []byte(k))
	}
	return match == 1
}

// Idle clients are forgotten after clientIdleTTL, checked at most once per
// sweepInterval. Both buckets are full again after an hour without
// requests, so dropping such a client loses no state.
const (
	clientIdleTTL = time.Hour
	sweepInterval = 10 * time.Minute
)

// rateLimiter keeps a per-minute and a per-hour token bucket for each
// client. A zero limit disables that window.
type rateLimiter struct {
	perMinute int
	perHour   int

	mu        sync.Mutex
	clients   map[string]*clientLimits
	lastSweep time.Time
}

type clientLimits struct {
	minute   *rate.Limiter
	hour     *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perMinute, perHour int) *rateLimiter {
	return &rateLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		clients:   make(map[string]*clientLimits),
	}
}

func (rl *rateLimiter) limitsFor(client string, now time.Time) *clientLimits {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweep(now)
	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimits{}
		if rl.perMinute > 0 {
			cl.minute = rate.NewLimiter(rate.Limit(float64(rl.perMinute)/time.Minute.Seconds()), rl.perMinute)
		}
		if rl.perHour > 0 {
			cl.hour = rate.NewLimiter(rate.Limit(float64(rl.perHour)/time.Hour.Seconds()), rl.perHour)
		}
		rl.clients[client] = cl
	}
	if now.After(cl.lastSeen) {
		cl.lastSeen = now
	}
	return cl
}

// sweep drops clients idle for clientIdleTTL. Callers hold rl.mu.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < sweepInterval {
		return
	}
	rl.lastSweep = now
	for client, cl := range rl.clients {
		if now.Sub(cl.lastSeen) >= clientIdleTTL {
			delete(rl.clients, client)
		}
	}
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// allow takes one token from each of the client's windows. When any
// window is empty no token is taken and the wait until the request would
// be admitted is returned.
func (rl *rateLimiter) allow(client string, now time.Time) (bool, time.Duration) {
	cl := rl.limitsFor(client, now)
	var taken []*rate.Reservation
	for _, l := range []*rate.Limiter{cl.minute, cl.hour} {
		if l == nil {
			continue
		}
		r := l.ReserveN(now, 1)
		if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
			r.CancelAt(now)
			for _, t := range taken {
				t.CancelAt(now)
			}
			return false, delay
		}
		taken = append(taken, r)
	}
	return true, 0
}

// limit rejects clients over their budget with 429 and Retry-After. The
// client is the authenticated API key, or the remote IP when auth is off.
func limit(rl *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.GetString(clientKey)
		if client == "" {
			client = "ip:" + c.ClientIP()
		}
		ok, wait := rl.allow(client, time.Now())
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}
