package main

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// authAttemptTracker counts failed API key attempts per client IP and locks
// out clients that exceed MaxFailedAuthAttempts within AuthAttemptWindow
type authAttemptTracker struct {
	mu        sync.Mutex
	attempts  map[string]*authAttempt
	now       func() time.Time
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

type authAttempt struct {
	failedCount int
	firstFailed time.Time
	lockedUntil time.Time
}

func newAuthAttemptTracker() *authAttemptTracker {
	return &authAttemptTracker{
		attempts: make(map[string]*authAttempt),
		now:      time.Now,
	}
}

// lockout returns how long ip remains blocked, zero when it is not
func (at *authAttemptTracker) lockout(ip string) time.Duration {
	at.mu.Lock()
	defer at.mu.Unlock()
	a, ok := at.attempts[ip]
	if !ok {
		return 0
	}
	return max(a.lockedUntil.Sub(at.now()), 0)
}

func (at *authAttemptTracker) recordFailure(ip string) {
	at.mu.Lock()
	defer at.mu.Unlock()

	now := at.now()
	a, ok := at.attempts[ip]
	if !ok || now.Sub(a.firstFailed) > AuthAttemptWindow {
		at.attempts[ip] = &authAttempt{failedCount: 1, firstFailed: now}
		return
	}
	a.failedCount++
	if a.failedCount >= MaxFailedAuthAttempts {
		a.lockedUntil = now.Add(AuthLockoutDuration)
	}
}

func (at *authAttemptTracker) recordSuccess(ip string) {
	at.mu.Lock()
	defer at.mu.Unlock()
	delete(at.attempts, ip)
}

// StartCleanup periodically forgets clients whose window and lockout passed
func (at *authAttemptTracker) StartCleanup() {
	at.startOnce.Do(func() {
		at.stopCh = make(chan struct{})
		go func() {
			ticker := time.NewTicker(AuthAttemptWindow)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					at.cleanup()
				case <-at.stopCh:
					return
				}
			}
		}()
	})
}

// StopCleanup stops the cleanup goroutine
func (at *authAttemptTracker) StopCleanup() {
	at.stopOnce.Do(func() {
		if at.stopCh != nil {
			close(at.stopCh)
		}
	})
}

func (at *authAttemptTracker) cleanup() {
	at.mu.Lock()
	defer at.mu.Unlock()
	now := at.now()
	for ip, a := range at.attempts {
		if now.After(a.lockedUntil) && now.Sub(a.firstFailed) > AuthAttemptWindow {
			delete(at.attempts, ip)
		}
	}
}

// AuditLog logs security-relevant events for the audit trail
func AuditLog(eventType, clientIP, details string) {
	logger.Info("AUDIT",
		zap.String("event", eventType),
		zap.String("client_ip", clientIP),
		zap.String("details", details),
	)
}

// rateLimiter grants each client IP a fixed number of requests per window
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	rate      int
	window    time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

type tokenBucket struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// Allow consumes one token for ip and reports whether the request may pass.
// Unknown IPs are refused while the table holds MaxRateLimiterEntries.
func (rl *rateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[ip]
	switch {
	case !ok:
		if len(rl.buckets) >= MaxRateLimiterEntries {
			logger.Warn("Rate limiter at max capacity, rejecting new IP",
				zap.String("ip", ip),
				zap.Int("current_entries", len(rl.buckets)))
			return false
		}
		rl.buckets[ip] = &tokenBucket{tokens: rl.rate - 1, lastReset: now}
		return true
	case now.Sub(b.lastReset) >= rl.window:
		b.tokens = rl.rate - 1
		b.lastReset = now
		return true
	case b.tokens > 0:
		b.tokens--
		return true
	}
	return false
}

// StartCleanup drops idle buckets every two windows until StopCleanup
func (rl *rateLimiter) StartCleanup() {
	rl.startOnce.Do(func() {
		rl.stopCh = make(chan struct{})
		go func() {
			ticker := time.NewTicker(rl.window * 2)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					rl.cleanup()
				case <-rl.stopCh:
					return
				}
			}
		}()
	})
}

// StopCleanup stops the cleanup goroutine
func (rl *rateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() {
		if rl.stopCh != nil {
			close(rl.stopCh)
		}
	})
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, b := range rl.buckets {
		if now.Sub(b.lastReset) >= rl.window*2 {
			delete(rl.buckets, ip)
		}
	}
}

// apiKeyAuthMiddleware returns a middleware that checks the X-API-Key header
// against authKey with a constant-time comparison. Clients that fail too
// often are locked out by tracker.
func apiKeyAuthMiddleware(authKey string, tracker *authAttemptTracker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := GetClientIP(r)

			if remaining := tracker.lockout(clientIP); remaining > 0 {
				AuditLog(AuditEventAuthBlocked, clientIP, "IP temporarily blocked due to too many failed attempts")
				w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())))
				sendError(w, http.StatusTooManyRequests, StatusTooMany, ErrAuthLocked)
				return
			}

			apiKey := r.Header.Get(HeaderXAPIKey)
			if apiKey == "" {
				tracker.recordFailure(clientIP)
				AuditLog(AuditEventAuthFailure, clientIP, "Missing API key")
				sendError(w, http.StatusUnauthorized, StatusUnauthorized, ErrMissingAPIKey)
				return
			}

			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(authKey)) != 1 {
				tracker.recordFailure(clientIP)
				AuditLog(AuditEventAuthFailure, clientIP, "Invalid API key")
				sendError(w, http.StatusUnauthorized, StatusUnauthorized, ErrInvalidAPIKey)
				return
			}

			tracker.recordSuccess(clientIP)
			AuditLog(AuditEventAuthSuccess, clientIP, "Authentication successful")
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware creates a middleware that limits requests per client IP
func rateLimitMiddleware(rl *rateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(GetClientIP(r)) {
				sendError(w, http.StatusTooManyRequests, StatusTooMany, ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var securityHeaders = map[string]string{
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Referrer-Policy":           "no-referrer",
	"Permissions-Policy":        "geolocation=(), microphone=(), camera=()",
}

// swaggerCSP relaxes the policy for the inline assets of Swagger UI
const (
	swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
	apiCSP     = "default-src 'none'; frame-ancestors 'none'"
)

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		if strings.HasPrefix(r.URL.Path, "/swagger") {
			h.Set("Content-Security-Policy", swaggerCSP)
		} else {
			h.Set("Cache-Control", "no-store")
			h.Set("Content-Security-Policy", apiCSP)
		}
		next.ServeHTTP(w, r)
	})
}
