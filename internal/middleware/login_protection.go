// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MaxLockoutDuration caps the exponential lockout backoff.
const MaxLockoutDuration = 24 * time.Hour

// AttemptStore keeps failed-login state per account key. The memory store
// serves a single process; the Redis store lets several share lockouts.
type AttemptStore interface {
	// LockedFor returns how long key stays locked, or 0.
	LockedFor(ctx context.Context, key string) (time.Duration, error)
	// AddFailure records a failure and returns the count inside the current
	// window. A window older than window starts over at 1.
	AddFailure(ctx context.Context, key string, window time.Duration) (int, error)
	// Failures returns the count inside the current window.
	Failures(ctx context.Context, key string, window time.Duration) (int, error)
	// Lock locks key for base doubled once per previous lockout, capped at
	// MaxLockoutDuration, and resets the failure count.
	Lock(ctx context.Context, key string, base time.Duration) (time.Duration, error)
	// Clear forgets everything about key.
	Clear(ctx context.Context, key string) error
	// Sweep drops expired entries and returns how many were removed.
	Sweep(ctx context.Context, window time.Duration) (int, error)
}

// LoginProtection provides combined IP rate limiting and account lockout protection.
type LoginProtection struct {
	ipLimiters *limiterCache[string]
	attempts   AttemptStore

	maxFailedAttempts int           // Lock account after this many failures
	lockoutDuration   time.Duration // Base lockout duration (doubles with each lockout)
	attemptWindow     time.Duration // Window to count failed attempts
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// MaxFailedAttempts before account lockout (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is base lockout time, doubles with each lockout (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a login protection instance. A nil store uses
// process memory.
func NewLoginProtection(cfg LoginProtectionConfig, attempts AttemptStore) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}
	if attempts == nil {
		attempts = NewMemoryAttemptStore()
	}

	return &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		attempts:          attempts,
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
	}
}

func attemptKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckIPRateLimit reports whether a login attempt from ip is allowed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked reports whether email is locked and for how long.
// Store failures are logged and treated as unlocked.
func (lp *LoginProtection) IsAccountLocked(ctx context.Context, email string) (bool, time.Duration) {
	remaining, err := lp.attempts.LockedFor(ctx, attemptKey(email))
	if err != nil {
		slog.Warn("login protection lookup failed", "error", err)
		return false, 0
	}
	return remaining > 0, remaining
}

// RecordFailedAttempt records a failed login for email.
// Returns (locked, lockDuration) if the account is now locked.
func (lp *LoginProtection) RecordFailedAttempt(ctx context.Context, email string) (bool, time.Duration) {
	key := attemptKey(email)
	count, err := lp.attempts.AddFailure(ctx, key, lp.attemptWindow)
	if err != nil {
		slog.Warn("login protection update failed", "error", err)
		return false, 0
	}
	slog.Debug("login attempt recorded", "email", key, "count", count)

	if count < lp.maxFailedAttempts {
		return false, 0
	}

	d, err := lp.attempts.Lock(ctx, key, lp.lockoutDuration)
	if err != nil {
		slog.Warn("login protection lock failed", "error", err)
		return false, 0
	}
	slog.Warn("account locked due to failed attempts", "email", key, "duration", d)
	return true, d
}

// RecordSuccessfulLogin clears failed attempt tracking for email.
func (lp *LoginProtection) RecordSuccessfulLogin(ctx context.Context, email string) {
	if err := lp.attempts.Clear(ctx, attemptKey(email)); err != nil {
		slog.Warn("login protection reset failed", "error", err)
	}
}

// GetRemainingAttempts returns the number of failures left before lockout.
func (lp *LoginProtection) GetRemainingAttempts(ctx context.Context, email string) int {
	count, err := lp.attempts.Failures(ctx, attemptKey(email), lp.attemptWindow)
	if err != nil {
		return lp.maxFailedAttempts
	}
	return max(lp.maxFailedAttempts-count, 0)
}

// Cleanup drops stale limiter and attempt state. The scheduler runs it
// periodically.
func (lp *LoginProtection) Cleanup(ctx context.Context) {
	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared IP rate limiters due to size")
	}
	n, err := lp.attempts.Sweep(ctx, lp.attemptWindow)
	if err != nil {
		slog.Warn("login protection sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("login protection entries removed", "count", n)
	}
}

// Middleware rate limits POST requests per client IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", "ip", ip, "path", r.URL.Path)
				writeError(w, r, http.StatusTooManyRequests, "Too many attempts. Please wait and try again.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()
	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// lockoutFor doubles base once per previous lockout, capped.
func lockoutFor(base time.Duration, previous int) time.Duration {
	d := base
	for range previous {
		d *= 2
		if d >= MaxLockoutDuration {
			return MaxLockoutDuration
		}
	}
	return d
}
