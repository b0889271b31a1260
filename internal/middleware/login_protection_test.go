// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// testLoginProtectionConfig returns a config suitable for fast testing.
func testLoginProtectionConfig(maxAttempts int, lockoutDuration, attemptWindow time.Duration) LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockoutDuration,
		AttemptWindow:     attemptWindow,
	}
}

func TestNewLoginProtectionDefaultValues(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{}, nil)
	def := DefaultLoginProtectionConfig()

	if lp.maxFailedAttempts != def.MaxFailedAttempts {
		t.Errorf("maxFailedAttempts = %d, want %d", lp.maxFailedAttempts, def.MaxFailedAttempts)
	}
	if lp.lockoutDuration != def.LockoutDuration {
		t.Errorf("lockoutDuration = %v, want %v", lp.lockoutDuration, def.LockoutDuration)
	}
	if _, ok := lp.attempts.(*MemoryAttemptStore); !ok {
		t.Errorf("default store = %T, want *MemoryAttemptStore", lp.attempts)
	}
}

func TestLockoutFor(t *testing.T) {
	tests := []struct {
		previous int
		want     time.Duration
	}{
		{0, 15 * time.Minute},
		{1, 30 * time.Minute},
		{2, time.Hour},
		{10, MaxLockoutDuration},
	}
	for _, tt := range tests {
		if got := lockoutFor(15*time.Minute, tt.previous); got != tt.want {
			t.Errorf("lockoutFor(15m, %d) = %v, want %v", tt.previous, got, tt.want)
		}
	}
}

// exerciseLockout runs the shared lockout scenario against any store.
func exerciseLockout(t *testing.T, store AttemptStore) {
	t.Helper()
	ctx := context.Background()
	lp := NewLoginProtection(testLoginProtectionConfig(3, time.Minute, time.Hour), store)
	email := "Editor@Example.com"

	for i := 1; i <= 2; i++ {
		if locked, _ := lp.RecordFailedAttempt(ctx, email); locked {
			t.Fatalf("locked after %d failures, want 3", i)
		}
	}
	if got := lp.GetRemainingAttempts(ctx, email); got != 1 {
		t.Errorf("remaining = %d, want 1", got)
	}

	locked, d := lp.RecordFailedAttempt(ctx, "editor@example.com")
	if !locked || d != time.Minute {
		t.Fatalf("third failure: locked=%v d=%v, want true 1m", locked, d)
	}
	if locked, _ := lp.IsAccountLocked(ctx, email); !locked {
		t.Error("account should be locked")
	}

	lp.RecordSuccessfulLogin(ctx, email)
	if locked, _ := lp.IsAccountLocked(ctx, email); locked {
		t.Error("successful login should clear the lock")
	}
	if got := lp.GetRemainingAttempts(ctx, email); got != 3 {
		t.Errorf("remaining after reset = %d, want 3", got)
	}
}

func TestLoginProtection_Memory(t *testing.T) {
	exerciseLockout(t, NewMemoryAttemptStore())
}

func TestLoginProtection_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseLockout(t, NewRedisAttemptStore(client, "test:"))
}

func TestRedisAttemptStore_Backoff(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisAttemptStore(client, "test:")

	d, err := s.Lock(ctx, "a@example.com", time.Minute)
	if err != nil || d != time.Minute {
		t.Fatalf("first Lock = %v, %v", d, err)
	}
	mr.FastForward(2 * time.Minute)

	remaining, err := s.LockedFor(ctx, "a@example.com")
	if err != nil || remaining != 0 {
		t.Fatalf("LockedFor after expiry = %v, %v", remaining, err)
	}

	d, err = s.Lock(ctx, "a@example.com", time.Minute)
	if err != nil || d != 2*time.Minute {
		t.Errorf("second Lock = %v, %v, want 2m", d, err)
	}

	if _, err := s.AddFailure(ctx, "b@example.com", time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if n, _ := s.Failures(ctx, "b@example.com", time.Minute); n != 0 {
		t.Errorf("failures after window = %d, want 0", n)
	}
}

func TestMemoryAttemptStore_WindowAndSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAttemptStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for range 2 {
		if _, err := s.AddFailure(ctx, "k", time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	now = now.Add(2 * time.Minute)
	if n, _ := s.AddFailure(ctx, "k", time.Minute); n != 1 {
		t.Errorf("count after window = %d, want 1", n)
	}

	now = now.Add(2 * time.Minute)
	removed, err := s.Sweep(ctx, time.Minute)
	if err != nil || removed != 1 {
		t.Errorf("Sweep = %d, %v, want 1", removed, err)
	}
}

func TestLoginProtectionMiddleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 2}, nil)
	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(method string) int {
		req := httptest.NewRequest(method, "/admin/login", nil)
		req.RemoteAddr = "198.51.100.4:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := range 2 {
		if code := do(http.MethodPost); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", code)
	}
	if code := do(http.MethodGet); code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", code)
	}
}
