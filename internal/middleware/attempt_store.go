// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// loginAttempt tracks failed login attempts for an account.
type loginAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// MemoryAttemptStore keeps attempt state in process memory.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]*loginAttempt
	now     func() time.Time
}

// NewMemoryAttemptStore creates an empty in-memory store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{entries: make(map[string]*loginAttempt), now: time.Now}
}

func (s *MemoryAttemptStore) LockedFor(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	return max(a.lockedUntil.Sub(s.now()), 0), nil
}

func (s *MemoryAttemptStore) AddFailure(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	a, ok := s.entries[key]
	if !ok {
		a = &loginAttempt{}
		s.entries[key] = a
	}
	if a.count == 0 || now.Sub(a.firstFailed) > window {
		a.count = 1
		a.firstFailed = now
		return 1, nil
	}
	a.count++
	return a.count, nil
}

func (s *MemoryAttemptStore) Failures(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[key]
	if !ok || s.now().Sub(a.firstFailed) > window {
		return 0, nil
	}
	return a.count, nil
}

func (s *MemoryAttemptStore) Lock(_ context.Context, key string, base time.Duration) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[key]
	if !ok {
		a = &loginAttempt{}
		s.entries[key] = a
	}
	d := lockoutFor(base, a.lockouts)
	a.lockedUntil = s.now().Add(d)
	a.lockouts++
	a.count = 0
	return d, nil
}

func (s *MemoryAttemptStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep removes entries whose lockout has expired and whose last window
// has passed.
func (s *MemoryAttemptStore) Sweep(_ context.Context, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, a := range s.entries {
		if now.After(a.lockedUntil) && now.Sub(a.firstFailed) > window {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// lockoutMemory is how long Redis remembers past lockouts for backoff.
const lockoutMemory = 24 * time.Hour

// RedisAttemptStore keeps attempt state in Redis so every server instance
// sees the same lockouts. Expiry is left to key TTLs.
type RedisAttemptStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAttemptStore creates a store using client. Keys are namespaced
// under prefix.
func NewRedisAttemptStore(client *redis.Client, prefix string) *RedisAttemptStore {
	if prefix == "" {
		prefix = "newsdesk:login:"
	}
	return &RedisAttemptStore{client: client, prefix: prefix}
}

// NewRedisClient parses url and verifies the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (s *RedisAttemptStore) failKey(key string) string     { return s.prefix + "fail:" + key }
func (s *RedisAttemptStore) lockKey(key string) string     { return s.prefix + "lock:" + key }
func (s *RedisAttemptStore) lockoutsKey(key string) string { return s.prefix + "lockouts:" + key }

func (s *RedisAttemptStore) LockedFor(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, s.lockKey(key)).Result()
	if err != nil {
		return 0, err
	}
	// Missing keys report negative TTLs.
	return max(ttl, 0), nil
}

func (s *RedisAttemptStore) AddFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	k := s.failKey(key)
	n, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

func (s *RedisAttemptStore) Failures(ctx context.Context, key string, _ time.Duration) (int, error) {
	v, err := s.client.Get(ctx, s.failKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (s *RedisAttemptStore) Lock(ctx context.Context, key string, base time.Duration) (time.Duration, error) {
	lk := s.lockoutsKey(key)
	n, err := s.client.Incr(ctx, lk).Result()
	if err != nil {
		return 0, err
	}
	d := lockoutFor(base, int(n-1))

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.PExpire(ctx, lk, lockoutMemory)
		p.Set(ctx, s.lockKey(key), "1", d)
		p.Del(ctx, s.failKey(key))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return d, nil
}

func (s *RedisAttemptStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.failKey(key), s.lockKey(key), s.lockoutsKey(key)).Err()
}

// Sweep is a no-op: every key carries a TTL.
func (s *RedisAttemptStore) Sweep(context.Context, time.Duration) (int, error) {
	return 0, nil
}
