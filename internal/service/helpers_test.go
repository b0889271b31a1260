// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/testutil"
)

var testHashParams = auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func newQueries(t *testing.T) *store.Queries {
	t.Helper()
	return store.New(testutil.TestDB(t))
}

func newAccounts(q *store.Queries) *Accounts {
	return NewAccounts(q, auth.NewHasher(testHashParams))
}

// recordingNotifier records notifications instead of sending them.
type recordingNotifier struct {
	mu        sync.Mutex
	welcomes  []string
	published []int64
}

func (n *recordingNotifier) Welcome(email string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, email)
}

func (n *recordingNotifier) ArticlePublished(a model.Article) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, a.ID)
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *service.Error, got %T: %v", err, err)
	}
	if se.Kind != want {
		t.Fatalf("kind = %s, want %s (%v)", se.Kind, want, err)
	}
}
