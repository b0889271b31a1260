// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func (m *fakeMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) recipients() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.sent))
	for _, msg := range m.sent {
		out[msg.To]++
	}
	return out
}

type staticSubscribers []string

func (s staticSubscribers) ListActiveSubscriberEmails(context.Context) ([]string, error) {
	return s, nil
}

func testArticle() model.Article {
	return model.Article{ID: 7, Title: "Rates <up>", Slug: "rates-up", Excerpt: "Short summary"}
}

func newTestNotifier(t *testing.T, m Mailer, subs SubscriberSource, cfg NotifierConfig) *Notifier {
	t.Helper()
	tmpl, err := NewTemplates(Site{Name: "Newsdesk", URL: "https://news.example.com"})
	if err != nil {
		t.Fatalf("NewTemplates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotifier(m, tmpl, subs, logger, cfg)
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 50, nil},
		{1, 50, []int{1}},
		{50, 50, []int{50}},
		{51, 50, []int{50, 1}},
		{120, 50, []int{50, 50, 20}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.n, tt.size), func(t *testing.T) {
			got := chunk(make([]int, tt.n), tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(got), len(tt.want))
			}
			for i, c := range got {
				if len(c) != tt.want[i] {
					t.Errorf("chunk %d has %d items, want %d", i, len(c), tt.want[i])
				}
			}
		})
	}
}

func TestNotifier_Welcome(t *testing.T) {
	m := &fakeMailer{}
	n := newTestNotifier(t, m, staticSubscribers(nil), NotifierConfig{})
	n.Start(context.Background())

	n.Welcome("new@example.com")
	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := m.recipients()["new@example.com"]; got != 1 {
		t.Errorf("welcome sent %d times, want 1", got)
	}
}

func TestNotifier_BroadcastReachesEverySubscriber(t *testing.T) {
	subs := make(staticSubscribers, 120)
	for i := range subs {
		subs[i] = fmt.Sprintf("reader%d@example.com", i)
	}
	m := &fakeMailer{fail: map[string]bool{"reader3@example.com": true}}
	n := newTestNotifier(t, m, subs, NotifierConfig{ChunkSize: 50, ChunkPause: 1, Concurrency: 4})
	n.Start(context.Background())

	n.ArticlePublished(testArticle())
	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got := m.recipients()
	if len(got) != 119 {
		t.Fatalf("delivered to %d subscribers, want 119", len(got))
	}
	for addr, count := range got {
		if count != 1 {
			t.Errorf("%s received %d messages, want 1 (no retries)", addr, count)
		}
	}
	if _, ok := got["reader3@example.com"]; ok {
		t.Error("failed recipient should not be retried")
	}
}

func TestNotifier_DropsWhenNotRunning(t *testing.T) {
	m := &fakeMailer{}
	n := newTestNotifier(t, m, staticSubscribers(nil), NotifierConfig{})

	n.Welcome("early@example.com")
	n.Start(context.Background())
	_ = n.Stop(context.Background())
	n.Welcome("late@example.com")

	if got := m.recipients(); len(got) != 0 {
		t.Errorf("sent %v, want nothing", got)
	}
}

func TestNotifier_DropsWhenQueueFull(t *testing.T) {
	m := &fakeMailer{}
	n := newTestNotifier(t, m, staticSubscribers(nil), NotifierConfig{QueueSize: 2})

	// Mark running without workers so the queue cannot drain.
	n.running = true
	for i := 0; i < 5; i++ {
		n.Welcome(fmt.Sprintf("r%d@example.com", i))
	}
	if got := len(n.queue); got != 2 {
		t.Errorf("queue holds %d jobs, want 2", got)
	}
}

func TestNotifier_StopIsIdempotent(t *testing.T) {
	n := newTestNotifier(t, &fakeMailer{}, staticSubscribers(nil), NotifierConfig{})
	n.Start(context.Background())
	n.Start(context.Background())
	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	n.Start(context.Background())
	n.Welcome("after-stop@example.com")
}

func TestNotifier_StopDrainsAfterStartContextCancelled(t *testing.T) {
	m := &fakeMailer{}
	n := newTestNotifier(t, m, staticSubscribers(nil), NotifierConfig{Workers: 1, QueueSize: 20})

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	for i := 0; i < 10; i++ {
		n.Welcome(fmt.Sprintf("reader%d@example.com", i))
	}
	cancel()

	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := len(m.recipients()); got != 10 {
		t.Errorf("delivered %d welcomes, want 10", got)
	}
}

// blockingMailer holds every send until its context is cancelled.
type blockingMailer struct {
	started chan struct{}
	once    sync.Once
}

func (m *blockingMailer) Send(ctx context.Context, _ Message) error {
	m.once.Do(func() { close(m.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestNotifier_StopCancelsPendingAfterTimeout(t *testing.T) {
	m := &blockingMailer{started: make(chan struct{})}
	n := newTestNotifier(t, m, staticSubscribers(nil), NotifierConfig{Workers: 1})
	n.Start(context.Background())
	n.Welcome("stuck@example.com")
	n.Welcome("queued@example.com")
	<-m.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := n.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() error = %v, want deadline exceeded", err)
	}
}
