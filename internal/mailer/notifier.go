// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mailer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/newsdesk/internal/model"
)

// SubscriberSource lists the addresses that receive broadcasts.
// *store.Queries satisfies it.
type SubscriberSource interface {
	ListActiveSubscriberEmails(ctx context.Context) ([]string, error)
}

// NotifierConfig holds notifier configuration.
type NotifierConfig struct {
	Workers     int           // queue consumers
	QueueSize   int           // buffered jobs before new ones are dropped
	ChunkSize   int           // recipients per broadcast chunk
	ChunkPause  time.Duration // pause between chunks
	Concurrency int           // parallel sends within a chunk
}

// DefaultNotifierConfig returns the default notifier configuration.
func DefaultNotifierConfig() NotifierConfig {
	return NotifierConfig{
		Workers:     2,
		QueueSize:   100,
		ChunkSize:   50,
		ChunkPause:  time.Second,
		Concurrency: 10,
	}
}

const (
	jobWelcome   = "welcome"
	jobPublished = "article_published"
)

type job struct {
	id      string
	kind    string
	email   string
	article model.Article
}

// Notifier queues notification jobs and delivers them from background
// workers. Delivery failures are logged and never retried.
type Notifier struct {
	mailer      Mailer
	templates   *Templates
	subscribers SubscriberSource
	logger      *slog.Logger
	cfg         NotifierConfig

	queue   chan job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// NewNotifier creates a Notifier. Call Start before enqueueing work.
func NewNotifier(m Mailer, t *Templates, subs SubscriberSource, logger *slog.Logger, cfg NotifierConfig) *Notifier {
	def := DefaultNotifierConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		mailer:      m,
		templates:   t,
		subscribers: subs,
		logger:      logger,
		cfg:         cfg,
		queue:       make(chan job, cfg.QueueSize),
	}
}

// Start launches the worker goroutines. Delivery keeps ctx's values but
// not its cancellation: in-flight work is only cut short by Stop.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running || n.cancel != nil {
		return
	}
	n.running = true

	var workCtx context.Context
	workCtx, n.cancel = context.WithCancel(context.WithoutCancel(ctx))

	n.logger.Info("starting notifier", "workers", n.cfg.Workers)
	for i := 0; i < n.cfg.Workers; i++ {
		n.wg.Add(1)
		go n.worker(workCtx, i)
	}
}

// Stop stops accepting jobs and waits for queued work to drain. If ctx
// expires first, pending deliveries are cancelled and ctx's error is
// returned once the workers have exited.
func (n *Notifier) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	close(n.queue)
	cancel := n.cancel
	n.mu.Unlock()
	defer cancel()

	n.logger.Info("stopping notifier", "queued", len(n.queue))
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		n.logger.Info("notifier stopped")
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		n.logger.Warn("notifier stop timed out, pending notifications cancelled", "error", ctx.Err())
		return ctx.Err()
	}
}

// Welcome queues a welcome email for a new subscriber.
func (n *Notifier) Welcome(email string) {
	n.enqueue(job{kind: jobWelcome, email: email})
}

// ArticlePublished queues a broadcast of a to every active subscriber.
func (n *Notifier) ArticlePublished(a model.Article) {
	n.enqueue(job{kind: jobPublished, article: a})
}

func (n *Notifier) enqueue(j job) {
	j.id = uuid.NewString()

	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.running {
		n.logger.Warn("notifier not running, dropping job", "job_id", j.id, "kind", j.kind)
		return
	}

	select {
	case n.queue <- j:
		n.logger.Debug("notification queued", "job_id", j.id, "kind", j.kind)
	default:
		n.logger.Warn("notification queue full, dropping job", "job_id", j.id, "kind", j.kind)
	}
}

func (n *Notifier) worker(ctx context.Context, id int) {
	defer n.wg.Done()
	for j := range n.queue {
		n.logger.Debug("notifier worker processing job", "worker_id", id, "job_id", j.id, "kind", j.kind)
		switch j.kind {
		case jobWelcome:
			n.sendWelcome(ctx, j)
		case jobPublished:
			n.broadcast(ctx, j)
		}
	}
}

func (n *Notifier) sendWelcome(ctx context.Context, j job) {
	msg, err := n.templates.Welcome(j.email)
	if err != nil {
		n.logger.Error("rendering welcome email", "job_id", j.id, "error", err)
		return
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.logger.Error("welcome email failed", "job_id", j.id, "to", j.email, "error", err)
		return
	}
	n.logger.Info("welcome email sent", "job_id", j.id, "to", j.email)
}

func (n *Notifier) broadcast(ctx context.Context, j job) {
	emails, err := n.subscribers.ListActiveSubscriberEmails(ctx)
	if err != nil {
		n.logger.Error("listing subscribers for broadcast", "job_id", j.id, "error", err)
		return
	}
	if len(emails) == 0 {
		n.logger.Debug("no active subscribers", "job_id", j.id)
		return
	}

	var sent, failed atomic.Int64
	chunks := chunk(emails, n.cfg.ChunkSize)
	for i, batch := range chunks {
		if i > 0 && n.cfg.ChunkPause > 0 {
			select {
			case <-ctx.Done():
				n.logger.Warn("broadcast interrupted", "job_id", j.id, "remaining_chunks", len(chunks)-i)
				return
			case <-time.After(n.cfg.ChunkPause):
			}
		}

		var g errgroup.Group
		g.SetLimit(n.cfg.Concurrency)
		for _, email := range batch {
			g.Go(func() error {
				msg, err := n.templates.ArticlePublished(email, j.article)
				if err == nil {
					err = n.mailer.Send(ctx, msg)
				}
				if err != nil {
					failed.Add(1)
					n.logger.Warn("article notification failed", "job_id", j.id, "to", email, "error", err)
					return nil
				}
				sent.Add(1)
				return nil
			})
		}
		_ = g.Wait()
	}

	n.logger.Info("article notification broadcast finished",
		"job_id", j.id,
		"article_id", j.article.ID,
		"sent", sent.Load(),
		"failed", failed.Load(),
		"chunks", len(chunks))
}

// chunk splits s into consecutive slices of at most size elements.
func chunk[T any](s []T, size int) [][]T {
	var out [][]T
	for size < len(s) {
		s, out = s[size:], append(out, s[:size:size])
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}
