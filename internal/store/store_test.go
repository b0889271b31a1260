// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/testutil"
)

func TestDSN(t *testing.T) {
	dsn := store.DSN("/tmp/x.db")
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/x.db?_pragma="))
	assert.Contains(t, dsn, "_pragma=foreign_keys(1)")
	assert.Contains(t, dsn, "_pragma=busy_timeout(5000)")

	withQuery := store.DSN("/tmp/x.db?mode=rwc")
	assert.Contains(t, withQuery, "mode=rwc&_pragma=")
}

func TestAccountEmailUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))

	_, err := q.CreateAccount(ctx, store.CreateAccountParams{
		Email: "dup@example.com", Name: "A", PasswordHash: "x", Role: model.RoleEditor,
	})
	require.NoError(t, err)

	_, err = q.CreateAccount(ctx, store.CreateAccountParams{
		Email: "DUP@example.com", Name: "B", PasswordHash: "x", Role: model.RoleEditor,
	})
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err), "got %v", err)

	a, err := q.GetAccountByEmail(ctx, "Dup@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "dup@example.com", a.Email)
}

func TestSingleMainAdmin(t *testing.T) {
	q := store.New(testutil.TestDB(t))
	testutil.CreateAccount(t, q, model.RoleAdmin, true, true)

	_, err := q.CreateAccount(context.Background(), store.CreateAccountParams{
		Email: "second@example.com", Name: "Second", PasswordHash: "x", Role: model.RoleAdmin, IsMainAdmin: true,
	})
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))
}

func TestMainAdminRowIsProtected(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	root := testutil.CreateAccount(t, q, model.RoleAdmin, true, true)

	n, err := q.DeactivateAccount(ctx, root.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = q.DeleteAccount(ctx, root.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := q.GetAccount(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestApproveAccount(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	root := testutil.CreateAccount(t, q, model.RoleAdmin, true, true)
	pending := testutil.CreateAccount(t, q, model.RoleEditor, false, false)

	count, err := q.CountAccounts(ctx, store.AccountFilterPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	at := time.Now().UTC().Truncate(time.Second)
	n, err := q.ApproveAccount(ctx, pending.ID, root.ID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := q.GetAccount(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, root.ID, got.ApprovedBy.Int64)
	assert.True(t, got.ApprovedAt.Time.Equal(at))

	count, err = q.CountAccounts(ctx, store.AccountFilterPending)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIncrementArticleViewsConcurrent(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	cat := testutil.CreateCategory(t, q, "")
	art := testutil.CreateArticle(t, q, author.ID, cat.ID, model.ArticleStatusPublished)

	const readers = 100
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := q.IncrementArticleViews(ctx, art.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("IncrementArticleViews: %v", err)
	}

	got, err := q.GetArticle(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(readers), got.Views)
}

func TestIncrementArticleViewsSkipsDrafts(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	cat := testutil.CreateCategory(t, q, "")
	draft := testutil.CreateArticle(t, q, author.ID, cat.ID, model.ArticleStatusDraft)

	_, err := q.IncrementArticleViews(ctx, draft.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestArticleTagsAndSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	cat := testutil.CreateCategory(t, q, "")

	published := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	created, err := q.CreateArticle(ctx, store.ArticleParams{
		Title:      "Translated report",
		Slug:       "translated-report",
		Content:    "<p>content here</p>",
		CategoryID: cat.ID,
		AuthorID:   author.ID,
		Status:     model.ArticleStatusDraft,
		Tags:       []string{"world", "economy"},
		Source: model.Source{
			Type:                model.SourceTranslated,
			Name:                "Wire Service",
			URL:                 "https://wire.example.com/a",
			OriginalPublishDate: sql.NullTime{Time: published, Valid: true},
		},
	})
	require.NoError(t, err)

	got, err := q.GetArticleBySlug(ctx, "translated-report")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []string{"world", "economy"}, got.Tags)
	assert.Equal(t, model.SourceTranslated, got.Source.Type)
	assert.Equal(t, "Wire Service", got.Source.Name)
	assert.True(t, got.Source.OriginalPublishDate.Time.Equal(published))
}

func TestArticleSlugUnique(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	cat := testutil.CreateCategory(t, q, "")
	first := testutil.CreateArticle(t, q, author.ID, cat.ID, model.ArticleStatusDraft)

	_, err := q.CreateArticle(ctx, store.ArticleParams{
		Title: "Other", Slug: first.Slug, Content: "0123456789",
		CategoryID: cat.ID, AuthorID: author.ID, Status: model.ArticleStatusDraft,
		Source: model.Source{Type: model.SourceOriginal},
	})
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))
}

func TestStampArticlePublishedOnce(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	cat := testutil.CreateCategory(t, q, "")
	draft := testutil.CreateArticle(t, q, author.ID, cat.ID, model.ArticleStatusDraft)

	stamped, err := q.StampArticlePublished(ctx, draft.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, stamped, "drafts are never stamped")

	params := store.ArticleParams{
		Title: "Going live", Slug: "going-live", Content: "0123456789",
		CategoryID: cat.ID, AuthorID: author.ID, Status: model.ArticleStatusPublished,
		Source: model.Source{Type: model.SourceOriginal},
	}
	art, err := q.CreateArticle(ctx, params)
	require.NoError(t, err)
	require.False(t, art.PublishedAt.Valid)

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stamped, err = q.StampArticlePublished(ctx, art.ID, first)
	require.NoError(t, err)
	assert.True(t, stamped)

	stamped, err = q.StampArticlePublished(ctx, art.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, stamped, "an existing publication time is kept")

	params.Status = model.ArticleStatusDraft
	updated, err := q.UpdateArticle(ctx, art.ID, params)
	require.NoError(t, err)
	require.True(t, updated.PublishedAt.Valid, "updates leave the publication time alone")
	assert.True(t, updated.PublishedAt.Time.Equal(first))
}

func TestListArticlesFilters(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	catA := testutil.CreateCategory(t, q, "")
	catB := testutil.CreateCategory(t, q, "")
	testutil.CreateArticle(t, q, author.ID, catA.ID, model.ArticleStatusPublished)
	testutil.CreateArticle(t, q, author.ID, catA.ID, model.ArticleStatusDraft)
	testutil.CreateArticle(t, q, author.ID, catB.ID, model.ArticleStatusPublished)

	tests := []struct {
		name   string
		filter store.ArticleFilter
		want   int64
	}{
		{"all", store.ArticleFilter{}, 3},
		{"published", store.ArticleFilter{Status: model.ArticleStatusPublished}, 2},
		{"category", store.ArticleFilter{CategoryID: catA.ID}, 2},
		{"both", store.ArticleFilter{Status: model.ArticleStatusDraft, CategoryID: catA.ID}, 1},
		{"search", store.ArticleFilter{Search: "Article"}, 3},
		{"search wildcard literal", store.ArticleFilter{Search: "%"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := q.CountArticles(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)

			items, err := q.ListArticles(ctx, tt.filter, 20, 0)
			require.NoError(t, err)
			assert.Len(t, items, int(tt.want))
		})
	}

	counts, err := q.CountArticlesByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.ArticleStatusPublished])
	assert.Equal(t, int64(0), counts[model.ArticleStatusArchived])

	pub, err := q.ListPublishedArticles(ctx, store.PublishedFilter{CategoryID: catA.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, pub, 1)
	assert.Equal(t, catA.Name, pub[0].CategoryName)
	assert.Equal(t, author.Name, pub[0].AuthorName)
}

func TestCategoryDeleteRestrictedByArticles(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	cat := testutil.CreateCategory(t, q, "")
	testutil.CreateArticle(t, q, author.ID, cat.ID, model.ArticleStatusDraft)

	_, err := q.DeleteCategory(ctx, cat.ID)
	require.Error(t, err)
	assert.True(t, store.IsForeignKeyViolation(err), "got %v", err)

	cats, err := q.ListCategoriesWithCounts(ctx, store.CategoryFilter{})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(1), cats[0].ArticleCount)
}

func TestAccountDeleteRestrictedByArticles(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	author := testutil.CreateAccount(t, q, model.RoleEditor, true, false)
	cat := testutil.CreateCategory(t, q, "")
	testutil.CreateArticle(t, q, author.ID, cat.ID, model.ArticleStatusPublished)

	_, err := q.DeleteAccount(ctx, author.ID)
	require.Error(t, err)
	assert.True(t, store.IsForeignKeyViolation(err), "got %v", err)
	assert.False(t, store.IsUniqueViolation(err))
}

func TestIsForeignKeyViolationPlainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("disk I/O error"), false},
		{"wrapped message", errors.New("deleting: FOREIGN KEY constraint failed"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.IsForeignKeyViolation(tt.err))
		})
	}
}

func TestMessageReadState(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))
	reader := testutil.CreateAccount(t, q, model.RoleEditor, true, false)

	m, err := q.CreateMessage(ctx, store.CreateMessageParams{
		Name: "Jo", Email: "jo@example.com", Subject: "Hi", Body: "Hello there",
	})
	require.NoError(t, err)

	at := time.Now().UTC()
	_, err = q.MarkMessageRead(ctx, m.ID, reader.ID, at)
	require.NoError(t, err)
	got, err := q.GetMessage(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.True(t, got.ReadAt.Valid)
	assert.Equal(t, reader.ID, got.ReadBy.Int64)

	_, err = q.MarkMessageUnread(ctx, m.ID)
	require.NoError(t, err)
	got, err = q.GetMessage(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)
	assert.False(t, got.ReadAt.Valid)
	assert.False(t, got.ReadBy.Valid)

	_, err = q.ArchiveMessage(ctx, m.ID)
	require.NoError(t, err)
	unread, err := q.CountMessages(ctx, model.MessageFilterUnread)
	require.NoError(t, err)
	assert.Zero(t, unread)
	archived, err := q.CountMessages(ctx, model.MessageFilterArchived)
	require.NoError(t, err)
	assert.Equal(t, int64(1), archived)
}

func TestSubscriptionToggleKeepsOneTimestamp(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))

	s, err := q.CreateSubscription(ctx, "reader@example.com", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, s.SubscribedAt.Valid)
	assert.False(t, s.UnsubscribedAt.Valid)

	s, err = q.SetSubscriptionActive(ctx, s.ID, false, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, s.IsActive)
	assert.False(t, s.SubscribedAt.Valid)
	assert.True(t, s.UnsubscribedAt.Valid)

	s, err = q.SetSubscriptionActive(ctx, s.ID, true, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, s.IsActive)
	assert.True(t, s.SubscribedAt.Valid)
	assert.False(t, s.UnsubscribedAt.Valid)

	_, err = q.CreateSubscription(ctx, "Reader@Example.com", time.Now().UTC())
	assert.True(t, store.IsUniqueViolation(err))

	stats, err := q.GetSubscriptionStats(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStats{Total: 1, Active: 1, Inactive: 0, NewThisMonth: 1}, stats)

	emails, err := q.ListActiveSubscriberEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"reader@example.com"}, emails)
}

func TestDeleteEventsBefore(t *testing.T) {
	ctx := context.Background()
	q := store.New(testutil.TestDB(t))

	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	require.NoError(t, q.CreateEvent(ctx, store.CreateEventParams{
		Level: model.EventLevelInfo, Category: model.EventCategoryAuth, Message: "old", CreatedAt: old,
	}))
	require.NoError(t, q.CreateEvent(ctx, store.CreateEventParams{
		Level: model.EventLevelWarning, Category: model.EventCategorySystem, Message: "new",
	}))

	n, err := q.DeleteEventsBefore(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := q.ListEvents(ctx, store.EventFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Message)
	assert.Equal(t, "{}", events[0].Metadata)
}
