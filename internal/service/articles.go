// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/util"
)

// Listing sizes used by the admin and public pages.
const (
	ArticlesPerAdminPage    = 20
	ArticlesPerCategoryPage = 12
	RelatedArticlesLimit    = 3
	NewsFeedLimit           = 20
)

// NewsCategorySlug identifies the category shown on the news page.
const NewsCategorySlug = "news"

// Field limits for articles.
const (
	MinTitleLength   = 3
	MaxTitleLength   = 200
	MinContentLength = 10
	MaxExcerptLength = 500
)

// ArticleStore is the persistence used by Articles.
type ArticleStore interface {
	CreateArticle(ctx context.Context, arg store.ArticleParams) (model.Article, error)
	UpdateArticle(ctx context.Context, id int64, arg store.ArticleParams) (model.Article, error)
	StampArticlePublished(ctx context.Context, id int64, at time.Time) (bool, error)
	GetArticle(ctx context.Context, id int64) (model.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (model.Article, error)
	GetPublishedArticleBySlug(ctx context.Context, slug string) (model.ArticleWithRefs, error)
	IncrementArticleViews(ctx context.Context, id int64) (int64, error)
	DeleteArticle(ctx context.Context, id int64) (int64, error)
	ListArticles(ctx context.Context, f store.ArticleFilter, limit, offset int64) ([]model.ArticleWithRefs, error)
	CountArticles(ctx context.Context, f store.ArticleFilter) (int64, error)
	CountArticlesByStatus(ctx context.Context) (map[string]int64, error)
	ListPublishedArticles(ctx context.Context, f store.PublishedFilter, limit, offset int64) ([]model.ArticleWithRefs, error)
	CountPublishedArticles(ctx context.Context, f store.PublishedFilter) (int64, error)
	ListSitemapArticles(ctx context.Context) ([]store.SitemapEntry, error)

	GetCategory(ctx context.Context, id int64) (model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error)
}

// Articles runs the content workflow.
type Articles struct {
	store     ArticleStore
	sanitizer *Sanitizer
	notifier  Notifier
	now       Clock
}

// NewArticles creates the content workflow service. A nil notifier disables
// publish notifications.
func NewArticles(s ArticleStore, sanitizer *Sanitizer, notifier Notifier) *Articles {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Articles{store: s, sanitizer: sanitizer, notifier: notifier, now: systemClock}
}

// ArticleInput is an editor's create or update request.
type ArticleInput struct {
	Title      string
	Content    string
	Excerpt    string
	CategoryID int64
	Status     string
	IsFeatured bool
	// Tags is a comma-separated list.
	Tags   string
	Source model.Source
	// FeaturedImage replaces the stored image when non-empty.
	FeaturedImage string
	// RemoveImage clears the stored image.
	RemoveImage bool
}

// Create stores a new article authored by author.
func (s *Articles) Create(ctx context.Context, author *model.Account, in ArticleInput) (*model.Article, error) {
	if author == nil {
		return nil, ErrUnauthenticated
	}

	params, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	params.AuthorID = author.ID

	if err := s.applySlug(ctx, &params, 0); err != nil {
		return nil, err
	}
	published := applyPublish(&params, s.now())

	art, err := s.store.CreateArticle(ctx, params)
	if err != nil {
		return nil, s.writeErr(err, params.Slug, "creating article")
	}

	if published {
		s.notifier.ArticlePublished(art)
	}
	return &art, nil
}

// Update applies in to article id. The slug is regenerated only when the
// title changes. publishedAt is never written from the loaded row; see
// stampPublished.
func (s *Articles) Update(ctx context.Context, actor *model.Account, id int64, in ArticleInput) (*model.Article, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	existing, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, lookupErr("article", "loading article", err)
	}

	params, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	params.AuthorID = existing.AuthorID

	if params.Title != existing.Title {
		if err := s.applySlug(ctx, &params, id); err != nil {
			return nil, err
		}
	} else {
		params.Slug = existing.Slug
	}

	switch {
	case in.FeaturedImage != "":
	case in.RemoveImage:
		params.FeaturedImage = ""
	default:
		params.FeaturedImage = existing.FeaturedImage
	}

	art, err := s.store.UpdateArticle(ctx, id, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("article")
		}
		return nil, s.writeErr(err, params.Slug, "updating article")
	}

	if art.IsPublished() && !art.PublishedAt.Valid {
		return s.stampPublished(ctx, art)
	}
	return &art, nil
}

// stampPublished sets publishedAt on a published article that has none.
// The store only stamps an unset column, so a concurrent publish and a
// stale save can neither clear nor move it, and only the write that set it
// notifies subscribers.
func (s *Articles) stampPublished(ctx context.Context, art model.Article) (*model.Article, error) {
	stamped, err := s.store.StampArticlePublished(ctx, art.ID, s.now())
	if err != nil {
		return nil, Internal("stamping publication time", err)
	}
	fresh, err := s.store.GetArticle(ctx, art.ID)
	if err != nil {
		return nil, lookupErr("article", "reloading article", err)
	}
	if stamped {
		s.notifier.ArticlePublished(fresh)
	}
	return &fresh, nil
}

// prepare validates in and derives every stored field except slug,
// author and publishedAt.
func (s *Articles) prepare(ctx context.Context, in ArticleInput) (store.ArticleParams, error) {
	title := strings.TrimSpace(in.Title)
	excerpt := s.sanitizer.PlainText(in.Excerpt)
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = model.ArticleStatusDraft
	}

	var v validator
	if n := utf8.RuneCountInString(title); n < MinTitleLength || n > MaxTitleLength {
		v.add("title", "title must be between 3 and 200 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Content)) < MinContentLength {
		v.add("content", "content must be at least 10 characters")
	}
	if utf8.RuneCountInString(excerpt) > MaxExcerptLength {
		v.add("excerpt", "excerpt must be at most 500 characters")
	}
	if !model.IsValidArticleStatus(status) {
		v.add("status", "invalid status")
	}
	if in.CategoryID <= 0 {
		v.add("category", "category is required")
	}
	src, srcErr := normalizeSource(in.Source)
	if srcErr != nil {
		v.add(srcErr.field, srcErr.message)
	}

	content := s.sanitizer.Content(in.Content)
	if content == "" && v.fields["content"] == "" {
		v.add("content", "content is empty after removing disallowed markup")
	}

	if err := v.err(); err != nil {
		return store.ArticleParams{}, err
	}

	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ArticleParams{}, Validation("category", "selected category does not exist")
		}
		return store.ArticleParams{}, Internal("loading category", err)
	}

	return store.ArticleParams{
		Title:         title,
		Content:       content,
		Excerpt:       excerpt,
		CategoryID:    in.CategoryID,
		Status:        status,
		IsFeatured:    in.IsFeatured,
		Tags:          model.ParseTags(in.Tags),
		Source:        src,
		FeaturedImage: in.FeaturedImage,
	}, nil
}

// applySlug derives the slug from the title and rejects it when another
// article (not selfID) already holds it.
func (s *Articles) applySlug(ctx context.Context, p *store.ArticleParams, selfID int64) error {
	slug := util.Slugify(p.Title)
	if slug == "" {
		return Validation("title", "title must contain letters or digits")
	}

	holder, err := s.store.GetArticleBySlug(ctx, slug)
	switch {
	case err == nil && holder.ID != selfID:
		return slugConflict(slug)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return Internal("checking slug", err)
	}

	p.Slug = slug
	return nil
}

// applyPublish sets PublishedAt on an article created as published.
// It reports whether this call set it.
func applyPublish(p *store.ArticleParams, now time.Time) bool {
	p.PublishedAt = sql.NullTime{}
	if p.Status == model.ArticleStatusPublished {
		p.PublishedAt = sql.NullTime{Time: now, Valid: true}
		return true
	}
	return false
}

type fieldError struct {
	field   string
	message string
}

// normalizeSource clears attribution for original reporting and requires a
// name for every other source type.
func normalizeSource(src model.Source) (model.Source, *fieldError) {
	typ := strings.TrimSpace(src.Type)
	switch typ {
	case "", model.SourceOriginal:
		return model.Source{Type: model.SourceOriginal}, nil
	case model.SourceSourced, model.SourceAggregated, model.SourceTranslated:
	default:
		return model.Source{}, &fieldError{"source_type", "invalid source type"}
	}

	out := model.Source{
		Type:                typ,
		Name:                strings.TrimSpace(src.Name),
		URL:                 strings.TrimSpace(src.URL),
		Author:              strings.TrimSpace(src.Author),
		OriginalPublishDate: src.OriginalPublishDate,
	}
	if out.Name == "" {
		return model.Source{}, &fieldError{"source_name", "source name is required for non-original content"}
	}
	if out.URL != "" {
		u, err := url.Parse(out.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return model.Source{}, &fieldError{"source_url", "source URL must be an http or https address"}
		}
	}
	return out, nil
}

func slugConflict(slug string) error {
	return Conflict("another article already uses the slug %q; choose a different title", slug)
}

func (s *Articles) writeErr(err error, slug, op string) error {
	switch {
	case store.IsUniqueViolation(err):
		return slugConflict(slug)
	case store.IsForeignKeyViolation(err):
		return Validation("category", "selected category does not exist")
	default:
		return Internal(op, err)
	}
}

// Get returns the article with id in any status.
func (s *Articles) Get(ctx context.Context, id int64) (*model.Article, error) {
	art, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, lookupErr("article", "loading article", err)
	}
	return &art, nil
}

// Delete removes article id unconditionally and returns what was deleted.
func (s *Articles) Delete(ctx context.Context, id int64) (*model.Article, error) {
	art, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.store.DeleteArticle(ctx, id)
	if err != nil {
		return nil, Internal("deleting article", err)
	}
	if n == 0 {
		return nil, NotFound("article")
	}
	return art, nil
}

// ReadPublished returns the published article with slug and counts the read.
// The increment is a single atomic UPDATE so concurrent readers never lose views.
func (s *Articles) ReadPublished(ctx context.Context, slug string) (*model.ArticleWithRefs, error) {
	art, err := s.store.GetPublishedArticleBySlug(ctx, slug)
	if err != nil {
		return nil, lookupErr("article", "loading article", err)
	}

	views, err := s.store.IncrementArticleViews(ctx, art.ID)
	if err != nil {
		return nil, lookupErr("article", "counting view", err)
	}
	art.Views = views
	return &art, nil
}

// List returns one admin page of articles matching f.
func (s *Articles) List(ctx context.Context, f store.ArticleFilter, page int) (Page[model.ArticleWithRefs], error) {
	page, limit, offset := pageBounds(page, ArticlesPerAdminPage)
	items, err := s.store.ListArticles(ctx, f, limit, offset)
	if err != nil {
		return Page[model.ArticleWithRefs]{}, Internal("listing articles", err)
	}
	total, err := s.store.CountArticles(ctx, f)
	if err != nil {
		return Page[model.ArticleWithRefs]{}, Internal("counting articles", err)
	}
	return Page[model.ArticleWithRefs]{Items: items, Total: total, Page: page, PerPage: ArticlesPerAdminPage}, nil
}

// StatusCounts returns article totals keyed by status.
func (s *Articles) StatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := s.store.CountArticlesByStatus(ctx)
	if err != nil {
		return nil, Internal("counting articles", err)
	}
	return counts, nil
}

func (s *Articles) published(ctx context.Context, f store.PublishedFilter, n int) ([]model.ArticleWithRefs, error) {
	items, err := s.store.ListPublishedArticles(ctx, f, int64(n), 0)
	if err != nil {
		return nil, Internal("listing published articles", err)
	}
	return items, nil
}

// Featured returns up to n featured published articles.
func (s *Articles) Featured(ctx context.Context, n int) ([]model.ArticleWithRefs, error) {
	return s.published(ctx, store.PublishedFilter{FeaturedOnly: true}, n)
}

// Latest returns the n most recently published articles.
func (s *Articles) Latest(ctx context.Context, n int) ([]model.ArticleWithRefs, error) {
	return s.published(ctx, store.PublishedFilter{}, n)
}

// LatestInCategory returns the n newest published articles in the category
// with slug. A missing category yields an empty list.
func (s *Articles) LatestInCategory(ctx context.Context, slug string, n int) ([]model.ArticleWithRefs, error) {
	cat, err := s.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, Internal("loading category", err)
	}
	return s.published(ctx, store.PublishedFilter{CategoryID: cat.ID}, n)
}

// Related returns up to RelatedArticlesLimit other published articles from
// the same category.
func (s *Articles) Related(ctx context.Context, art *model.ArticleWithRefs) ([]model.ArticleWithRefs, error) {
	return s.published(ctx, store.PublishedFilter{CategoryID: art.CategoryID, ExcludeID: art.ID}, RelatedArticlesLimit)
}

// ByCategory returns a page of published articles for an active category.
func (s *Articles) ByCategory(ctx context.Context, slug string, page int) (*model.Category, Page[model.ArticleWithRefs], error) {
	var empty Page[model.ArticleWithRefs]
	cat, err := s.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, empty, lookupErr("category", "loading category", err)
	}
	if !cat.IsActive {
		return nil, empty, NotFound("category")
	}

	page, limit, offset := pageBounds(page, ArticlesPerCategoryPage)
	f := store.PublishedFilter{CategoryID: cat.ID}
	items, err := s.store.ListPublishedArticles(ctx, f, limit, offset)
	if err != nil {
		return nil, empty, Internal("listing category articles", err)
	}
	total, err := s.store.CountPublishedArticles(ctx, f)
	if err != nil {
		return nil, empty, Internal("counting category articles", err)
	}
	return &cat, Page[model.ArticleWithRefs]{Items: items, Total: total, Page: page, PerPage: ArticlesPerCategoryPage}, nil
}

// NewsFeed is the news page: the newest featured item plus recent items
// bucketed by age.
type NewsFeed struct {
	Category  model.Category
	Breaking  *model.ArticleWithRefs
	ThisWeek  []model.ArticleWithRefs
	ThisMonth []model.ArticleWithRefs
	Older     []model.ArticleWithRefs
}

// News builds the news page from the active "news" category.
func (s *Articles) News(ctx context.Context) (*NewsFeed, error) {
	cat, err := s.store.GetCategoryBySlug(ctx, NewsCategorySlug)
	if err != nil {
		return nil, lookupErr("news section", "loading news category", err)
	}
	if !cat.IsActive {
		return nil, NotFound("news section")
	}

	breaking, err := s.published(ctx, store.PublishedFilter{CategoryID: cat.ID, FeaturedOnly: true}, 1)
	if err != nil {
		return nil, err
	}
	recent, err := s.published(ctx, store.PublishedFilter{CategoryID: cat.ID}, NewsFeedLimit)
	if err != nil {
		return nil, err
	}

	feed := &NewsFeed{Category: cat}
	if len(breaking) > 0 {
		feed.Breaking = &breaking[0]
	}
	feed.ThisWeek, feed.ThisMonth, feed.Older = bucketByAge(recent, s.now())
	return feed, nil
}

// bucketByAge splits articles into the last 7 days, the 23 days before
// that, and everything older.
func bucketByAge(items []model.ArticleWithRefs, now time.Time) (week, month, older []model.ArticleWithRefs) {
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)
	for _, a := range items {
		at := a.PublishedAt.Time
		switch {
		case !at.Before(weekAgo):
			week = append(week, a)
		case !at.Before(monthAgo):
			month = append(month, a)
		default:
			older = append(older, a)
		}
	}
	return week, month, older
}

// SitemapEntries returns every published article's slug and modification time.
func (s *Articles) SitemapEntries(ctx context.Context) ([]store.SitemapEntry, error) {
	entries, err := s.store.ListSitemapArticles(ctx)
	if err != nil {
		return nil, Internal("listing sitemap articles", err)
	}
	return entries, nil
}
