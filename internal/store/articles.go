// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
)

const articleColumns = `a.id, a.title, a.slug, a.content, a.excerpt, a.category_id, a.author_id,
	a.status, a.published_at, a.views, a.is_featured, a.tags,
	a.source_type, a.source_name, a.source_url, a.source_author, a.source_published_at,
	a.featured_image, a.created_at, a.updated_at`

const articleRefColumns = articleColumns + `, c.name, c.slug, COALESCE(u.name, '')`

const articleRefJoins = ` FROM articles a
	JOIN categories c ON c.id = a.category_id
	LEFT JOIN accounts u ON u.id = a.author_id`

func scanArticleInto(a *model.Article, extra ...any) []any {
	return append([]any{&a.ID, &a.Title, &a.Slug, &a.Content, &a.Excerpt, &a.CategoryID, &a.AuthorID,
		&a.Status, &a.PublishedAt, &a.Views, &a.IsFeatured, new(string),
		&a.Source.Type, &a.Source.Name, &a.Source.URL, &a.Source.Author, &a.Source.OriginalPublishDate,
		&a.FeaturedImage, &a.CreatedAt, &a.UpdatedAt}, extra...)
}

func scanArticle(row rowScanner) (model.Article, error) {
	var a model.Article
	dest := scanArticleInto(&a)
	if err := row.Scan(dest...); err != nil {
		return a, err
	}
	a.Tags = model.DecodeTags(*dest[11].(*string))
	return a, nil
}

func scanArticleWithRefs(row rowScanner) (model.ArticleWithRefs, error) {
	var a model.ArticleWithRefs
	dest := scanArticleInto(&a.Article, &a.CategoryName, &a.CategorySlug, &a.AuthorName)
	if err := row.Scan(dest...); err != nil {
		return a, err
	}
	a.Tags = model.DecodeTags(*dest[11].(*string))
	return a, nil
}

func collectArticles(rows *sql.Rows) ([]model.ArticleWithRefs, error) {
	defer func() { _ = rows.Close() }()
	var items []model.ArticleWithRefs
	for rows.Next() {
		a, err := scanArticleWithRefs(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ArticleParams holds the writable columns of an article.
type ArticleParams struct {
	Title         string
	Slug          string
	Content       string
	Excerpt       string
	CategoryID    int64
	AuthorID      int64
	Status        string
	PublishedAt   sql.NullTime
	IsFeatured    bool
	Tags          []string
	Source        model.Source
	FeaturedImage string
}

// CreateArticle inserts an article and returns it.
func (q *Queries) CreateArticle(ctx context.Context, arg ArticleParams) (model.Article, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO articles
		(title, slug, content, excerpt, category_id, author_id, status, published_at, is_featured, tags,
		 source_type, source_name, source_url, source_author, source_published_at, featured_image,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Title, arg.Slug, arg.Content, arg.Excerpt, arg.CategoryID, arg.AuthorID, arg.Status,
		arg.PublishedAt, boolToInt(arg.IsFeatured), model.EncodeTags(arg.Tags),
		arg.Source.Type, arg.Source.Name, arg.Source.URL, arg.Source.Author, arg.Source.OriginalPublishDate,
		arg.FeaturedImage, now, now)
	if err != nil {
		return model.Article{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Article{}, err
	}
	return q.GetArticle(ctx, id)
}

// UpdateArticle overwrites every writable column except author_id and
// published_at. The publication time is only ever written by
// StampArticlePublished.
func (q *Queries) UpdateArticle(ctx context.Context, id int64, arg ArticleParams) (model.Article, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE articles SET
		title = ?, slug = ?, content = ?, excerpt = ?, category_id = ?, status = ?,
		is_featured = ?, tags = ?, source_type = ?, source_name = ?, source_url = ?, source_author = ?,
		source_published_at = ?, featured_image = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Slug, arg.Content, arg.Excerpt, arg.CategoryID, arg.Status,
		boolToInt(arg.IsFeatured), model.EncodeTags(arg.Tags),
		arg.Source.Type, arg.Source.Name, arg.Source.URL, arg.Source.Author, arg.Source.OriginalPublishDate,
		arg.FeaturedImage, q.now(), id)
	if err != nil {
		return model.Article{}, err
	}
	if n, err := rowsAffected(res); err != nil {
		return model.Article{}, err
	} else if n == 0 {
		return model.Article{}, sql.ErrNoRows
	}
	return q.GetArticle(ctx, id)
}

// StampArticlePublished sets published_at to at when the article is
// published and has never been stamped. It reports whether this call set it;
// of any number of concurrent callers exactly one sees true.
func (q *Queries) StampArticlePublished(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE articles SET published_at = ?
		WHERE id = ? AND published_at IS NULL AND status = ?`,
		at, id, model.ArticleStatusPublished)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

// GetArticle returns the article with id.
func (q *Queries) GetArticle(ctx context.Context, id int64) (model.Article, error) {
	return scanArticle(q.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id))
}

// GetArticleBySlug returns the article with slug in any status.
func (q *Queries) GetArticleBySlug(ctx context.Context, slug string) (model.Article, error) {
	return scanArticle(q.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.slug = ?`, slug))
}

// GetPublishedArticleBySlug returns a published article with its category and author.
func (q *Queries) GetPublishedArticleBySlug(ctx context.Context, slug string) (model.ArticleWithRefs, error) {
	return scanArticleWithRefs(q.db.QueryRowContext(ctx,
		`SELECT `+articleRefColumns+articleRefJoins+` WHERE a.slug = ? AND a.status = 'published'`, slug))
}

// IncrementArticleViews atomically adds one view to a published article
// and returns the new count. It returns sql.ErrNoRows if the article is
// missing or no longer published.
func (q *Queries) IncrementArticleViews(ctx context.Context, id int64) (int64, error) {
	var views int64
	err := q.db.QueryRowContext(ctx, `UPDATE articles SET views = views + 1
		WHERE id = ? AND status = 'published'
		RETURNING views`, id).Scan(&views)
	return views, err
}

// DeleteArticle removes an article and returns the number of rows deleted.
func (q *Queries) DeleteArticle(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// ArticleFilter narrows the admin article list. Zero values match everything.
type ArticleFilter struct {
	Status     string
	CategoryID int64
	Search     string
}

func (f ArticleFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "a.status = ?")
		args = append(args, f.Status)
	}
	if f.CategoryID > 0 {
		conds = append(conds, "a.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, `a.title LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(s))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListArticles returns articles matching f, most recently created first.
func (q *Queries) ListArticles(ctx context.Context, f ArticleFilter, limit, offset int64) ([]model.ArticleWithRefs, error) {
	where, args := f.where()
	rows, err := q.db.QueryContext(ctx, `SELECT `+articleRefColumns+articleRefJoins+where+
		` ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

// CountArticles counts articles matching f.
func (q *Queries) CountArticles(ctx context.Context, f ArticleFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+where, args...).Scan(&n)
	return n, err
}

// CountArticlesByStatus returns article totals keyed by status.
func (q *Queries) CountArticlesByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM articles GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int64, len(model.ArticleStatuses))
	for _, s := range model.ArticleStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountArticlesInCategory counts articles of any status filed under categoryID.
func (q *Queries) CountArticlesInCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE category_id = ?`, categoryID).Scan(&n)
	return n, err
}

// PublishedFilter narrows public article queries.
type PublishedFilter struct {
	CategoryID   int64
	FeaturedOnly bool
	ExcludeID    int64
	Since        time.Time
}

func (f PublishedFilter) where() (string, []any) {
	conds := []string{"a.status = 'published'"}
	var args []any
	if f.CategoryID > 0 {
		conds = append(conds, "a.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.FeaturedOnly {
		conds = append(conds, "a.is_featured = 1")
	}
	if f.ExcludeID > 0 {
		conds = append(conds, "a.id <> ?")
		args = append(args, f.ExcludeID)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "a.published_at >= ?")
		args = append(args, f.Since.UTC())
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPublishedArticles returns published articles, newest publication first.
func (q *Queries) ListPublishedArticles(ctx context.Context, f PublishedFilter, limit, offset int64) ([]model.ArticleWithRefs, error) {
	where, args := f.where()
	rows, err := q.db.QueryContext(ctx, `SELECT `+articleRefColumns+articleRefJoins+where+
		` ORDER BY a.published_at DESC, a.id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

// CountPublishedArticles counts published articles matching f.
func (q *Queries) CountPublishedArticles(ctx context.Context, f PublishedFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+where, args...).Scan(&n)
	return n, err
}

// SitemapEntry is the minimal projection needed for sitemap generation.
type SitemapEntry struct {
	Slug      string
	UpdatedAt time.Time
}

// ListSitemapArticles returns every published article's slug and modification time.
func (q *Queries) ListSitemapArticles(ctx context.Context) ([]SitemapEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT slug, updated_at FROM articles WHERE status = 'published' ORDER BY published_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []SitemapEntry
	for rows.Next() {
		var e SitemapEntry
		if err := rows.Scan(&e.Slug, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
