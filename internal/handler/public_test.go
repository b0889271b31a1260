// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/seo"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/testutil"
)

func newPublicHandler(e *env, isDev bool) *PublicHandler {
	site := seo.SiteConfig{SiteName: "Newsdesk", SiteURL: "https://news.example.com"}
	return NewPublicHandler(e.renderer, e.articles, e.categories, site, isDev)
}

func TestPublicHomeAndArticle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := newPublicHandler(e, false)

	author := e.account(t, model.RoleEditor)
	cat := testutil.CreateCategory(t, e.q, "Politics")
	pub := testutil.CreateArticle(t, e.q, author.ID, cat.ID, model.ArticleStatusPublished)
	draft := testutil.CreateArticle(t, e.q, author.ID, cat.ID, model.ArticleStatusDraft)

	rec := e.serve(t, h.Home, call{target: "/"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), pub.Title)
	assert.NotContains(t, rec.Body.String(), draft.Title)

	for range 2 {
		rec = e.serve(t, h.Article, call{target: "/article/" + pub.Slug, params: map[string]string{"slug": pub.Slug}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), pub.Title)
	}
	got, err := e.articles.Get(ctx, pub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Views)

	rec = e.serve(t, h.Article, call{target: "/article/" + draft.Slug, params: map[string]string{"slug": draft.Slug}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCategory(t *testing.T) {
	e := newEnv(t)
	h := newPublicHandler(e, false)

	author := e.account(t, model.RoleEditor)
	cat := testutil.CreateCategory(t, e.q, "Science")
	art := testutil.CreateArticle(t, e.q, author.ID, cat.ID, model.ArticleStatusPublished)

	rec := e.serve(t, h.Category, call{target: "/category/" + cat.Slug, params: map[string]string{"slug": cat.Slug}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), art.Title)

	rec = e.serve(t, h.Category, call{target: "/category/missing", params: map[string]string{"slug": "missing"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicNews(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := newPublicHandler(e, false)

	rec := e.serve(t, h.News, call{target: "/news"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	news, err := e.categories.Create(ctx, service.CategoryInput{Name: "News", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, service.NewsCategorySlug, news.Slug)

	author := e.account(t, model.RoleEditor)
	art := testutil.CreateArticle(t, e.q, author.ID, news.ID, model.ArticleStatusPublished)

	rec = e.serve(t, h.News, call{target: "/news"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), art.Title)
}

func TestPublicSitemapAndRobots(t *testing.T) {
	e := newEnv(t)

	author := e.account(t, model.RoleEditor)
	cat := testutil.CreateCategory(t, e.q, "Culture")
	pub := testutil.CreateArticle(t, e.q, author.ID, cat.ID, model.ArticleStatusPublished)
	draft := testutil.CreateArticle(t, e.q, author.ID, cat.ID, model.ArticleStatusDraft)

	h := newPublicHandler(e, false)
	rec := e.serve(t, h.Sitemap, call{target: "/sitemap.xml"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	body := rec.Body.String()
	assert.Contains(t, body, "https://news.example.com")
	assert.Contains(t, body, pub.Slug)
	assert.Contains(t, body, cat.Slug)
	assert.NotContains(t, body, draft.Slug)

	tests := []struct {
		name    string
		isDev   bool
		want    string
		notWant string
	}{
		{"production", false, "Sitemap: https://news.example.com/sitemap.xml", "Disallow: /\n"},
		{"development", true, "Disallow: /\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(t, newPublicHandler(e, tt.isDev).Robots, call{target: "/robots.txt"})
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Body.String(), "Disallow: /admin/")
			if tt.notWant != "" {
				assert.NotContains(t, rec.Body.String(), tt.notWant)
			}
		})
	}
}

func TestPublicNotFound(t *testing.T) {
	e := newEnv(t)
	h := newPublicHandler(e, false)

	rec := e.serve(t, h.NotFound, call{target: "/nowhere"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")

	rec = e.serve(t, h.NotFound, call{target: "/api/nowhere", json: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestPublicRejectsMalformedSlugs(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := newPublicHandler(e, false)

	author := e.account(t, model.RoleEditor)
	cat := testutil.CreateCategory(t, e.q, "World")
	art := testutil.CreateArticle(t, e.q, author.ID, cat.ID, model.ArticleStatusPublished)

	slugs := []string{"Bad Slug!", strings.ToUpper(art.Slug), "-" + art.Slug, "a--b", strings.Repeat("a", 200)}
	for _, slug := range slugs {
		t.Run(slug, func(t *testing.T) {
			rec := e.serve(t, h.Article, call{target: "/article/x", params: map[string]string{"slug": slug}})
			assert.Equal(t, http.StatusNotFound, rec.Code)

			rec = e.serve(t, h.Category, call{target: "/category/x", params: map[string]string{"slug": slug}})
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}

	got, err := e.articles.Get(ctx, art.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Views)
}
