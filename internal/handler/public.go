// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/seo"
	"github.com/olegiv/newsdesk/internal/service"
)

// Home page section sizes.
const (
	homeFeaturedLimit = 3
	homeLatestLimit   = 6
	homeNewsLimit     = 3
)

// PublicHandler serves the public site.
type PublicHandler struct {
	renderer   *render.Renderer
	articles   *service.Articles
	categories *service.Categories
	site       seo.SiteConfig
	isDev      bool
}

// NewPublicHandler creates a new PublicHandler. Development instances ask
// crawlers to stay away.
func NewPublicHandler(renderer *render.Renderer, articles *service.Articles, categories *service.Categories, site seo.SiteConfig, isDev bool) *PublicHandler {
	return &PublicHandler{
		renderer:   renderer,
		articles:   articles,
		categories: categories,
		site:       site,
		isDev:      isDev,
	}
}

// page builds template data with the navigation categories loaded.
func (h *PublicHandler) page(r *http.Request, title string) render.TemplateData {
	cats, err := h.categories.Active(r.Context())
	if err != nil {
		slog.Error("failed to load navigation categories", "error", err)
	}
	return render.TemplateData{
		Title:      title,
		Meta:       seo.SiteMeta(h.site, title, r.URL.Path),
		Categories: cats,
	}
}

type homeData struct {
	Featured []model.ArticleWithRefs
	Latest   []model.ArticleWithRefs
	News     []model.ArticleWithRefs
}

// Home handles GET /.
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data homeData
	var err error

	if data.Featured, err = h.articles.Featured(ctx, homeFeaturedLimit); err != nil {
		errorPage(w, r, h.renderer, err, "loading featured articles")
		return
	}
	if data.Latest, err = h.articles.Latest(ctx, homeLatestLimit); err != nil {
		errorPage(w, r, h.renderer, err, "loading latest articles")
		return
	}
	if data.News, err = h.articles.LatestInCategory(ctx, service.NewsCategorySlug, homeNewsLimit); err != nil {
		errorPage(w, r, h.renderer, err, "loading latest news")
		return
	}

	td := h.page(r, "")
	td.Data = data
	h.renderer.MustRender(w, r, "public/home", td)
}

type articlePageData struct {
	Article *model.ArticleWithRefs
	Related []model.ArticleWithRefs
}

// Article handles GET /article/{slug}. Each view increments the counter.
func (h *PublicHandler) Article(w http.ResponseWriter, r *http.Request) {
	slug, ok := slugParam(r)
	if !ok {
		errorPage(w, r, h.renderer, service.NotFound("article"), "loading article")
		return
	}
	art, err := h.articles.ReadPublished(r.Context(), slug)
	if err != nil {
		errorPage(w, r, h.renderer, err, "loading article")
		return
	}
	related, err := h.articles.Related(r.Context(), art)
	if err != nil {
		logServiceError(r, err, "loading related articles")
	}

	td := h.page(r, art.Title)
	td.Meta = seo.ArticleMeta(art, h.site)
	td.Schema = seo.BuildArticleSchema(art, h.site)
	td.Data = articlePageData{Article: art, Related: related}
	h.renderer.MustRender(w, r, "public/article", td)
}

type categoryPageData struct {
	Category   *model.Category
	Page       service.Page[model.ArticleWithRefs]
	Pagination render.Pagination
}

// Category handles GET /category/{slug}.
func (h *PublicHandler) Category(w http.ResponseWriter, r *http.Request) {
	slug, ok := slugParam(r)
	if !ok {
		errorPage(w, r, h.renderer, service.NotFound("category"), "loading category")
		return
	}
	cat, page, err := h.articles.ByCategory(r.Context(), slug, pageParam(r))
	if err != nil {
		errorPage(w, r, h.renderer, err, "loading category")
		return
	}

	td := h.page(r, cat.Name)
	if cat.Description != "" {
		td.Meta.Description = cat.Description
		td.Meta.OGDescription = cat.Description
	}
	td.Data = categoryPageData{
		Category:   cat,
		Page:       page,
		Pagination: render.NewPagination(page.Page, page.TotalPages(), page.Total, r.URL.Path, r.URL.Query()),
	}
	h.renderer.MustRender(w, r, "public/category", td)
}

// News handles GET /news.
func (h *PublicHandler) News(w http.ResponseWriter, r *http.Request) {
	feed, err := h.articles.News(r.Context())
	if err != nil {
		errorPage(w, r, h.renderer, err, "loading news")
		return
	}
	td := h.page(r, feed.Category.Name)
	td.Data = feed
	h.renderer.MustRender(w, r, "public/news", td)
}

// Sitemap handles GET /sitemap.xml.
func (h *PublicHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	entries, err := h.articles.SitemapEntries(r.Context())
	if err != nil {
		logServiceError(r, err, "loading sitemap articles")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	cats, err := h.categories.Active(r.Context())
	if err != nil {
		logServiceError(r, err, "loading sitemap categories")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	articles := make([]seo.SitemapItem, 0, len(entries))
	for _, e := range entries {
		articles = append(articles, seo.SitemapItem{Slug: e.Slug, UpdatedAt: e.UpdatedAt})
	}
	categories := make([]seo.SitemapItem, 0, len(cats))
	for _, c := range cats {
		categories = append(categories, seo.SitemapItem{Slug: c.Slug, UpdatedAt: c.UpdatedAt})
	}

	body, err := seo.GenerateSitemap(h.site.SiteURL, articles, categories)
	if err != nil {
		slog.Error("failed to build sitemap", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

// Robots handles GET /robots.txt.
func (h *PublicHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(seo.GenerateRobots(seo.RobotsConfig{SiteURL: h.site.SiteURL, DisallowAll: h.isDev})))
}

// NotFound renders the 404 page for unmatched routes.
func (h *PublicHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	errorPage(w, r, h.renderer, service.NotFound("page"), "route not found")
}
