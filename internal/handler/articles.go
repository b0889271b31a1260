// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/upload"
)

const (
	redirectArticles = "/admin/articles"

	// maxArticleForm bounds a multipart article submission: the image plus
	// the text fields.
	maxArticleForm = upload.MaxSize + 1<<20

	sourceDateLayout = "2006-01-02"
)

var articleFields = []string{
	"title", "excerpt", "content", "category_id", "status", "is_featured", "tags",
	"source_type", "source_name", "source_url", "source_author", "source_date",
}

// ArticlesHandler handles the article admin.
type ArticlesHandler struct {
	renderer   *render.Renderer
	articles   *service.Articles
	categories *service.Categories
	uploads    *upload.Store
	events     *service.Events
}

// NewArticlesHandler creates a new ArticlesHandler.
func NewArticlesHandler(renderer *render.Renderer, articles *service.Articles, categories *service.Categories,
	uploads *upload.Store, events *service.Events) *ArticlesHandler {
	return &ArticlesHandler{
		renderer:   renderer,
		articles:   articles,
		categories: categories,
		uploads:    uploads,
		events:     events,
	}
}

type articlesListData struct {
	Search     string
	Status     string
	CategoryID int64
	Statuses   []string
	Categories []model.CategoryWithCount
	Page       service.Page[model.ArticleWithRefs]
	Pagination render.Pagination
}

// List handles GET /admin/articles.
func (h *ArticlesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, _ := strconv.ParseInt(q.Get("category"), 10, 64)
	filter := store.ArticleFilter{
		Status:     q.Get("status"),
		CategoryID: categoryID,
		Search:     strings.TrimSpace(q.Get("q")),
	}
	if !model.IsValidArticleStatus(filter.Status) {
		filter.Status = ""
	}

	page, err := h.articles.List(r.Context(), filter, pageParam(r))
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing articles")
		return
	}
	cats, err := h.categories.List(r.Context(), store.CategoryFilter{})
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing categories")
		return
	}

	h.renderer.MustRender(w, r, "admin/articles", render.TemplateData{
		Title: "Articles",
		Data: articlesListData{
			Search:     filter.Search,
			Status:     filter.Status,
			CategoryID: filter.CategoryID,
			Statuses:   model.ArticleStatuses,
			Categories: cats,
			Page:       page,
			Pagination: render.NewPagination(page.Page, page.TotalPages(), page.Total, redirectArticles, q),
		},
	})
}

type articleFormData struct {
	IsEdit      bool
	ID          int64
	Categories  []model.CategoryWithCount
	Statuses    []string
	SourceTypes []string
}

func (h *ArticlesHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, id int64, form, errs map[string]string, flash string) {
	cats, err := h.categories.List(r.Context(), store.CategoryFilter{})
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing categories")
		return
	}
	title := "New article"
	if id != 0 {
		title = "Edit article"
	}
	data := render.TemplateData{
		Title:  title,
		Form:   form,
		Errors: errs,
		Data: articleFormData{
			IsEdit:      id != 0,
			ID:          id,
			Categories:  cats,
			Statuses:    model.ArticleStatuses,
			SourceTypes: model.SourceTypes,
		},
	}
	if flash != "" {
		data.Flash = flash
		data.FlashType = render.FlashError
	}
	h.renderer.MustRenderStatus(w, r, status, "admin/article_form", data)
}

// New handles GET /admin/articles/new.
func (h *ArticlesHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, map[string]string{
		"status":      model.ArticleStatusDraft,
		"source_type": model.SourceOriginal,
	}, nil, "")
}

// Edit handles GET /admin/articles/{id}/edit.
func (h *ArticlesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		errorPage(w, r, h.renderer, err, "parsing article id")
		return
	}
	art, err := h.articles.Get(r.Context(), id)
	if err != nil {
		errorPage(w, r, h.renderer, err, "loading article")
		return
	}
	h.renderForm(w, r, http.StatusOK, id, articleForm(art), nil, "")
}

// articleForm converts a stored article into form values.
func articleForm(a *model.Article) map[string]string {
	form := map[string]string{
		"title":          a.Title,
		"excerpt":        a.Excerpt,
		"content":        a.Content,
		"category_id":    strconv.FormatInt(a.CategoryID, 10),
		"status":         a.Status,
		"tags":           strings.Join(a.Tags, ", "),
		"source_type":    a.Source.Type,
		"source_name":    a.Source.Name,
		"source_url":     a.Source.URL,
		"source_author":  a.Source.Author,
		"featured_image": a.FeaturedImage,
	}
	if a.IsFeatured {
		form["is_featured"] = "1"
	}
	if a.Source.OriginalPublishDate.Valid {
		form["source_date"] = a.Source.OriginalPublishDate.Time.Format(sourceDateLayout)
	}
	return form
}

// parseArticleInput reads the text fields of an article form. A source date
// that does not parse is a validation error, not a silently dropped value.
func parseArticleInput(r *http.Request) (service.ArticleInput, map[string]string, error) {
	categoryID, _ := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	in := service.ArticleInput{
		Title:      r.FormValue("title"),
		Content:    r.FormValue("content"),
		Excerpt:    r.FormValue("excerpt"),
		CategoryID: categoryID,
		Status:     r.FormValue("status"),
		IsFeatured: checkbox(r, "is_featured"),
		Tags:       r.FormValue("tags"),
		Source: model.Source{
			Type:   r.FormValue("source_type"),
			Name:   r.FormValue("source_name"),
			URL:    r.FormValue("source_url"),
			Author: r.FormValue("source_author"),
		},
		RemoveImage: checkbox(r, "remove_image"),
	}
	form := formValues(r, articleFields...)
	if raw := strings.TrimSpace(r.FormValue("source_date")); raw != "" {
		t, err := time.Parse(sourceDateLayout, raw)
		if err != nil {
			return in, form, service.Validation("source_date", "source date must be a date like 2026-01-31")
		}
		in.Source.OriginalPublishDate = sql.NullTime{Time: t.UTC(), Valid: true}
	}
	return in, form, nil
}

// saveImage stores the uploaded featured image, if any, and returns its
// public path.
func (h *ArticlesHandler) saveImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("featured_image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", service.Validation("featured_image", "Could not read the uploaded file")
	}
	defer func() { _ = file.Close() }()
	if header.Size == 0 {
		return "", nil
	}
	return h.uploads.Save(file, header.Filename)
}

func (h *ArticlesHandler) discardImage(path string) {
	if path == "" {
		return
	}
	if err := h.uploads.Remove(path); err != nil {
		slog.Warn("failed to remove upload", "path", path, "error", err)
	}
}

// submission parses the multipart form and the featured image. It answers
// the request itself and returns ok=false when parsing fails.
func (h *ArticlesHandler) submission(w http.ResponseWriter, r *http.Request, id int64) (service.ArticleInput, map[string]string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxArticleForm)
	if err := r.ParseMultipartForm(maxArticleForm); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderForm(w, r, http.StatusBadRequest, id, nil,
			map[string]string{"featured_image": "Upload too large or malformed"}, "Invalid form data")
		return service.ArticleInput{}, nil, false
	}

	in, form, err := parseArticleInput(r)
	if err != nil {
		h.formError(w, r, id, form, err, "parsing article form")
		return in, form, false
	}
	image, err := h.saveImage(r)
	if err != nil {
		h.formError(w, r, id, form, err, "saving featured image")
		return in, form, false
	}
	in.FeaturedImage = image
	return in, form, true
}

// formError answers a rejected article submission.
func (h *ArticlesHandler) formError(w http.ResponseWriter, r *http.Request, id int64, form map[string]string, err error, op string) {
	logServiceError(r, err, op)
	status := statusFor(service.KindOf(err))
	if middleware.WantsJSON(r) {
		writeJSONError(w, status, service.PublicMessage(err))
		return
	}
	errs := service.FieldErrors(err)
	if service.KindOf(err) == service.KindConflict {
		errs = map[string]string{"slug": service.PublicMessage(err)}
	}
	h.renderForm(w, r, status, id, form, errs, service.PublicMessage(err))
}

// Create handles POST /admin/articles.
func (h *ArticlesHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, form, ok := h.submission(w, r, 0)
	if !ok {
		return
	}

	user := middleware.GetUser(r)
	art, err := h.articles.Create(r.Context(), user, in)
	if err != nil {
		h.discardImage(in.FeaturedImage)
		h.formError(w, r, 0, form, err, "creating article")
		return
	}

	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Article created", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"article_id": art.ID, "slug": art.Slug, "status": art.Status})
	if art.IsPublished() {
		_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Article published", middleware.GetUserIDPtr(r),
			middleware.ClientIP(r), map[string]any{"article_id": art.ID, "slug": art.Slug})
	}

	respondOK(w, r, h.renderer, redirectArticles, fmt.Sprintf("Article %q created", art.Title))
}

// Update handles POST /admin/articles/{id}.
func (h *ArticlesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		errorPage(w, r, h.renderer, err, "parsing article id")
		return
	}
	current, err := h.articles.Get(r.Context(), id)
	if err != nil {
		errorPage(w, r, h.renderer, err, "loading article")
		return
	}

	in, form, ok := h.submission(w, r, id)
	if !ok {
		return
	}
	form["featured_image"] = current.FeaturedImage

	art, err := h.articles.Update(r.Context(), middleware.GetUser(r), id, in)
	if err != nil {
		h.discardImage(in.FeaturedImage)
		h.formError(w, r, id, form, err, "updating article")
		return
	}
	if current.FeaturedImage != "" && current.FeaturedImage != art.FeaturedImage {
		h.discardImage(current.FeaturedImage)
	}

	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Article updated", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"article_id": art.ID, "slug": art.Slug, "status": art.Status})
	if art.IsPublished() && !current.IsPublished() {
		_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Article published", middleware.GetUserIDPtr(r),
			middleware.ClientIP(r), map[string]any{"article_id": art.ID, "slug": art.Slug})
	}

	respondOK(w, r, h.renderer, redirectArticles, fmt.Sprintf("Article %q updated", art.Title))
}

// Delete handles POST /admin/articles/{id}/delete.
func (h *ArticlesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, h.renderer, redirectArticles, err, "parsing article id")
		return
	}
	art, err := h.articles.Delete(r.Context(), id)
	if err != nil {
		respondError(w, r, h.renderer, redirectArticles, err, "deleting article")
		return
	}
	h.discardImage(art.FeaturedImage)

	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Article deleted", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"article_id": art.ID, "title": art.Title})

	respondOK(w, r, h.renderer, redirectArticles, fmt.Sprintf("Article %q deleted", art.Title))
}
