// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
)

const redirectCategories = "/admin/categories"

var categoryFields = []string{"name", "description", "order", "is_active"}

// CategoriesHandler handles the category admin.
type CategoriesHandler struct {
	renderer   *render.Renderer
	categories *service.Categories
	events     *service.Events
}

// NewCategoriesHandler creates a new CategoriesHandler.
func NewCategoriesHandler(renderer *render.Renderer, categories *service.Categories, events *service.Events) *CategoriesHandler {
	return &CategoriesHandler{renderer: renderer, categories: categories, events: events}
}

type categoriesListData struct {
	Items  []model.CategoryWithCount
	Search string
	Active string
}

// List handles GET /admin/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CategoryFilter{Search: strings.TrimSpace(q.Get("q")), Active: q.Get("active")}
	if filter.Active != "active" && filter.Active != "inactive" {
		filter.Active = ""
	}

	items, err := h.categories.List(r.Context(), filter)
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing categories")
		return
	}
	h.renderer.MustRender(w, r, "admin/categories", render.TemplateData{
		Title: "Categories",
		Data:  categoriesListData{Items: items, Search: filter.Search, Active: filter.Active},
	})
}

type categoryFormData struct {
	IsEdit bool
	ID     int64
}

func (h *CategoriesHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, id int64, form map[string]string, err error) {
	title := "New category"
	if id != 0 {
		title = "Edit category"
	}
	data := render.TemplateData{
		Title: title,
		Form:  form,
		Data:  categoryFormData{IsEdit: id != 0, ID: id},
	}
	if err != nil {
		data.Errors = service.FieldErrors(err)
		data.Flash = service.PublicMessage(err)
		data.FlashType = render.FlashError
	}
	h.renderer.MustRenderStatus(w, r, status, "admin/category_form", data)
}

// New handles GET /admin/categories/new.
func (h *CategoriesHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, 0, map[string]string{"order": "0", "is_active": "1"}, nil)
}

// Edit handles GET /admin/categories/{id}/edit.
func (h *CategoriesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		errorPage(w, r, h.renderer, err, "parsing category id")
		return
	}
	cat, err := h.categories.Get(r.Context(), id)
	if err != nil {
		errorPage(w, r, h.renderer, err, "loading category")
		return
	}
	form := map[string]string{
		"name":        cat.Name,
		"description": cat.Description,
		"order":       strconv.FormatInt(cat.Order, 10),
	}
	if cat.IsActive {
		form["is_active"] = "1"
	}
	h.renderForm(w, r, http.StatusOK, id, form, nil)
}

func parseCategoryInput(r *http.Request) service.CategoryInput {
	order, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("order")), 10, 64)
	return service.CategoryInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Order:       order,
		IsActive:    checkbox(r, "is_active"),
	}
}

// formError answers a rejected category submission.
func (h *CategoriesHandler) formError(w http.ResponseWriter, r *http.Request, id int64, err error, op string) {
	logServiceError(r, err, op)
	if middleware.WantsJSON(r) {
		writeJSONError(w, statusFor(service.KindOf(err)), service.PublicMessage(err))
		return
	}
	h.renderForm(w, r, statusFor(service.KindOf(err)), id, formValues(r, categoryFields...), err)
}

// Create handles POST /admin/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectCategories, "Invalid form data")
		return
	}
	cat, err := h.categories.Create(r.Context(), parseCategoryInput(r))
	if err != nil {
		h.formError(w, r, 0, err, "creating category")
		return
	}
	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Category created", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"category_id": cat.ID, "name": cat.Name})
	respondOK(w, r, h.renderer, redirectCategories, fmt.Sprintf("Category %q created", cat.Name))
}

// Update handles POST /admin/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		errorPage(w, r, h.renderer, err, "parsing category id")
		return
	}
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectCategories, "Invalid form data")
		return
	}
	cat, err := h.categories.Update(r.Context(), id, parseCategoryInput(r))
	if err != nil {
		if service.KindOf(err) == service.KindNotFound {
			respondError(w, r, h.renderer, redirectCategories, err, "updating category")
			return
		}
		h.formError(w, r, id, err, "updating category")
		return
	}
	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Category updated", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"category_id": cat.ID, "name": cat.Name})
	respondOK(w, r, h.renderer, redirectCategories, fmt.Sprintf("Category %q updated", cat.Name))
}

// Delete handles POST /admin/categories/{id}/delete. A category that still
// has articles answers 409 with the article count in the message.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, h.renderer, redirectCategories, err, "parsing category id")
		return
	}
	if err := h.categories.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.renderer, redirectCategories, err, "deleting category")
		return
	}
	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Category deleted", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"category_id": id})
	respondOK(w, r, h.renderer, redirectCategories, "Category deleted")
}
