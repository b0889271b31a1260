// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"slices"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
)

var (
	eventLevels     = []string{model.EventLevelInfo, model.EventLevelWarning, model.EventLevelError}
	eventCategories = []string{model.EventCategoryAuth, model.EventCategoryContent, model.EventCategorySystem}
)

// EventsHandler handles the event log viewer.
type EventsHandler struct {
	renderer *render.Renderer
	events   *service.Events
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(renderer *render.Renderer, events *service.Events) *EventsHandler {
	return &EventsHandler{renderer: renderer, events: events}
}

type eventsListData struct {
	Level      string
	Category   string
	Levels     []string
	Categories []string
	Page       service.Page[model.Event]
	Pagination render.Pagination
}

// List handles GET /admin/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EventFilter{Level: q.Get("level"), Category: q.Get("category")}
	if !slices.Contains(eventLevels, filter.Level) {
		filter.Level = ""
	}
	if !slices.Contains(eventCategories, filter.Category) {
		filter.Category = ""
	}

	page, err := h.events.List(r.Context(), filter, pageParam(r))
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing events")
		return
	}

	h.renderer.MustRender(w, r, "admin/events", render.TemplateData{
		Title: "Event log",
		Data: eventsListData{
			Level:      filter.Level,
			Category:   filter.Category,
			Levels:     eventLevels,
			Categories: eventCategories,
			Page:       page,
			Pagination: render.NewPagination(page.Page, page.TotalPages(), page.Total, "/admin/events", q),
		},
	})
}
