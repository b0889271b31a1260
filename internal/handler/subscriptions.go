// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strings"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
)

const redirectSubscriptions = "/admin/subscriptions"

// SubscriptionsHandler handles the newsletter subscriber admin.
type SubscriptionsHandler struct {
	renderer      *render.Renderer
	subscriptions *service.Subscriptions
	events        *service.Events
}

// NewSubscriptionsHandler creates a new SubscriptionsHandler.
func NewSubscriptionsHandler(renderer *render.Renderer, subscriptions *service.Subscriptions, events *service.Events) *SubscriptionsHandler {
	return &SubscriptionsHandler{renderer: renderer, subscriptions: subscriptions, events: events}
}

type subscriptionsListData struct {
	Search     string
	Status     string
	Stats      model.SubscriptionStats
	Page       service.Page[model.Subscription]
	Pagination render.Pagination
}

// List handles GET /admin/subscriptions.
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SubscriptionFilter{Search: strings.TrimSpace(q.Get("q")), Status: q.Get("status")}
	if filter.Status != "active" && filter.Status != "inactive" {
		filter.Status = ""
	}

	page, err := h.subscriptions.List(r.Context(), filter, pageParam(r))
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing subscriptions")
		return
	}
	stats, err := h.subscriptions.Stats(r.Context())
	if err != nil {
		errorPage(w, r, h.renderer, err, "loading subscription stats")
		return
	}

	h.renderer.MustRender(w, r, "admin/subscriptions", render.TemplateData{
		Title: "Subscriptions",
		Data: subscriptionsListData{
			Search:     filter.Search,
			Status:     filter.Status,
			Stats:      stats,
			Page:       page,
			Pagination: render.NewPagination(page.Page, page.TotalPages(), page.Total, redirectSubscriptions, q),
		},
	})
}

// Create handles POST /admin/subscriptions, a manual add by staff.
func (h *SubscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectSubscriptions, "Invalid form data")
		return
	}
	res, err := h.subscriptions.Subscribe(r.Context(), r.FormValue("email"), checkbox(r, "send_welcome"))
	if err != nil {
		respondError(w, r, h.renderer, redirectSubscriptions, err, "adding subscriber")
		return
	}

	message := res.Subscription.Email + " subscribed"
	if !res.Created {
		message = res.Subscription.Email + " reactivated"
	}
	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Subscriber added", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"subscription_id": res.Subscription.ID, "created": res.Created})
	respondOK(w, r, h.renderer, redirectSubscriptions, message)
}

// Toggle handles POST /admin/subscriptions/{id}/toggle.
func (h *SubscriptionsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, h.renderer, redirectSubscriptions, err, "parsing subscription id")
		return
	}
	sub, err := h.subscriptions.Toggle(r.Context(), id)
	if err != nil {
		respondError(w, r, h.renderer, redirectSubscriptions, err, "toggling subscription")
		return
	}
	message := sub.Email + " deactivated"
	if sub.IsActive {
		message = sub.Email + " activated"
	}
	respondOK(w, r, h.renderer, redirectSubscriptions, message)
}

// Delete handles POST /admin/subscriptions/{id}/delete.
func (h *SubscriptionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, h.renderer, redirectSubscriptions, err, "parsing subscription id")
		return
	}
	if err := h.subscriptions.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.renderer, redirectSubscriptions, err, "deleting subscription")
		return
	}
	_ = h.events.LogContent(r.Context(), model.EventLevelInfo, "Subscriber deleted", middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"subscription_id": id})
	respondOK(w, r, h.renderer, redirectSubscriptions, "Subscriber deleted")
}
