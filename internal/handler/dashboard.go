// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
)

// dashboardRecentLimit is how many recently changed articles the dashboard lists.
const dashboardRecentLimit = 5

// DashboardHandler renders the back-office landing page.
type DashboardHandler struct {
	renderer      *render.Renderer
	accounts      *service.Accounts
	articles      *service.Articles
	categories    *service.Categories
	messages      *service.Messages
	subscriptions *service.Subscriptions
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(renderer *render.Renderer, accounts *service.Accounts, articles *service.Articles,
	categories *service.Categories, messages *service.Messages, subscriptions *service.Subscriptions) *DashboardHandler {
	return &DashboardHandler{
		renderer:      renderer,
		accounts:      accounts,
		articles:      articles,
		categories:    categories,
		messages:      messages,
		subscriptions: subscriptions,
	}
}

type dashboardData struct {
	StatusCounts map[string]int64
	Categories   int64
	Unread       int64
	Subscribers  model.SubscriptionStats
	Pending      int64
	Recent       []model.ArticleWithRefs
}

// Dashboard handles GET /admin.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data dashboardData
	var err error

	if data.StatusCounts, err = h.articles.StatusCounts(ctx); err != nil {
		errorPage(w, r, h.renderer, err, "dashboard: article counts")
		return
	}
	if data.Categories, err = h.categories.Count(ctx); err != nil {
		errorPage(w, r, h.renderer, err, "dashboard: category count")
		return
	}
	if data.Unread, err = h.messages.UnreadCount(ctx); err != nil {
		errorPage(w, r, h.renderer, err, "dashboard: unread count")
		return
	}
	if data.Subscribers, err = h.subscriptions.Stats(ctx); err != nil {
		errorPage(w, r, h.renderer, err, "dashboard: subscription stats")
		return
	}
	if service.Authorize(middleware.GetUser(r), model.RoleAdmin) == nil {
		if data.Pending, err = h.accounts.CountPending(ctx); err != nil {
			errorPage(w, r, h.renderer, err, "dashboard: pending accounts")
			return
		}
	}

	recent, err := h.articles.List(ctx, store.ArticleFilter{}, 1)
	if err != nil {
		errorPage(w, r, h.renderer, err, "dashboard: recent articles")
		return
	}
	data.Recent = recent.Items
	if len(data.Recent) > dashboardRecentLimit {
		data.Recent = data.Recent[:dashboardRecentLimit]
	}

	h.renderer.MustRender(w, r, "admin/dashboard", render.TemplateData{Title: "Dashboard", Data: data})
}
