// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
)

const redirectUsers = "/admin/users"

// UsersHandler handles the account admin. Approve, reject, deactivate and
// role changes are restricted to the main admin by the service.
type UsersHandler struct {
	renderer *render.Renderer
	accounts *service.Accounts
	events   *service.Events
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(renderer *render.Renderer, accounts *service.Accounts, events *service.Events) *UsersHandler {
	return &UsersHandler{renderer: renderer, accounts: accounts, events: events}
}

type usersListData struct {
	Filter     string
	Page       service.Page[model.Account]
	Pagination render.Pagination
}

// List handles GET /admin/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := q.Get("filter")
	switch filter {
	case store.AccountFilterAll, store.AccountFilterActive, store.AccountFilterPending:
	default:
		filter = store.AccountFilterPending
	}

	page, err := h.accounts.List(r.Context(), filter, pageParam(r))
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing accounts")
		return
	}
	h.renderer.MustRender(w, r, "admin/users", render.TemplateData{
		Title: "Users",
		Data: usersListData{
			Filter:     filter,
			Page:       page,
			Pagination: render.NewPagination(page.Page, page.TotalPages(), page.Total, redirectUsers, q),
		},
	})
}

// accountAction runs one main-admin action on the {id} account.
func (h *UsersHandler) accountAction(w http.ResponseWriter, r *http.Request, op, event string, fn func(actor *model.Account, id int64) (string, error)) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, h.renderer, redirectUsers, err, "parsing account id")
		return
	}
	actor := middleware.GetUser(r)
	message, err := fn(actor, id)
	if err != nil {
		if service.KindOf(err) == service.KindForbidden {
			_ = h.events.LogAuth(r.Context(), model.EventLevelWarning, "Denied: "+event, middleware.GetUserIDPtr(r),
				middleware.ClientIP(r), map[string]any{"target_id": id})
		}
		respondError(w, r, h.renderer, redirectUsers, err, op)
		return
	}
	_ = h.events.LogAuth(r.Context(), model.EventLevelInfo, event, middleware.GetUserIDPtr(r),
		middleware.ClientIP(r), map[string]any{"target_id": id})
	respondOK(w, r, h.renderer, redirectUsers, message)
}

// Approve handles POST /admin/users/{id}/approve.
func (h *UsersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "approving account", "Account approved", func(actor *model.Account, id int64) (string, error) {
		acc, err := h.accounts.Approve(r.Context(), actor, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s can now sign in", acc.Email), nil
	})
}

// Reject handles POST /admin/users/{id}/reject.
func (h *UsersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "rejecting account", "Account rejected", func(actor *model.Account, id int64) (string, error) {
		return "Registration rejected", h.accounts.Reject(r.Context(), actor, id)
	})
}

// Deactivate handles POST /admin/users/{id}/deactivate.
func (h *UsersHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, "deactivating account", "Account deactivated", func(actor *model.Account, id int64) (string, error) {
		return "Account deactivated", h.accounts.Deactivate(r.Context(), actor, id)
	})
}

// ChangeRole handles POST /admin/users/{id}/role.
func (h *UsersHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	role := r.FormValue("role")
	h.accountAction(w, r, "changing role", "Account role changed", func(actor *model.Account, id int64) (string, error) {
		if err := h.accounts.ChangeRole(r.Context(), actor, id, role); err != nil {
			return "", err
		}
		return "Role changed to " + role, nil
	})
}
