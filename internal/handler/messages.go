// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
)

const redirectMessages = "/admin/messages"

var messageFilters = []string{
	model.MessageFilterAll,
	model.MessageFilterUnread,
	model.MessageFilterRead,
	model.MessageFilterArchived,
}

// MessagesHandler handles the contact inbox.
type MessagesHandler struct {
	renderer *render.Renderer
	messages *service.Messages
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(renderer *render.Renderer, messages *service.Messages) *MessagesHandler {
	return &MessagesHandler{renderer: renderer, messages: messages}
}

type messagesListData struct {
	Filter     string
	Filters    []string
	Unread     int64
	Page       service.Page[model.Message]
	Pagination render.Pagination
}

// List handles GET /admin/messages.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := q.Get("filter")
	if !slices.Contains(messageFilters, filter) {
		filter = model.MessageFilterAll
	}

	page, err := h.messages.List(r.Context(), filter, pageParam(r))
	if err != nil {
		errorPage(w, r, h.renderer, err, "listing messages")
		return
	}
	unread, err := h.messages.UnreadCount(r.Context())
	if err != nil {
		errorPage(w, r, h.renderer, err, "counting unread messages")
		return
	}

	h.renderer.MustRender(w, r, "admin/messages", render.TemplateData{
		Title: "Messages",
		Data: messagesListData{
			Filter:     filter,
			Filters:    messageFilters,
			Unread:     unread,
			Page:       page,
			Pagination: render.NewPagination(page.Page, page.TotalPages(), page.Total, redirectMessages, q),
		},
	})
}

// View handles GET /admin/messages/{id}. Opening a message marks it read.
func (h *MessagesHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		errorPage(w, r, h.renderer, err, "parsing message id")
		return
	}
	msg, err := h.messages.Open(r.Context(), middleware.GetUser(r), id)
	if err != nil {
		errorPage(w, r, h.renderer, err, "opening message")
		return
	}
	h.renderer.MustRender(w, r, "admin/message", render.TemplateData{Title: msg.Subject, Data: msg})
}

// mutate runs fn on the {id} message and answers with message on success.
func (h *MessagesHandler) mutate(w http.ResponseWriter, r *http.Request, op, message string, fn func(ctx context.Context, id int64) error) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, h.renderer, redirectMessages, err, "parsing message id")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		respondError(w, r, h.renderer, redirectMessages, err, op)
		return
	}
	respondOK(w, r, h.renderer, redirectMessages, message)
}

// MarkRead handles POST /admin/messages/{id}/read.
func (h *MessagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "marking message read", "Message marked as read", func(ctx context.Context, id int64) error {
		_, err := h.messages.MarkRead(ctx, middleware.GetUser(r), id)
		return err
	})
}

// MarkUnread handles POST /admin/messages/{id}/unread.
func (h *MessagesHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "marking message unread", "Message marked as unread", h.messages.MarkUnread)
}

// Archive handles POST /admin/messages/{id}/archive.
func (h *MessagesHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "archiving message", "Message archived", h.messages.Archive)
}

// Delete handles POST /admin/messages/{id}/delete.
func (h *MessagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "deleting message", "Message deleted", h.messages.Delete)
}

// MarkAllRead handles POST /admin/messages/mark-all-read.
func (h *MessagesHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.messages.MarkAllRead(r.Context(), middleware.GetUser(r))
	if err != nil {
		respondError(w, r, h.renderer, redirectMessages, err, "marking all messages read")
		return
	}
	respondOK(w, r, h.renderer, redirectMessages, fmt.Sprintf("%d message(s) marked as read", n))
}

// UnreadCount handles GET /admin/messages/unread-count.
func (h *MessagesHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.messages.UnreadCount(r.Context())
	if err != nil {
		logServiceError(r, err, "counting unread messages")
		writeJSONError(w, statusFor(service.KindOf(err)), service.PublicMessage(err))
		return
	}
	writeJSONSuccess(w, http.StatusOK, "", map[string]int64{"count": n})
}
