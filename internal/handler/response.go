// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP handlers for the public site, the
// back office and the public JSON endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/util"
)

// statusFor maps a failure kind to its HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// envelope is the JSON body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONSuccess writes a success envelope.
func writeJSONSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeJSONError writes a failure envelope.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// logServiceError logs internal failures. Expected failures are not logged
// here; the services record what matters to the audit log.
func logServiceError(r *http.Request, err error, op string) {
	if service.KindOf(err) == service.KindInternal {
		slog.Error(op, "error", err, "method", r.Method, "path", r.URL.Path, "user_id", middleware.GetUserID(r))
	}
}

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// respondOK answers a successful admin action with the JSON envelope or a
// flash and redirect.
func respondOK(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL, message string) {
	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, http.StatusOK, message, nil)
		return
	}
	flashSuccess(w, r, renderer, redirectURL, message)
}

// respondError answers a failed admin action the same way as respondOK.
func respondError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL string, err error, op string) {
	logServiceError(r, err, op)
	if middleware.WantsJSON(r) {
		writeJSONError(w, statusFor(service.KindOf(err)), service.PublicMessage(err))
		return
	}
	flashError(w, r, renderer, redirectURL, service.PublicMessage(err))
}

// errorPage renders the public error page for a failed page load.
func errorPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, err error, op string) {
	logServiceError(r, err, op)
	status := statusFor(service.KindOf(err))
	if middleware.WantsJSON(r) {
		writeJSONError(w, status, service.PublicMessage(err))
		return
	}
	renderStatusPage(w, r, renderer, status, service.PublicMessage(err))
}

type errorData struct {
	Status  int
	Message string
}

func renderStatusPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, status int, message string) {
	renderer.MustRenderStatus(w, r, status, "public/error", render.TemplateData{
		Title: http.StatusText(status),
		Data:  errorData{Status: status, Message: message},
	})
}

// parseID reads the {id} route parameter.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.NotFound("record")
	}
	return id, nil
}

// slugParam reads the {slug} route parameter. Strings that could never be
// generated as a slug are rejected without touching the database.
func slugParam(r *http.Request) (string, bool) {
	slug := chi.URLParam(r, "slug")
	return slug, util.IsValidSlug(slug)
}

// pageParam reads the page query parameter, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// formValues copies the named form fields into a map for re-rendering.
func formValues(r *http.Request, keys ...string) map[string]string {
	form := make(map[string]string, len(keys))
	for _, k := range keys {
		form[k] = r.FormValue(k)
	}
	return form
}

// checkbox reports whether a checkbox field was submitted checked.
func checkbox(r *http.Request, name string) bool {
	switch r.FormValue(name) {
	case "1", "on", "true":
		return true
	}
	return false
}

// RateLimited answers requests rejected by a rate limiter.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Too many requests. Please try again later."
	if middleware.WantsJSON(r) {
		writeJSONError(w, http.StatusTooManyRequests, msg)
		return
	}
	http.Error(w, msg, http.StatusTooManyRequests)
}
