// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/service"
)

// maxAPIBody bounds public JSON request bodies.
const maxAPIBody = 64 << 10

// APIHandler serves the public JSON endpoints behind the site's footer forms.
type APIHandler struct {
	messages      *service.Messages
	subscriptions *service.Subscriptions
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(messages *service.Messages, subscriptions *service.Subscriptions) *APIHandler {
	return &APIHandler{messages: messages, subscriptions: subscriptions}
}

// decodeFields reads the named string fields from a JSON object or a
// regular form post.
func decodeFields(w http.ResponseWriter, r *http.Request, keys ...string) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAPIBody)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, errors.New("invalid JSON body")
		}
		fields := make(map[string]string, len(keys))
		for _, k := range keys {
			switch v := body[k].(type) {
			case string:
				fields[k] = v
			case bool:
				if v {
					fields[k] = "true"
				}
			}
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form data")
	}
	return formValues(r, keys...), nil
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	logServiceError(r, err, op)
	writeJSONError(w, statusFor(service.KindOf(err)), service.PublicMessage(err))
}

// Contact handles POST /api/contact.
func (h *APIHandler) Contact(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r, "name", "email", "subject", "message")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.messages.Submit(r.Context(), service.ContactInput{
		Name:      fields["name"],
		Email:     fields["email"],
		Subject:   fields["subject"],
		Body:      fields["message"],
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}); err != nil {
		h.fail(w, r, err, "saving contact message")
		return
	}
	writeJSONSuccess(w, http.StatusCreated, "Thank you! Your message has been sent.", nil)
}

// Subscribe handles POST /api/subscribe: 201 for a new subscriber, 200 for
// a reactivation and 409 when the address is already subscribed.
func (h *APIHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r, "email")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.subscriptions.Subscribe(r.Context(), fields["email"], true)
	if err != nil {
		h.fail(w, r, err, "subscribing")
		return
	}
	if res.Created {
		writeJSONSuccess(w, http.StatusCreated, "Thanks for subscribing!", nil)
		return
	}
	writeJSONSuccess(w, http.StatusOK, "Welcome back! Your subscription has been reactivated.", nil)
}
