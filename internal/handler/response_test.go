// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk/internal/service"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind service.Kind
		want int
	}{
		{service.KindValidation, http.StatusBadRequest},
		{service.KindUnauthenticated, http.StatusUnauthorized},
		{service.KindForbidden, http.StatusForbidden},
		{service.KindNotFound, http.StatusNotFound},
		{service.KindConflict, http.StatusConflict},
		{service.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := statusFor(tt.kind); got != tt.want {
				t.Errorf("statusFor(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		param  string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.param)
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

			id, err := parseID(r)
			if tt.wantOK {
				if err != nil || id != tt.want {
					t.Fatalf("parseID = %d, %v; want %d", id, err, tt.want)
				}
				return
			}
			if service.KindOf(err) != service.KindNotFound {
				t.Fatalf("parseID error kind = %s, want not_found", service.KindOf(err))
			}
		})
	}
}

func TestPageParam(t *testing.T) {
	tests := map[string]int{"": 1, "?page=3": 3, "?page=0": 1, "?page=x": 1}
	for query, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/admin/articles"+query, nil)
		if got := pageParam(r); got != want {
			t.Errorf("pageParam(%q) = %d, want %d", query, got, want)
		}
	}
}

func TestCheckbox(t *testing.T) {
	tests := map[string]bool{"1": true, "on": true, "true": true, "": false, "0": false, "off": false}
	for value, want := range tests {
		form := url.Values{"featured": {value}}
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if got := checkbox(r, "featured"); got != want {
			t.Errorf("checkbox(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimited(rec, httptest.NewRequest(http.MethodPost, "/api/subscribe", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	env := decode(t, rec)
	if env.Success || env.Message == "" {
		t.Errorf("unexpected envelope %+v", env)
	}

	rec = httptest.NewRecorder()
	RateLimited(rec, httptest.NewRequest(http.MethodPost, "/admin/login", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); strings.Contains(ct, "json") {
		t.Errorf("HTML client got content type %q", ct)
	}
}
