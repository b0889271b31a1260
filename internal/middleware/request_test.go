// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   bool
	}{
		{"plain form post", "/admin/login", nil, false},
		{"fetch header", "/admin/messages/1/read", map[string]string{"X-Requested-With": "fetch"}, true},
		{"api prefix", "/api/subscribe", nil, true},
		{"accept json", "/admin", map[string]string{"Accept": "application/json, text/plain"}, true},
		{"accept html", "/admin", map[string]string{"Accept": "text/html"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, tt.path, nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := WantsJSON(r); got != tt.want {
				t.Errorf("WantsJSON() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripTrailingSlash(t *testing.T) {
	tests := []struct {
		target   string
		wantCode int
		wantLoc  string
	}{
		{"/", http.StatusOK, ""},
		{"/news", http.StatusOK, ""},
		{"/news/", http.StatusMovedPermanently, "/news"},
		{"/category/world/?page=2", http.StatusMovedPermanently, "/category/world?page=2"},
		{"//evil.example/", http.StatusMovedPermanently, "/evil.example"},
	}

	h := StripTrailingSlash(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		proxies    []string
		remoteAddr string
		want       string
	}{
		{"no proxies configured", nil, "10.0.0.5:1234", "10.0.0.5"},
		{"trusted address", []string{"10.0.0.5"}, "10.0.0.5:1234", "203.0.113.9"},
		{"trusted prefix", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "203.0.113.9"},
		{"untrusted peer", []string{"10.0.0.0/8"}, "192.0.2.1:1234", "192.0.2.1"},
		{"invalid entry ignored", []string{"not-an-ip", "10.0.0.5"}, "10.0.0.5:1234", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.proxies)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			r.Header.Set("X-Forwarded-For", "203.0.113.9")
			h.ServeHTTP(httptest.NewRecorder(), r)
			if got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
