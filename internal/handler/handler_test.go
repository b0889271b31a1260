// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/session"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/testutil"
	"github.com/olegiv/newsdesk/web"
)

// fastHash keeps argon2id cheap in tests.
var fastHash = auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type env struct {
	db       *sql.DB
	q        *store.Queries
	sm       *scs.SessionManager
	renderer *render.Renderer

	accounts      *service.Accounts
	articles      *service.Articles
	categories    *service.Categories
	messages      *service.Messages
	subscriptions *service.Subscriptions
	events        *service.Events
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.TestDB(t)
	q := store.New(db)
	sm := session.New(db, true)

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.TemplatesFS(),
		SessionManager: sm,
		Site:           render.Site{Name: "Newsdesk", URL: "http://localhost:8080"},
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	return &env{
		db:            db,
		q:             q,
		sm:            sm,
		renderer:      renderer,
		accounts:      service.NewAccounts(q, auth.NewHasher(fastHash)),
		articles:      service.NewArticles(q, service.NewSanitizer(), nil),
		categories:    service.NewCategories(q),
		messages:      service.NewMessages(q),
		subscriptions: service.NewSubscriptions(q, nil),
		events:        service.NewEvents(q),
	}
}

// mainAdmin creates the main admin with password "adminpass".
func (e *env) mainAdmin(t *testing.T) *model.Account {
	t.Helper()
	acc, _, err := e.accounts.EnsureMainAdmin(context.Background(), "chief@example.com", "Chief", "adminpass")
	if err != nil {
		t.Fatalf("EnsureMainAdmin: %v", err)
	}
	return acc
}

func (e *env) account(t *testing.T, role string) *model.Account {
	t.Helper()
	acc := testutil.CreateAccount(t, e.q, role, true, false)
	return &acc
}

// call runs h with the given user and route params inside a loaded session.
type call struct {
	method string
	target string
	body   io.Reader
	json   bool
	form   url.Values
	user   *model.Account
	params map[string]string
	header map[string]string
}

func (e *env) serve(t *testing.T, h http.HandlerFunc, c call) *httptest.ResponseRecorder {
	t.Helper()
	if c.method == "" {
		c.method = http.MethodGet
	}
	if c.target == "" {
		c.target = "/"
	}
	body := c.body
	if c.form != nil {
		body = strings.NewReader(c.form.Encode())
	}
	req := httptest.NewRequest(c.method, c.target, body)
	if c.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.json {
		req.Header.Set("X-Requested-With", "fetch")
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}

	rctx := chi.NewRouteContext()
	for k, v := range c.params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if c.user != nil {
		ctx = middleware.WithUser(ctx, c.user)
	}

	rec := httptest.NewRecorder()
	e.sm.LoadAndSave(h).ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

type decodedEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decodedEnvelope {
	t.Helper()
	var out decodedEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding envelope %q: %v", rec.Body.String(), err)
	}
	return out
}

func jsonBody(s string) call {
	return call{method: http.MethodPost, body: strings.NewReader(s), header: map[string]string{"Content-Type": "application/json"}}
}
