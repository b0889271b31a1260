// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// SessionKeyUserID is the session key holding the logged-in account id.
const SessionKeyUserID = "user_id"

// LoginPath is where unauthenticated HTML requests are sent.
const LoginPath = "/admin/login"

// AccountResolver loads the active account behind a session.
type AccountResolver interface {
	Resolve(ctx context.Context, id int64) (*model.Account, error)
}

// SessionGate maps a request's session to an authenticated account.
// It never writes to the session.
type SessionGate struct {
	sm       *scs.SessionManager
	accounts AccountResolver
}

// NewSessionGate creates a SessionGate.
func NewSessionGate(sm *scs.SessionManager, accounts AccountResolver) *SessionGate {
	return &SessionGate{sm: sm, accounts: accounts}
}

// Authenticate returns the active account for the session in ctx, or
// service.ErrUnauthenticated when there is none.
func (g *SessionGate) Authenticate(ctx context.Context) (*model.Account, error) {
	id := g.sm.GetInt64(ctx, SessionKeyUserID)
	if id == 0 {
		return nil, service.ErrUnauthenticated
	}
	return g.accounts.Resolve(ctx, id)
}

// AuthenticateOptional is Authenticate for pages that also serve anonymous
// visitors. It returns nil instead of failing.
func (g *SessionGate) AuthenticateOptional(ctx context.Context) *model.Account {
	acc, err := g.Authenticate(ctx)
	if err != nil {
		if service.KindOf(err) == service.KindInternal {
			slog.Error("failed to resolve session account", "error", err)
		}
		return nil
	}
	return acc
}

// RequireAuth rejects requests without an active account. HTML requests are
// redirected to the login page; JSON requests get a 401 envelope.
func (g *SessionGate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, err := g.Authenticate(r.Context())
		if err != nil {
			if service.KindOf(err) == service.KindInternal {
				slog.Error("failed to resolve session account", "error", err, "path", r.URL.Path)
				writeError(w, r, http.StatusInternalServerError, service.PublicMessage(err))
				return
			}
			if WantsJSON(r) {
				writeJSON(w, http.StatusUnauthorized, false, service.ErrUnauthenticated.Message)
				return
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), acc)))
	})
}

// OptionalAuth attaches the account to the context when there is one.
func (g *SessionGate) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if acc := g.AuthenticateOptional(r.Context()); acc != nil {
			r = r.WithContext(WithUser(r.Context(), acc))
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns ctx carrying acc.
func WithUser(ctx context.Context, acc *model.Account) context.Context {
	return context.WithValue(ctx, ContextKeyUser, acc)
}

// GetUser retrieves the current account from the request context.
// Returns nil if no account is in context.
func GetUser(r *http.Request) *model.Account {
	acc, _ := r.Context().Value(ContextKeyUser).(*model.Account)
	return acc
}

// GetUserID returns the current account's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if acc := GetUser(r); acc != nil {
		return acc.ID
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current account's ID, or nil.
// Useful for optional user ID parameters in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if acc := GetUser(r); acc != nil {
		id := acc.ID
		return &id
	}
	return nil
}

// RequireRole allows the request through only when the account in context
// holds one of roles. Must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return RequireRoleWithEventLog(nil, roles...)
}

// RequireRoleWithEventLog is RequireRole that also records denials in the
// event log.
func RequireRoleWithEventLog(events *service.Events, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc := GetUser(r)
			err := service.Authorize(acc, roles...)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			if acc == nil {
				if WantsJSON(r) {
					writeJSON(w, http.StatusUnauthorized, false, service.PublicMessage(err))
					return
				}
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			slog.Warn("access denied",
				"status", http.StatusForbidden,
				"method", r.Method,
				"path", r.URL.Path,
				"user_id", acc.ID,
				"user_role", acc.Role,
				"required_roles", strings.Join(roles, ","),
				"remote_addr", r.RemoteAddr,
			)
			if events != nil {
				userID := acc.ID
				_ = events.LogAuth(r.Context(), model.EventLevelWarning, "Access denied: insufficient permissions",
					&userID, ClientIP(r), map[string]any{
						"method":         r.Method,
						"path":           r.URL.Path,
						"user_role":      acc.Role,
						"required_roles": roles,
					})
			}

			writeError(w, r, http.StatusForbidden, service.PublicMessage(err))
		})
	}
}
