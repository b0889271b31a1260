// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session manager used by the
// session gate.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session settings.
const (
	Lifetime    = 24 * time.Hour
	IdleTimeout = 2 * time.Hour

	devCookieName  = "newsdesk_session"
	prodCookieName = "__Host-session"

	// cleanupInterval is how often sqlite3store purges expired rows.
	cleanupInterval = 30 * time.Minute
)

// New creates a session manager backed by the sessions table in db.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.NewWithCleanupInterval(db, cleanupInterval)

	sm.Lifetime = Lifetime
	sm.IdleTimeout = IdleTimeout
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev

	// __Host- cookies must be Secure with Path=/ and no Domain.
	if isDev {
		sm.Cookie.Name = devCookieName
	} else {
		sm.Cookie.Name = prodCookieName
	}

	return sm
}
