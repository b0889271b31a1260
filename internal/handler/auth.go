// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/service"
)

const redirectAdmin = "/admin"

// AuthHandler handles login, logout and self-service registration.
type AuthHandler struct {
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	accounts        *service.Accounts
	events          *service.Events
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(renderer *render.Renderer, sm *scs.SessionManager, accounts *service.Accounts, events *service.Events, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		renderer:        renderer,
		sessionManager:  sm,
		accounts:        accounts,
		events:          events,
		loginProtection: lp,
	}
}

// signedIn reports whether the session already belongs to an active account.
func (h *AuthHandler) signedIn(r *http.Request) bool {
	id := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)
	if id == 0 {
		return false
	}
	_, err := h.accounts.Resolve(r.Context(), id)
	return err == nil
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}
	h.renderer.MustRender(w, r, "auth/login", render.TemplateData{Title: "Sign in"})
}

// loginFailed answers a rejected login without revealing which check failed.
func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, status int, email, message string) {
	if middleware.WantsJSON(r) {
		writeJSONError(w, status, message)
		return
	}
	h.renderer.MustRenderStatus(w, r, status, "auth/login", render.TemplateData{
		Title:     "Sign in",
		Form:      map[string]string{"email": email},
		Flash:     message,
		FlashType: render.FlashError,
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r, http.StatusBadRequest, "", "Invalid form data")
		return
	}

	email := service.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.loginFailed(w, r, http.StatusBadRequest, email, "Email and password are required")
		return
	}

	ctx := r.Context()
	clientIP := middleware.ClientIP(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(ctx, email); locked {
			_ = h.events.LogAuth(ctx, model.EventLevelWarning, "Login attempt on locked account", nil, clientIP, map[string]any{"email": email})
			h.loginFailed(w, r, http.StatusTooManyRequests, email,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	acc, err := h.accounts.Login(ctx, email, password)
	if err != nil {
		if service.KindOf(err) != service.KindUnauthenticated {
			logServiceError(r, err, "login failed")
			h.loginFailed(w, r, http.StatusInternalServerError, email, service.PublicMessage(err))
			return
		}

		_ = h.events.LogAuth(ctx, model.EventLevelWarning, "Login failed", nil, clientIP, map[string]any{"email": email})
		message := service.PublicMessage(err)
		if h.loginProtection != nil {
			if locked, d := h.loginProtection.RecordFailedAttempt(ctx, email); locked {
				_ = h.events.LogAuth(ctx, model.EventLevelWarning, "Account locked due to failed attempts", nil, clientIP,
					map[string]any{"email": email, "duration": d.String()})
				h.loginFailed(w, r, http.StatusTooManyRequests, email,
					fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(d)))
				return
			}
			if remaining := h.loginProtection.GetRemainingAttempts(ctx, email); remaining > 0 && remaining <= 3 {
				message = fmt.Sprintf("%s. %d attempt(s) remaining.", capitalize(message), remaining)
			}
		}
		h.loginFailed(w, r, http.StatusUnauthorized, email, capitalize(message))
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(ctx, email)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		slog.Error("session renewal error", "error", err)
		h.loginFailed(w, r, http.StatusInternalServerError, email, service.PublicMessage(err))
		return
	}
	h.sessionManager.Put(ctx, middleware.SessionKeyUserID, acc.ID)

	slog.Info("user logged in", "user_id", acc.ID, "email", acc.Email)
	_ = h.events.LogAuth(ctx, model.EventLevelInfo, "User logged in", &acc.ID, clientIP, map[string]any{"email": acc.Email})

	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, http.StatusOK, "Welcome back, "+acc.Name, nil)
		return
	}
	flashSuccess(w, r, h.renderer, redirectAdmin, "Welcome back, "+acc.Name)
}

// Logout destroys the session. It always ends on the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDPtr(r)
	if userID == nil {
		if id := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID); id != 0 {
			userID = &id
		}
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}
	if userID != nil {
		slog.Info("user logged out", "user_id", *userID)
		_ = h.events.LogAuth(r.Context(), model.EventLevelInfo, "User logged out", userID, middleware.ClientIP(r), nil)
	}

	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, http.StatusOK, "Signed out", nil)
		return
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

var registerFields = []string{"name", "email"}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}
	h.renderer.MustRender(w, r, "auth/register", render.TemplateData{Title: "Request access"})
}

// Register creates a pending account. The visitor is not signed in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, "/admin/register", "Invalid form data")
		return
	}

	acc, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:            r.FormValue("name"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	})
	if err != nil {
		logServiceError(r, err, "registration failed")
		status := statusFor(service.KindOf(err))
		if middleware.WantsJSON(r) {
			writeJSONError(w, status, service.PublicMessage(err))
			return
		}
		h.renderer.MustRenderStatus(w, r, status, "auth/register", render.TemplateData{
			Title:     "Request access",
			Form:      formValues(r, registerFields...),
			Errors:    service.FieldErrors(err),
			Flash:     service.PublicMessage(err),
			FlashType: render.FlashError,
		})
		return
	}

	_ = h.events.LogAuth(r.Context(), model.EventLevelInfo, "Account registered", &acc.ID, middleware.ClientIP(r),
		map[string]any{"email": acc.Email})

	const msg = "Registration received. An administrator must approve your account before you can sign in."
	if middleware.WantsJSON(r) {
		writeJSONSuccess(w, http.StatusCreated, msg, nil)
		return
	}
	flashSuccess(w, r, h.renderer, middleware.LoginPath, msg)
}

// formatDuration renders a lockout duration for people.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()+0.5))
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
