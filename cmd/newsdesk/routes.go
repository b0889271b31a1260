// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/olegiv/newsdesk/internal/config"
	"github.com/olegiv/newsdesk/internal/handler"
	"github.com/olegiv/newsdesk/internal/middleware"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/render"
	"github.com/olegiv/newsdesk/internal/seo"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/upload"
	"github.com/olegiv/newsdesk/web"
)

// Rate limits per client IP.
const (
	authRateLimit   = 5
	publicRateLimit = 100
	rateLimitWindow = 15 * time.Minute
)

type services struct {
	accounts      *service.Accounts
	events        *service.Events
	articles      *service.Articles
	categories    *service.Categories
	messages      *service.Messages
	subscriptions *service.Subscriptions
}

func newRouter(cfg *config.Config, db *sql.DB, sm *scs.SessionManager, renderer *render.Renderer,
	uploads *upload.Store, lp *middleware.LoginProtection, svc services) http.Handler {
	isDev := cfg.IsDevelopment()
	gate := middleware.NewSessionGate(sm, svc.accounts)

	authHandler := handler.NewAuthHandler(renderer, sm, svc.accounts, svc.events, lp)
	dashboardHandler := handler.NewDashboardHandler(renderer, svc.accounts, svc.articles, svc.categories, svc.messages, svc.subscriptions)
	articlesHandler := handler.NewArticlesHandler(renderer, svc.articles, svc.categories, uploads, svc.events)
	categoriesHandler := handler.NewCategoriesHandler(renderer, svc.categories, svc.events)
	usersHandler := handler.NewUsersHandler(renderer, svc.accounts, svc.events)
	messagesHandler := handler.NewMessagesHandler(renderer, svc.messages)
	subscriptionsHandler := handler.NewSubscriptionsHandler(renderer, svc.subscriptions, svc.events)
	eventsHandler := handler.NewEventsHandler(renderer, svc.events)
	healthHandler := handler.NewHealthHandler(db, cfg.UploadsDir)
	apiHandler := handler.NewAPIHandler(svc.messages, svc.subscriptions)
	publicHandler := handler.NewPublicHandler(renderer, svc.articles, svc.categories, seo.SiteConfig{
		SiteName: cfg.SiteName,
		SiteURL:  cfg.SiteURL,
	}, isDev)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(cfg.TrustedProxies))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(isDev)))
	r.Use(middleware.RequestPath)
	r.Use(sm.LoadAndSave)
	r.Use(middleware.SkipCSRF("/api/"))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(csrfKey(cfg.SessionSecret), cfg.SiteURL, isDev)))
	slog.Info("CSRF protection initialized", "secure", !isDev)

	authLimiter := httprate.Limit(authRateLimit, rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(handler.RateLimited),
	)

	// Public site.
	r.Group(func(r chi.Router) {
		r.Use(gate.OptionalAuth)
		r.Get("/", publicHandler.Home)
		r.Get("/news", publicHandler.News)
		r.Get("/article/{slug}", publicHandler.Article)
		r.Get("/category/{slug}", publicHandler.Category)
		r.Get("/sitemap.xml", publicHandler.Sitemap)
		r.Get("/robots.txt", publicHandler.Robots)
		r.Get("/health", healthHandler.Health)
	})

	// Sign in, sign up and sign out.
	r.Group(func(r chi.Router) {
		r.Use(gate.OptionalAuth)
		r.Get(middleware.LoginPath, authHandler.LoginForm)
		r.Get("/admin/register", authHandler.RegisterForm)
		r.With(authLimiter, lp.Middleware()).Post(middleware.LoginPath, authHandler.Login)
		r.With(authLimiter).Post("/admin/register", authHandler.Register)
		r.Post("/admin/logout", authHandler.Logout)
	})

	// Back office.
	r.Route("/admin", func(r chi.Router) {
		r.Use(gate.RequireAuth)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoleWithEventLog(svc.events, model.RoleAdmin, model.RoleEditor))

			r.Get("/", dashboardHandler.Dashboard)

			r.Get("/articles", articlesHandler.List)
			r.Get("/articles/new", articlesHandler.New)
			r.Post("/articles", articlesHandler.Create)
			r.Get("/articles/{id}/edit", articlesHandler.Edit)
			r.Post("/articles/{id}", articlesHandler.Update)
			r.Post("/articles/{id}/delete", articlesHandler.Delete)

			r.Get("/categories", categoriesHandler.List)
			r.Get("/categories/new", categoriesHandler.New)
			r.Post("/categories", categoriesHandler.Create)
			r.Get("/categories/{id}/edit", categoriesHandler.Edit)
			r.Post("/categories/{id}", categoriesHandler.Update)
			r.Post("/categories/{id}/delete", categoriesHandler.Delete)

			r.Get("/messages", messagesHandler.List)
			r.Get("/messages/unread-count", messagesHandler.UnreadCount)
			r.Post("/messages/mark-all-read", messagesHandler.MarkAllRead)
			r.Get("/messages/{id}", messagesHandler.View)
			r.Post("/messages/{id}/read", messagesHandler.MarkRead)
			r.Post("/messages/{id}/unread", messagesHandler.MarkUnread)
			r.Post("/messages/{id}/archive", messagesHandler.Archive)
			r.Post("/messages/{id}/delete", messagesHandler.Delete)

			r.Get("/events", eventsHandler.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoleWithEventLog(svc.events, model.RoleAdmin))

			r.Get("/users", usersHandler.List)
			r.Post("/users/{id}/approve", usersHandler.Approve)
			r.Post("/users/{id}/reject", usersHandler.Reject)
			r.Post("/users/{id}/deactivate", usersHandler.Deactivate)
			r.Post("/users/{id}/role", usersHandler.ChangeRole)

			r.Get("/subscriptions", subscriptionsHandler.List)
			r.Post("/subscriptions", subscriptionsHandler.Create)
			r.Post("/subscriptions/{id}/toggle", subscriptionsHandler.Toggle)
			r.Post("/subscriptions/{id}/delete", subscriptionsHandler.Delete)
		})
	})

	// Public JSON endpoints behind the footer forms.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: apiOrigins(cfg),
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Requested-With"},
			MaxAge:         300,
		}))
		r.Use(httprate.Limit(publicRateLimit, rateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(handler.RateLimited),
		))
		r.Post("/contact", apiHandler.Contact)
		r.Post("/subscribe", apiHandler.Subscribe)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS()))))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))

	r.NotFound(publicHandler.NotFound)

	return r
}

// apiOrigins returns the origins allowed to call the public API. The site
// itself is always allowed.
func apiOrigins(cfg *config.Config) []string {
	return append([]string{cfg.SiteURL}, cfg.CORSOrigins...)
}
