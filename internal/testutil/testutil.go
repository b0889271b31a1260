// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers: a migrated temp-file
// database and fixture builders.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary file-backed database with all migrations applied.
// A file is used instead of :memory: because every pooled connection
// to an in-memory database would see a different, empty database.
// The database is closed when the test finishes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "newsdesk-test.db")
	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

// CreateAccount inserts an account. The password hash is a placeholder that
// never verifies; tests that log in should hash a real password instead.
func CreateAccount(t *testing.T, q *store.Queries, role string, active, mainAdmin bool) model.Account {
	t.Helper()
	n := next()
	a, err := q.CreateAccount(context.Background(), store.CreateAccountParams{
		Email:        fmt.Sprintf("user%d@example.com", n),
		Name:         fmt.Sprintf("User %d", n),
		PasswordHash: "x",
		Role:         role,
		IsActive:     active,
		IsMainAdmin:  mainAdmin,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

// CreateCategory inserts an active category with a unique name.
func CreateCategory(t *testing.T, q *store.Queries, name string) model.Category {
	t.Helper()
	if name == "" {
		name = fmt.Sprintf("Category %d", next())
	}
	c, err := q.CreateCategory(context.Background(), store.CategoryParams{
		Name:     name,
		Slug:     fmt.Sprintf("category-%d", next()),
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	return c
}

// CreateArticle inserts an article in the given status under categoryID.
func CreateArticle(t *testing.T, q *store.Queries, authorID, categoryID int64, status string) model.Article {
	t.Helper()
	n := next()
	params := store.ArticleParams{
		Title:      fmt.Sprintf("Article %d", n),
		Slug:       fmt.Sprintf("article-%d", n),
		Content:    "<p>Body text for testing.</p>",
		CategoryID: categoryID,
		AuthorID:   authorID,
		Status:     status,
		Source:     model.Source{Type: model.SourceOriginal},
	}
	if status == model.ArticleStatusPublished {
		params.PublishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	a, err := q.CreateArticle(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	return a
}
