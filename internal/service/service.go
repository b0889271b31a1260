// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the newsroom workflows: account registration
// and approval, login, the article publishing state machine, category
// integrity, the contact inbox and newsletter subscriptions. Operations
// return *Error values classified by Kind and never leak store errors.
package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
)

// MaxEmailLength is the longest accepted email address.
const MaxEmailLength = 254

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether email looks like a deliverable address.
func IsValidEmail(email string) bool {
	return len(email) <= MaxEmailLength && emailRegex.MatchString(email)
}

// Clock returns the current time. Services store times in UTC.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items   []T
	Total   int64
	Page    int
	PerPage int
}

// TotalPages returns the number of pages needed for Total items.
func (p Page[T]) TotalPages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages() }

// pageBounds clamps page to at least 1 and returns the SQL limit and offset.
func pageBounds(page, perPage int) (int, int64, int64) {
	if page < 1 {
		page = 1
	}
	return page, int64(perPage), int64((page - 1) * perPage)
}

// Notifier receives fire-and-forget notification requests. Implementations
// must return immediately; delivery happens in the background.
type Notifier interface {
	Welcome(email string)
	ArticlePublished(article model.Article)
}

type nopNotifier struct{}

func (nopNotifier) Welcome(string)                 {}
func (nopNotifier) ArticlePublished(model.Article) {}
