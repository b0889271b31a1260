// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Message filters used by the admin inbox.
const (
	MessageFilterAll      = "all"
	MessageFilterUnread   = "unread"
	MessageFilterRead     = "read"
	MessageFilterArchived = "archived"
)

// Message is a contact form submission.
// ReadAt and ReadBy are always set or cleared together.
type Message struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Subject    string        `json:"subject"`
	Body       string        `json:"body"`
	IsRead     bool          `json:"is_read"`
	IsArchived bool          `json:"is_archived"`
	ReadAt     sql.NullTime  `json:"read_at,omitempty"`
	ReadBy     sql.NullInt64 `json:"read_by,omitempty"`
	IPAddress  string        `json:"-"`
	UserAgent  string        `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
}
