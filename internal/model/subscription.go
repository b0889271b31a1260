// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Subscription is a newsletter signup.
// Exactly one of SubscribedAt and UnsubscribedAt is set at any time.
type Subscription struct {
	ID             int64        `json:"id"`
	Email          string       `json:"email"`
	IsActive       bool         `json:"is_active"`
	SubscribedAt   sql.NullTime `json:"subscribed_at,omitempty"`
	UnsubscribedAt sql.NullTime `json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// SubscriptionStats summarizes the subscriber list.
type SubscriptionStats struct {
	Total        int64 `json:"total"`
	Active       int64 `json:"active"`
	Inactive     int64 `json:"inactive"`
	NewThisMonth int64 `json:"new_this_month"`
}
