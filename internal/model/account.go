// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain entities of the newsroom: accounts,
// articles, categories, contact messages, subscriptions and audit events.
package model

import (
	"database/sql"
	"time"
)

// Account roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// ValidRoles lists every role an account may hold.
var ValidRoles = []string{RoleAdmin, RoleEditor}

// IsValidRole reports whether role is a known account role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Account is a back-office user.
// New accounts start inactive and become usable once the main admin approves them.
type Account struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	Role         string        `json:"role"`
	IsActive     bool          `json:"is_active"`
	IsMainAdmin  bool          `json:"is_main_admin"`
	ApprovedBy   sql.NullInt64 `json:"approved_by,omitempty"`
	ApprovedAt   sql.NullTime  `json:"approved_at,omitempty"`
	LastLoginAt  sql.NullTime  `json:"last_login_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// IsAdmin returns true if the account has the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsPending reports whether the account registered but was never approved.
func (a *Account) IsPending() bool {
	return !a.IsActive && !a.ApprovedAt.Valid
}

// StatusLabel returns pending, active or inactive.
func (a *Account) StatusLabel() string {
	switch {
	case a.IsActive:
		return "active"
	case a.IsPending():
		return "pending"
	default:
		return "inactive"
	}
}
