// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "github.com/olegiv/newsdesk/internal/model"

// Authorize checks that account holds one of roles.
// It has no side effects and performs no I/O.
func Authorize(account *model.Account, roles ...string) error {
	if account == nil {
		return ErrUnauthenticated
	}
	for _, r := range roles {
		if account.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

func requireMainAdmin(actor *model.Account) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !actor.IsMainAdmin {
		return ErrForbidden
	}
	return nil
}
