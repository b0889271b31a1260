// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
)

// Account list filters.
const (
	AccountFilterAll     = "all"
	AccountFilterPending = "pending"
	AccountFilterActive  = "active"
)

const accountColumns = `id, email, name, password_hash, role, is_active, is_main_admin,
	approved_by, approved_at, last_login_at, created_at, updated_at`

func scanAccount(row rowScanner) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role, &a.IsActive, &a.IsMainAdmin,
		&a.ApprovedBy, &a.ApprovedAt, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAccountParams holds the columns of a new account.
type CreateAccountParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	IsMainAdmin  bool
}

// CreateAccount inserts an account and returns it.
func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (model.Account, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO accounts
		(email, name, password_hash, role, is_active, is_main_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Email, arg.Name, arg.PasswordHash, arg.Role,
		boolToInt(arg.IsActive), boolToInt(arg.IsMainAdmin), now, now)
	if err != nil {
		return model.Account{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Account{}, err
	}
	return q.GetAccount(ctx, id)
}

// GetAccount returns the account with id.
func (q *Queries) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

// GetAccountByEmail returns the account with email, compared case-insensitively.
func (q *Queries) GetAccountByEmail(ctx context.Context, email string) (model.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email))
}

// GetMainAdmin returns the main admin account.
func (q *Queries) GetMainAdmin(ctx context.Context) (model.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_main_admin = 1`))
}

// UpdateLastLogin records a successful login.
func (q *Queries) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET last_login_at = ?, updated_at = ? WHERE id = ?`, at, at, id)
	return err
}

// UpdatePasswordHash replaces an account's credential.
func (q *Queries) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, q.now(), id)
	return err
}

// ApproveAccount activates an account and records who approved it.
// It returns the number of rows changed.
func (q *Queries) ApproveAccount(ctx context.Context, id, approverID int64, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE accounts
		SET is_active = 1, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ?`, approverID, at, at, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// DeactivateAccount marks an account inactive. The main admin row is never matched.
func (q *Queries) DeactivateAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE accounts SET is_active = 0, updated_at = ?
		WHERE id = ? AND is_main_admin = 0`, q.now(), id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// DeleteAccount removes an account. The main admin row is never matched.
func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND is_main_admin = 0`, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// UpdateAccountRole changes an account's role. The main admin row is never matched.
func (q *Queries) UpdateAccountRole(ctx context.Context, id int64, role string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE accounts SET role = ?, updated_at = ?
		WHERE id = ? AND is_main_admin = 0`, role, q.now(), id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func accountFilterClause(filter string) string {
	switch filter {
	case AccountFilterPending:
		return ` WHERE is_active = 0 AND approved_at IS NULL`
	case AccountFilterActive:
		return ` WHERE is_active = 1`
	default:
		return ``
	}
}

// ListAccounts returns accounts matching filter, newest first.
func (q *Queries) ListAccounts(ctx context.Context, filter string, limit, offset int64) ([]model.Account, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts`+
		accountFilterClause(filter)+` ORDER BY is_main_admin DESC, created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// CountAccounts counts accounts matching filter.
func (q *Queries) CountAccounts(ctx context.Context, filter string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+accountFilterClause(filter)).Scan(&n)
	return n, err
}

// AccountExists reports whether any account has email.
func (q *Queries) AccountExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE email = ?`, email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
