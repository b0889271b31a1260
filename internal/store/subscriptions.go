// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"strings"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
)

const subscriptionColumns = `id, email, is_active, subscribed_at, unsubscribed_at, created_at`

func scanSubscription(row rowScanner) (model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(&s.ID, &s.Email, &s.IsActive, &s.SubscribedAt, &s.UnsubscribedAt, &s.CreatedAt)
	return s, err
}

// CreateSubscription inserts an active subscription.
func (q *Queries) CreateSubscription(ctx context.Context, email string, at time.Time) (model.Subscription, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO subscriptions (email, is_active, subscribed_at, created_at)
		VALUES (?, 1, ?, ?)`, email, at, at)
	if err != nil {
		return model.Subscription{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Subscription{}, err
	}
	return q.GetSubscription(ctx, id)
}

// GetSubscription returns the subscription with id.
func (q *Queries) GetSubscription(ctx context.Context, id int64) (model.Subscription, error) {
	return scanSubscription(q.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id))
}

// GetSubscriptionByEmail returns the subscription for email, compared case-insensitively.
func (q *Queries) GetSubscriptionByEmail(ctx context.Context, email string) (model.Subscription, error) {
	return scanSubscription(q.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE email = ?`, email))
}

// SetSubscriptionActive activates or deactivates a subscription. Activation
// sets subscribed_at and clears unsubscribed_at; deactivation does the reverse.
func (q *Queries) SetSubscriptionActive(ctx context.Context, id int64, active bool, at time.Time) (model.Subscription, error) {
	var query string
	if active {
		query = `UPDATE subscriptions SET is_active = 1, subscribed_at = ?, unsubscribed_at = NULL WHERE id = ?`
	} else {
		query = `UPDATE subscriptions SET is_active = 0, unsubscribed_at = ?, subscribed_at = NULL WHERE id = ?`
	}
	if _, err := q.db.ExecContext(ctx, query, at, id); err != nil {
		return model.Subscription{}, err
	}
	return q.GetSubscription(ctx, id)
}

// DeleteSubscription removes a subscription.
func (q *Queries) DeleteSubscription(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// SubscriptionFilter narrows the admin subscription list.
type SubscriptionFilter struct {
	Search string
	// Status is "active", "inactive" or empty for both.
	Status string
}

func (f SubscriptionFilter) where() (string, []any) {
	var conds []string
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, `email LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(s))
	}
	switch f.Status {
	case "active":
		conds = append(conds, "is_active = 1")
	case "inactive":
		conds = append(conds, "is_active = 0")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListSubscriptions returns subscriptions matching f, newest first.
func (q *Queries) ListSubscriptions(ctx context.Context, f SubscriptionFilter, limit, offset int64) ([]model.Subscription, error) {
	where, args := f.where()
	rows, err := q.db.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions`+where+
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// CountSubscriptions counts subscriptions matching f.
func (q *Queries) CountSubscriptions(ctx context.Context, f SubscriptionFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`+where, args...).Scan(&n)
	return n, err
}

// GetSubscriptionStats summarizes the list; NewThisMonth counts records created since monthStart.
func (q *Queries) GetSubscriptionStats(ctx context.Context, monthStart time.Time) (model.SubscriptionStats, error) {
	var s model.SubscriptionStats
	err := q.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(is_active), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM subscriptions`, monthStart.UTC()).Scan(&s.Total, &s.Active, &s.NewThisMonth)
	s.Inactive = s.Total - s.Active
	return s, err
}

// ListActiveSubscriberEmails returns every active subscriber address.
func (q *Queries) ListActiveSubscriberEmails(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT email FROM subscriptions WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
