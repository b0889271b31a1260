// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
)

// SubscriptionsPerPage is the admin subscription list page size.
const SubscriptionsPerPage = 50

// SubscriptionStore is the persistence used by Subscriptions.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, email string, at time.Time) (model.Subscription, error)
	GetSubscription(ctx context.Context, id int64) (model.Subscription, error)
	GetSubscriptionByEmail(ctx context.Context, email string) (model.Subscription, error)
	SetSubscriptionActive(ctx context.Context, id int64, active bool, at time.Time) (model.Subscription, error)
	DeleteSubscription(ctx context.Context, id int64) (int64, error)
	ListSubscriptions(ctx context.Context, f store.SubscriptionFilter, limit, offset int64) ([]model.Subscription, error)
	CountSubscriptions(ctx context.Context, f store.SubscriptionFilter) (int64, error)
	GetSubscriptionStats(ctx context.Context, monthStart time.Time) (model.SubscriptionStats, error)
}

// Subscriptions manages the newsletter list.
type Subscriptions struct {
	store    SubscriptionStore
	notifier Notifier
	now      Clock
}

// NewSubscriptions creates the subscription service. A nil notifier
// disables welcome emails.
func NewSubscriptions(s SubscriptionStore, notifier Notifier) *Subscriptions {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Subscriptions{store: s, notifier: notifier, now: systemClock}
}

// SubscribeResult reports what Subscribe did.
type SubscribeResult struct {
	Subscription model.Subscription
	// Created is false when an inactive record was reactivated.
	Created bool
}

// Subscribe adds email to the list. An active subscription yields
// ErrAlreadySubscribed; an inactive one is reactivated in place. The
// welcome email is queued and never affects the result.
func (s *Subscriptions) Subscribe(ctx context.Context, email string, sendWelcome bool) (*SubscribeResult, error) {
	email = NormalizeEmail(email)
	if !IsValidEmail(email) {
		return nil, Validation("email", "please enter a valid email address")
	}

	now := s.now()
	var res SubscribeResult

	existing, err := s.store.GetSubscriptionByEmail(ctx, email)
	switch {
	case err == nil && existing.IsActive:
		return nil, ErrAlreadySubscribed
	case err == nil:
		sub, err := s.store.SetSubscriptionActive(ctx, existing.ID, true, now)
		if err != nil {
			return nil, Internal("reactivating subscription", err)
		}
		res.Subscription = sub
	case errors.Is(err, sql.ErrNoRows):
		sub, err := s.store.CreateSubscription(ctx, email, now)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return nil, ErrAlreadySubscribed
			}
			return nil, Internal("creating subscription", err)
		}
		res.Subscription = sub
		res.Created = true
	default:
		return nil, Internal("looking up subscription", err)
	}

	if sendWelcome {
		s.notifier.Welcome(email)
	}
	return &res, nil
}

// Toggle flips subscription id between active and inactive.
func (s *Subscriptions) Toggle(ctx context.Context, id int64) (*model.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, lookupErr("subscription", "loading subscription", err)
	}
	updated, err := s.store.SetSubscriptionActive(ctx, id, !sub.IsActive, s.now())
	if err != nil {
		return nil, Internal("toggling subscription", err)
	}
	return &updated, nil
}

// Delete removes subscription id.
func (s *Subscriptions) Delete(ctx context.Context, id int64) error {
	n, err := s.store.DeleteSubscription(ctx, id)
	if err != nil {
		return Internal("deleting subscription", err)
	}
	if n == 0 {
		return NotFound("subscription")
	}
	return nil
}

// List returns one page of subscriptions matching f.
func (s *Subscriptions) List(ctx context.Context, f store.SubscriptionFilter, page int) (Page[model.Subscription], error) {
	page, limit, offset := pageBounds(page, SubscriptionsPerPage)
	items, err := s.store.ListSubscriptions(ctx, f, limit, offset)
	if err != nil {
		return Page[model.Subscription]{}, Internal("listing subscriptions", err)
	}
	total, err := s.store.CountSubscriptions(ctx, f)
	if err != nil {
		return Page[model.Subscription]{}, Internal("counting subscriptions", err)
	}
	return Page[model.Subscription]{Items: items, Total: total, Page: page, PerPage: SubscriptionsPerPage}, nil
}

// Stats summarizes the list. "New this month" counts from the first day of
// the current calendar month.
func (s *Subscriptions) Stats(ctx context.Context) (model.SubscriptionStats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	stats, err := s.store.GetSubscriptionStats(ctx, monthStart)
	if err != nil {
		return model.SubscriptionStats{}, Internal("loading subscription stats", err)
	}
	return stats, nil
}
