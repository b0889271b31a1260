// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
)

// EventsPerPage is the admin event log page size.
const EventsPerPage = 50

// EventStore is the persistence used by Events.
type EventStore interface {
	CreateEvent(ctx context.Context, arg store.CreateEventParams) error
	ListEvents(ctx context.Context, f store.EventFilter, limit, offset int64) ([]model.Event, error)
	CountEvents(ctx context.Context, f store.EventFilter) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Events writes the audit trail.
type Events struct {
	store EventStore
	now   Clock
}

// NewEvents creates an Events service.
func NewEvents(s EventStore) *Events {
	return &Events{store: s, now: systemClock}
}

// Log creates a new event log entry.
func (s *Events) Log(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	err := s.store.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		IPAddress: ipAddress,
		Metadata:  metadataJSON,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "category", category, "message", message)
		return err
	}
	return nil
}

// LogAuth logs an authentication event.
func (s *Events) LogAuth(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.Log(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, metadata)
}

// LogContent logs an editorial change.
func (s *Events) LogContent(ctx context.Context, level, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	return s.Log(ctx, level, model.EventCategoryContent, message, userID, ipAddress, metadata)
}

// LogSystem logs a system event.
func (s *Events) LogSystem(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.Log(ctx, level, model.EventCategorySystem, message, nil, "", metadata)
}

// List returns one page of events matching f.
func (s *Events) List(ctx context.Context, f store.EventFilter, page int) (Page[model.Event], error) {
	page, limit, offset := pageBounds(page, EventsPerPage)
	items, err := s.store.ListEvents(ctx, f, limit, offset)
	if err != nil {
		return Page[model.Event]{}, Internal("listing events", err)
	}
	total, err := s.store.CountEvents(ctx, f)
	if err != nil {
		return Page[model.Event]{}, Internal("counting events", err)
	}
	return Page[model.Event]{Items: items, Total: total, Page: page, PerPage: EventsPerPage}, nil
}

// DeleteOld removes events older than retention.
func (s *Events) DeleteOld(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.DeleteEventsBefore(ctx, s.now().Add(-retention))
}
