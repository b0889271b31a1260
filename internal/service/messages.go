// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
)

// Contact form limits.
const (
	MaxContactName    = 100
	MaxContactSubject = 200
	MaxContactBody    = 5000
	MessagesPerPage   = 20
)

// MessageStore is the persistence used by Messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, arg store.CreateMessageParams) (model.Message, error)
	GetMessage(ctx context.Context, id int64) (model.Message, error)
	ListMessages(ctx context.Context, filter string, limit, offset int64) ([]model.Message, error)
	CountMessages(ctx context.Context, filter string) (int64, error)
	MarkMessageRead(ctx context.Context, id, readerID int64, at time.Time) (int64, error)
	MarkMessageUnread(ctx context.Context, id int64) (int64, error)
	ArchiveMessage(ctx context.Context, id int64) (int64, error)
	DeleteMessage(ctx context.Context, id int64) (int64, error)
	MarkAllMessagesRead(ctx context.Context, readerID int64, at time.Time) (int64, error)
}

// Messages runs the contact inbox.
type Messages struct {
	store MessageStore
	now   Clock
}

// NewMessages creates the inbox service.
func NewMessages(s MessageStore) *Messages {
	return &Messages{store: s, now: systemClock}
}

// ContactInput is a public contact form submission.
type ContactInput struct {
	Name      string
	Email     string
	Subject   string
	Body      string
	IPAddress string
	UserAgent string
}

// Submit validates and stores a contact message.
func (s *Messages) Submit(ctx context.Context, in ContactInput) (*model.Message, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	subject := strings.TrimSpace(in.Subject)
	body := strings.TrimSpace(in.Body)

	var v validator
	checkLen := func(field, value, label string, max int) {
		switch n := utf8.RuneCountInString(value); {
		case n == 0:
			v.add(field, label+" is required")
		case n > max:
			v.add(field, label+" is too long")
		}
	}
	checkLen("name", name, "name", MaxContactName)
	if !IsValidEmail(email) {
		v.add("email", "please enter a valid email address")
	}
	checkLen("subject", subject, "subject", MaxContactSubject)
	checkLen("message", body, "message", MaxContactBody)
	if err := v.err(); err != nil {
		return nil, err
	}

	m, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		Name:      name,
		Email:     email,
		Subject:   subject,
		Body:      body,
		IPAddress: in.IPAddress,
		UserAgent: truncate(in.UserAgent, 500),
	})
	if err != nil {
		return nil, Internal("saving message", err)
	}
	return &m, nil
}

// List returns one page of messages for filter (all, unread, read, archived).
func (s *Messages) List(ctx context.Context, filter string, page int) (Page[model.Message], error) {
	page, limit, offset := pageBounds(page, MessagesPerPage)
	items, err := s.store.ListMessages(ctx, filter, limit, offset)
	if err != nil {
		return Page[model.Message]{}, Internal("listing messages", err)
	}
	total, err := s.store.CountMessages(ctx, filter)
	if err != nil {
		return Page[model.Message]{}, Internal("counting messages", err)
	}
	return Page[model.Message]{Items: items, Total: total, Page: page, PerPage: MessagesPerPage}, nil
}

// Get returns message id without changing its state.
func (s *Messages) Get(ctx context.Context, id int64) (*model.Message, error) {
	m, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, lookupErr("message", "loading message", err)
	}
	return &m, nil
}

// Open returns message id and marks it read by reader if it was unread.
func (s *Messages) Open(ctx context.Context, reader *model.Account, id int64) (*model.Message, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsRead {
		return m, nil
	}
	return s.MarkRead(ctx, reader, id)
}

// MarkRead sets readAt and readBy together. A message already read keeps
// its original reader.
func (s *Messages) MarkRead(ctx context.Context, reader *model.Account, id int64) (*model.Message, error) {
	if reader == nil {
		return nil, ErrUnauthenticated
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.store.MarkMessageRead(ctx, id, reader.ID, s.now()); err != nil {
		return nil, Internal("marking message read", err)
	}
	return s.Get(ctx, id)
}

// MarkUnread clears readAt and readBy together.
func (s *Messages) MarkUnread(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, "marking message unread", s.store.MarkMessageUnread)
}

// Archive moves message id out of the inbox.
func (s *Messages) Archive(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, "archiving message", s.store.ArchiveMessage)
}

// Delete removes message id.
func (s *Messages) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, id, "deleting message", s.store.DeleteMessage)
}

func (s *Messages) mutate(ctx context.Context, id int64, op string, fn func(context.Context, int64) (int64, error)) error {
	n, err := fn(ctx, id)
	if err != nil {
		return Internal(op, err)
	}
	if n == 0 {
		return NotFound("message")
	}
	return nil
}

// MarkAllRead marks every unread inbox message as read by reader and
// returns how many changed.
func (s *Messages) MarkAllRead(ctx context.Context, reader *model.Account) (int64, error) {
	if reader == nil {
		return 0, ErrUnauthenticated
	}
	n, err := s.store.MarkAllMessagesRead(ctx, reader.ID, s.now())
	if err != nil {
		return 0, Internal("marking messages read", err)
	}
	return n, nil
}

// UnreadCount returns the number of unread, unarchived messages.
func (s *Messages) UnreadCount(ctx context.Context) (int64, error) {
	n, err := s.store.CountMessages(ctx, model.MessageFilterUnread)
	if err != nil {
		return 0, Internal("counting unread messages", err)
	}
	return n, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
