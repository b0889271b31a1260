// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
)

const messageColumns = `id, name, email, subject, body, is_read, is_archived, read_at, read_by,
	ip_address, user_agent, created_at`

func scanMessage(row rowScanner) (model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.IsRead, &m.IsArchived,
		&m.ReadAt, &m.ReadBy, &m.IPAddress, &m.UserAgent, &m.CreatedAt)
	return m, err
}

// CreateMessageParams holds a new contact form submission.
type CreateMessageParams struct {
	Name      string
	Email     string
	Subject   string
	Body      string
	IPAddress string
	UserAgent string
}

// CreateMessage inserts a message and returns it.
func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (model.Message, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO messages
		(name, email, subject, body, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Email, arg.Subject, arg.Body, arg.IPAddress, arg.UserAgent, q.now())
	if err != nil {
		return model.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, err
	}
	return q.GetMessage(ctx, id)
}

// GetMessage returns the message with id.
func (q *Queries) GetMessage(ctx context.Context, id int64) (model.Message, error) {
	return scanMessage(q.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
}

func messageFilterClause(filter string) string {
	switch filter {
	case model.MessageFilterUnread:
		return ` WHERE is_archived = 0 AND is_read = 0`
	case model.MessageFilterRead:
		return ` WHERE is_archived = 0 AND is_read = 1`
	case model.MessageFilterArchived:
		return ` WHERE is_archived = 1`
	default:
		return ` WHERE is_archived = 0`
	}
}

// ListMessages returns messages matching filter, newest first.
func (q *Queries) ListMessages(ctx context.Context, filter string, limit, offset int64) ([]model.Message, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages`+
		messageFilterClause(filter)+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// CountMessages counts messages matching filter.
func (q *Queries) CountMessages(ctx context.Context, filter string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`+messageFilterClause(filter)).Scan(&n)
	return n, err
}

// MarkMessageRead sets is_read with read_at and read_by. Already read
// messages keep their original reader.
func (q *Queries) MarkMessageRead(ctx context.Context, id, readerID int64, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE messages SET is_read = 1, read_at = ?, read_by = ?
		WHERE id = ? AND is_read = 0`, at, readerID, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// MarkMessageUnread clears is_read together with read_at and read_by.
func (q *Queries) MarkMessageUnread(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE messages SET is_read = 0, read_at = NULL, read_by = NULL
		WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// ArchiveMessage moves a message to the archive.
func (q *Queries) ArchiveMessage(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE messages SET is_archived = 1 WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// DeleteMessage removes a message.
func (q *Queries) DeleteMessage(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// MarkAllMessagesRead marks every unread, unarchived message as read by readerID.
func (q *Queries) MarkAllMessagesRead(ctx context.Context, readerID int64, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE messages SET is_read = 1, read_at = ?, read_by = ?
		WHERE is_read = 0 AND is_archived = 0`, at, readerID)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
