// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/olegiv/newsdesk/internal/model"
)

const categoryColumns = `c.id, c.name, c.slug, c.description, c.sort_order, c.is_active, c.created_at, c.updated_at`

func scanCategoryInto(c *model.Category, extra ...any) []any {
	return append([]any{&c.ID, &c.Name, &c.Slug, &c.Description, &c.Order, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt}, extra...)
}

func scanCategory(row rowScanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(scanCategoryInto(&c)...)
	return c, err
}

// CategoryParams holds the writable columns of a category.
type CategoryParams struct {
	Name        string
	Slug        string
	Description string
	Order       int64
	IsActive    bool
}

// CreateCategory inserts a category and returns it.
func (q *Queries) CreateCategory(ctx context.Context, arg CategoryParams) (model.Category, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO categories
		(name, slug, description, sort_order, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Slug, arg.Description, arg.Order, boolToInt(arg.IsActive), now, now)
	if err != nil {
		return model.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Category{}, err
	}
	return q.GetCategory(ctx, id)
}

// UpdateCategory overwrites a category's writable columns.
func (q *Queries) UpdateCategory(ctx context.Context, id int64, arg CategoryParams) (model.Category, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE categories
		SET name = ?, slug = ?, description = ?, sort_order = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		arg.Name, arg.Slug, arg.Description, arg.Order, boolToInt(arg.IsActive), q.now(), id)
	if err != nil {
		return model.Category{}, err
	}
	if n, err := rowsAffected(res); err != nil {
		return model.Category{}, err
	} else if n == 0 {
		return model.Category{}, sql.ErrNoRows
	}
	return q.GetCategory(ctx, id)
}

// GetCategory returns the category with id.
func (q *Queries) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c WHERE c.id = ?`, id))
}

// GetCategoryBySlug returns the category with slug.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c WHERE c.slug = ?`, slug))
}

// GetCategoryByName returns the category named name, compared case-insensitively.
func (q *Queries) GetCategoryByName(ctx context.Context, name string) (model.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c WHERE c.name = ?`, name))
}

// DeleteCategory removes a category and returns the number of rows deleted.
// The articles foreign key rejects the delete while articles reference it.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// CategoryFilter narrows the admin category list.
type CategoryFilter struct {
	Search string
	// Active is "active", "inactive" or empty for both.
	Active string
}

// ListCategoriesWithCounts returns categories in display order with article totals.
func (q *Queries) ListCategoriesWithCounts(ctx context.Context, f CategoryFilter) ([]model.CategoryWithCount, error) {
	var conds []string
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, `(c.name LIKE ? ESCAPE '\' OR c.description LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(s), likePattern(s))
	}
	switch f.Active {
	case "active":
		conds = append(conds, "c.is_active = 1")
	case "inactive":
		conds = append(conds, "c.is_active = 0")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := q.db.QueryContext(ctx, `SELECT `+categoryColumns+`, COUNT(a.id)
		FROM categories c LEFT JOIN articles a ON a.category_id = c.id`+where+`
		GROUP BY c.id ORDER BY c.sort_order, c.name`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.CategoryWithCount
	for rows.Next() {
		var c model.CategoryWithCount
		if err := rows.Scan(scanCategoryInto(&c.Category, &c.ArticleCount)...); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// ListActiveCategories returns active categories in display order.
func (q *Queries) ListActiveCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories c
		WHERE c.is_active = 1 ORDER BY c.sort_order, c.name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// CountCategories counts all categories.
func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}
