// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/util"
)

// Field limits for categories.
const (
	MinCategoryNameLength  = 2
	MaxCategoryNameLength  = 100
	MaxCategoryDescription = 500
)

// CategoryStore is the persistence used by Categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, arg store.CategoryParams) (model.Category, error)
	UpdateCategory(ctx context.Context, id int64, arg store.CategoryParams) (model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (model.Category, error)
	DeleteCategory(ctx context.Context, id int64) (int64, error)
	ListCategoriesWithCounts(ctx context.Context, f store.CategoryFilter) ([]model.CategoryWithCount, error)
	ListActiveCategories(ctx context.Context) ([]model.Category, error)
	CountCategories(ctx context.Context) (int64, error)
	CountArticlesInCategory(ctx context.Context, categoryID int64) (int64, error)
}

// Categories manages categories and guards their referential integrity.
type Categories struct {
	store CategoryStore
}

// NewCategories creates the category service.
func NewCategories(s CategoryStore) *Categories {
	return &Categories{store: s}
}

// CategoryInput is a create or update request.
type CategoryInput struct {
	Name        string
	Description string
	Order       int64
	IsActive    bool
}

// Create adds a category. Names are unique regardless of case.
func (s *Categories) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	params, err := s.prepare(ctx, in, 0)
	if err != nil {
		return nil, err
	}
	cat, err := s.store.CreateCategory(ctx, params)
	if err != nil {
		return nil, writeCategoryErr(err, "creating category")
	}
	return &cat, nil
}

// Update changes category id.
func (s *Categories) Update(ctx context.Context, id int64, in CategoryInput) (*model.Category, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	params, err := s.prepare(ctx, in, id)
	if err != nil {
		return nil, err
	}
	cat, err := s.store.UpdateCategory(ctx, id, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("category")
		}
		return nil, writeCategoryErr(err, "updating category")
	}
	return &cat, nil
}

func (s *Categories) prepare(ctx context.Context, in CategoryInput, selfID int64) (store.CategoryParams, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	desc := strings.TrimSpace(in.Description)

	var v validator
	if n := utf8.RuneCountInString(name); n < MinCategoryNameLength || n > MaxCategoryNameLength {
		v.add("name", "name must be between 2 and 100 characters")
	}
	if utf8.RuneCountInString(desc) > MaxCategoryDescription {
		v.add("description", "description must be at most 500 characters")
	}
	slug := util.Slugify(name)
	if slug == "" && v.fields["name"] == "" {
		v.add("name", "name must contain letters or digits")
	}
	if err := v.err(); err != nil {
		return store.CategoryParams{}, err
	}

	if other, err := s.store.GetCategoryByName(ctx, name); err == nil && other.ID != selfID {
		return store.CategoryParams{}, Conflict("a category named %q already exists", other.Name)
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return store.CategoryParams{}, Internal("checking category name", err)
	}
	if other, err := s.store.GetCategoryBySlug(ctx, slug); err == nil && other.ID != selfID {
		return store.CategoryParams{}, Conflict("category %q already uses the address %q", other.Name, slug)
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return store.CategoryParams{}, Internal("checking category slug", err)
	}

	return store.CategoryParams{
		Name:        name,
		Slug:        slug,
		Description: desc,
		Order:       in.Order,
		IsActive:    in.IsActive,
	}, nil
}

func writeCategoryErr(err error, op string) error {
	if store.IsUniqueViolation(err) {
		return Conflict("a category with this name already exists")
	}
	return Internal(op, err)
}

// Delete removes category id. It fails with a conflict carrying the number
// of referencing articles when any exist; nothing is cascaded.
func (s *Categories) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.store.CountArticlesInCategory(ctx, id)
	if err != nil {
		return Internal("counting category articles", err)
	}
	if count > 0 {
		return inUse(count)
	}

	n, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			// An article was filed between the count and the delete.
			count, _ = s.store.CountArticlesInCategory(ctx, id)
			return inUse(count)
		}
		return Internal("deleting category", err)
	}
	if n == 0 {
		return NotFound("category")
	}
	return nil
}

func inUse(count int64) error {
	e := Conflict("cannot delete category: it has %d article(s)", count)
	e.Count = count
	return e
}

// Get returns category id.
func (s *Categories) Get(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, lookupErr("category", "loading category", err)
	}
	return &cat, nil
}

// List returns categories with article counts in display order.
func (s *Categories) List(ctx context.Context, f store.CategoryFilter) ([]model.CategoryWithCount, error) {
	items, err := s.store.ListCategoriesWithCounts(ctx, f)
	if err != nil {
		return nil, Internal("listing categories", err)
	}
	return items, nil
}

// Active returns the active categories for navigation and editor forms.
func (s *Categories) Active(ctx context.Context) ([]model.Category, error) {
	items, err := s.store.ListActiveCategories(ctx)
	if err != nil {
		return nil, Internal("listing active categories", err)
	}
	return items, nil
}

// Count returns the number of categories.
func (s *Categories) Count(ctx context.Context) (int64, error) {
	n, err := s.store.CountCategories(ctx)
	if err != nil {
		return 0, Internal("counting categories", err)
	}
	return n, nil
}
