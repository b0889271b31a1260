// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// MaxNameLength bounds display names.
const MaxNameLength = 100

// AccountsPerPage is the admin user list page size.
const AccountsPerPage = 20

// AccountStore is the persistence used by Accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, arg store.CreateAccountParams) (model.Account, error)
	GetAccount(ctx context.Context, id int64) (model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (model.Account, error)
	GetMainAdmin(ctx context.Context) (model.Account, error)
	AccountExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	ApproveAccount(ctx context.Context, id, approverID int64, at time.Time) (int64, error)
	DeactivateAccount(ctx context.Context, id int64) (int64, error)
	DeleteAccount(ctx context.Context, id int64) (int64, error)
	UpdateAccountRole(ctx context.Context, id int64, role string) (int64, error)
	ListAccounts(ctx context.Context, filter string, limit, offset int64) ([]model.Account, error)
	CountAccounts(ctx context.Context, filter string) (int64, error)
}

// PasswordHasher is the credential hasher used by Accounts.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
	VerifyAbsent(password string)
	NeedsRehash(encodedHash string) bool
}

// Accounts runs login, registration and the approval workflow.
type Accounts struct {
	store  AccountStore
	hasher PasswordHasher
	now    Clock
}

// NewAccounts creates the account workflow service.
func NewAccounts(s AccountStore, h PasswordHasher) *Accounts {
	return &Accounts{store: s, hasher: h, now: systemClock}
}

// RegisterInput is a self-service registration request.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

var errEmailTaken = Validation("email", "an account with this email already exists")

// Register creates a pending editor account. The account cannot log in
// until the main admin approves it.
func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	var v validator
	if !IsValidEmail(email) {
		v.add("email", "please enter a valid email address")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		v.add("name", "name must be at most 100 characters")
	}
	if len(in.Password) < MinPasswordLength {
		v.add("password", "password must be at least 6 characters")
	} else if in.Password != in.ConfirmPassword {
		v.add("confirm_password", "passwords do not match")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	exists, err := s.store.AccountExists(ctx, email)
	if err != nil {
		return nil, Internal("checking email", err)
	}
	if exists {
		return nil, errEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, Internal("hashing password", err)
	}

	acc, err := s.store.CreateAccount(ctx, store.CreateAccountParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         model.RoleEditor,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errEmailTaken
		}
		return nil, Internal("creating account", err)
	}
	return &acc, nil
}

// Login verifies credentials and records the login time. Unknown email,
// wrong password and inactive account all yield ErrInvalidCredentials.
func (s *Accounts) Login(ctx context.Context, email, password string) (*model.Account, error) {
	email = NormalizeEmail(email)

	acc, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.hasher.VerifyAbsent(password)
			return nil, ErrInvalidCredentials
		}
		return nil, Internal("looking up account", err)
	}

	if !s.hasher.Verify(password, acc.PasswordHash) || !acc.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.store.UpdateLastLogin(ctx, acc.ID, now); err != nil {
		return nil, Internal("recording login", err)
	}
	acc.LastLoginAt = sql.NullTime{Time: now, Valid: true}

	if s.hasher.NeedsRehash(acc.PasswordHash) {
		if hash, err := s.hasher.Hash(password); err == nil {
			if err := s.store.UpdatePasswordHash(ctx, acc.ID, hash); err != nil {
				slog.Warn("failed to upgrade password hash", "user_id", acc.ID, "error", err)
			}
		}
	}

	return &acc, nil
}

// Resolve returns the active account with id. A missing or inactive
// account yields ErrUnauthenticated.
func (s *Accounts) Resolve(ctx context.Context, id int64) (*model.Account, error) {
	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, Internal("loading session account", err)
	}
	if !acc.IsActive {
		return nil, ErrUnauthenticated
	}
	return &acc, nil
}

// Get returns the account with id.
func (s *Accounts) Get(ctx context.Context, id int64) (*model.Account, error) {
	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, lookupErr("account", "loading account", err)
	}
	return &acc, nil
}

// GetByEmail returns the account registered under email.
func (s *Accounts) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	acc, err := s.store.GetAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, lookupErr("account", "loading account", err)
	}
	return &acc, nil
}

// MainAdmin returns the main admin account.
func (s *Accounts) MainAdmin(ctx context.Context) (*model.Account, error) {
	acc, err := s.store.GetMainAdmin(ctx)
	if err != nil {
		return nil, lookupErr("main admin", "loading main admin", err)
	}
	return &acc, nil
}

// Approve activates targetID. Only the main admin may approve.
func (s *Accounts) Approve(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	if err := requireMainAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, targetID); err != nil {
		return nil, err
	}

	n, err := s.store.ApproveAccount(ctx, targetID, actor.ID, s.now())
	if err != nil {
		return nil, Internal("approving account", err)
	}
	if n == 0 {
		return nil, NotFound("account")
	}
	return s.Get(ctx, targetID)
}

// Reject permanently deletes targetID. Only the main admin may reject, and
// the main admin itself can never be rejected.
func (s *Accounts) Reject(ctx context.Context, actor *model.Account, targetID int64) error {
	if err := requireMainAdmin(actor); err != nil {
		return err
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsMainAdmin {
		return Conflict("the main admin account cannot be rejected or deleted")
	}

	n, err := s.store.DeleteAccount(ctx, targetID)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return Conflict("this account has authored articles; deactivate it instead")
		}
		return Internal("deleting account", err)
	}
	if n == 0 {
		return NotFound("account")
	}
	return nil
}

// Deactivate disables targetID without deleting it. Only the main admin
// may deactivate, and the main admin itself can never be deactivated.
func (s *Accounts) Deactivate(ctx context.Context, actor *model.Account, targetID int64) error {
	if err := requireMainAdmin(actor); err != nil {
		return err
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsMainAdmin {
		return Conflict("the main admin account cannot be deactivated")
	}

	n, err := s.store.DeactivateAccount(ctx, targetID)
	if err != nil {
		return Internal("deactivating account", err)
	}
	if n == 0 {
		return NotFound("account")
	}
	return nil
}

// ChangeRole sets targetID's role. The main admin's role is fixed.
func (s *Accounts) ChangeRole(ctx context.Context, actor *model.Account, targetID int64, role string) error {
	if err := requireMainAdmin(actor); err != nil {
		return err
	}
	if !model.IsValidRole(role) {
		return Validation("role", "unknown role")
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.IsMainAdmin {
		return Conflict("the main admin role cannot be changed")
	}
	if _, err := s.store.UpdateAccountRole(ctx, targetID, role); err != nil {
		return Internal("updating role", err)
	}
	return nil
}

// EnsureMainAdmin creates the main admin if none exists yet. It returns
// the main admin and whether it was created by this call.
func (s *Accounts) EnsureMainAdmin(ctx context.Context, email, name, password string) (*model.Account, bool, error) {
	existing, err := s.store.GetMainAdmin(ctx)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, Internal("looking up main admin", err)
	}

	email = NormalizeEmail(email)
	if !IsValidEmail(email) {
		return nil, false, Validation("email", "please enter a valid email address")
	}
	if len(password) < MinPasswordLength {
		return nil, false, Validation("password", "password must be at least 6 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Main Admin"
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, Internal("hashing password", err)
	}
	acc, err := s.store.CreateAccount(ctx, store.CreateAccountParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
		IsMainAdmin:  true,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, false, Conflict("an account with this email already exists or a main admin was created concurrently")
		}
		return nil, false, Internal("creating main admin", err)
	}
	return &acc, true, nil
}

// List returns one page of accounts matching filter (all, pending, active).
func (s *Accounts) List(ctx context.Context, filter string, page int) (Page[model.Account], error) {
	page, limit, offset := pageBounds(page, AccountsPerPage)
	items, err := s.store.ListAccounts(ctx, filter, limit, offset)
	if err != nil {
		return Page[model.Account]{}, Internal("listing accounts", err)
	}
	total, err := s.store.CountAccounts(ctx, filter)
	if err != nil {
		return Page[model.Account]{}, Internal("counting accounts", err)
	}
	return Page[model.Account]{Items: items, Total: total, Page: page, PerPage: AccountsPerPage}, nil
}

// CountPending returns the number of accounts awaiting approval.
func (s *Accounts) CountPending(ctx context.Context) (int64, error) {
	n, err := s.store.CountAccounts(ctx, store.AccountFilterPending)
	if err != nil {
		return 0, Internal("counting pending accounts", err)
	}
	return n, nil
}
