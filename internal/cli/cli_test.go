// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
)

func runCLI(t *testing.T, dbPath string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(&out, &errOut)
	root.SetArgs(append([]string{"--db", dbPath, "--no-color"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func openAccounts(t *testing.T, dbPath string) *service.Accounts {
	t.Helper()
	db, err := store.NewDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return service.NewAccounts(store.New(db), auth.NewHasher(auth.DefaultParams))
}

var passwordLine = regexp.MustCompile(`password: (\S+)`)

func TestSetupMainAdmin(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "newsdesk.db")

	out, _, err := runCLI(t, dbPath, "setup-main-admin", "--email", "Chief@Example.com", "--name", "Chief")
	require.NoError(t, err)
	assert.Contains(t, out, "main admin created: chief@example.com")

	m := passwordLine.FindStringSubmatch(out)
	require.Len(t, m, 2, "password not printed: %q", out)
	assert.Len(t, m[1], generatedPasswordLength)

	acc, err := openAccounts(t, dbPath).Login(context.Background(), "chief@example.com", m[1])
	require.NoError(t, err)
	assert.True(t, acc.IsMainAdmin)

	_, errOut, err := runCLI(t, dbPath, "setup-main-admin", "--email", "other@example.com")
	require.NoError(t, err)
	assert.Contains(t, errOut, "main admin already exists: chief@example.com")
}

func TestSetupMainAdminRequiresEmail(t *testing.T) {
	_, _, err := runCLI(t, filepath.Join(t.TempDir(), "newsdesk.db"), "setup-main-admin")
	require.Error(t, err)
}

func TestListPendingAndApprove(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "newsdesk.db")

	out, _, err := runCLI(t, dbPath, "list-pending")
	require.NoError(t, err)
	assert.Contains(t, out, "no accounts awaiting approval")

	_, _, err = runCLI(t, dbPath, "approve", "--email", "reporter@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup-main-admin")

	_, _, err = runCLI(t, dbPath, "setup-main-admin", "--email", "chief@example.com")
	require.NoError(t, err)

	accounts := openAccounts(t, dbPath)
	_, err = accounts.Register(ctx, service.RegisterInput{
		Name:            "Reporter",
		Email:           "reporter@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	require.NoError(t, err)

	out, _, err = runCLI(t, dbPath, "list-pending")
	require.NoError(t, err)
	assert.Contains(t, out, "reporter@example.com")

	out, _, err = runCLI(t, dbPath, "approve", "--email", "reporter@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "approved reporter@example.com")

	acc, err := accounts.GetByEmail(ctx, "reporter@example.com")
	require.NoError(t, err)
	assert.True(t, acc.IsActive)

	out, _, err = runCLI(t, dbPath, "approve", "--email", "reporter@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "already active")

	_, _, err = runCLI(t, dbPath, "approve", "--email", "ghost@example.com")
	require.Error(t, err)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}
