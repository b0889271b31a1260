// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cli implements newsdesk-admin, the operator command line for
// account bootstrap and approval.
package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/config"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/version"
)

// app carries state shared by every subcommand.
type app struct {
	dbPath  string
	noColor bool

	printer  *Printer
	db       *sql.DB
	accounts *service.Accounts
	events   *service.Events
}

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "newsdesk-admin",
		Short: "Newsdesk operator CLI",
		Long: `newsdesk-admin manages newsdesk accounts directly against the database.

Example usage:
  newsdesk-admin setup-main-admin --email chief@example.com --name "Chief Editor"
  newsdesk-admin list-pending
  newsdesk-admin approve --email reporter@example.com`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.printer = NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.noColor)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	defaultDB := "./data/newsdesk.db"
	if cfg, err := config.LoadAdmin(); err == nil {
		defaultDB = cfg.DBPath
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", defaultDB, "SQLite database path (env NEWSDESK_DB_PATH)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newSetupMainAdminCmd(a),
		newListPendingCmd(a),
		newApproveCmd(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		NewPrinter(os.Stdout, os.Stderr, false).Error("%v", err)
		return 1
	}
	return 0
}

// withDB wraps fn so the database is open while it runs.
func (a *app) withDB(fn func(cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := a.open(); err != nil {
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				a.printer.Warning("closing database: %v", err)
			}
		}()
		return fn(cmd)
	}
}

func (a *app) open() error {
	if err := os.MkdirAll(filepath.Dir(a.dbPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewDB(a.dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	a.db = db
	q := store.New(db)
	a.accounts = service.NewAccounts(q, auth.NewHasher(auth.DefaultParams))
	a.events = service.NewEvents(q)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
