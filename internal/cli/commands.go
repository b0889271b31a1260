// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/olegiv/newsdesk/internal/auth"
	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
)

// generatedPasswordLength is the length of passwords created by
// setup-main-admin.
const generatedPasswordLength = 20

// cliSource marks audit events raised from the command line.
const cliSource = "cli"

func newSetupMainAdminCmd(a *app) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "setup-main-admin",
		Short: "Create the main admin with a generated password",
		Long: `Create the single main admin account. A random password is generated
and printed once; store it safely. If a main admin already exists nothing
is changed.`,
		RunE: a.withDB(func(cmd *cobra.Command) error {
			password, err := auth.GeneratePassword(generatedPasswordLength)
			if err != nil {
				return err
			}
			acc, created, err := a.accounts.EnsureMainAdmin(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			if !created {
				a.printer.Warning("main admin already exists: %s", acc.Email)
				return nil
			}

			_ = a.events.LogAuth(cmd.Context(), model.EventLevelInfo, "Main admin created", &acc.ID, cliSource,
				map[string]any{"email": acc.Email})

			a.printer.Success("main admin created: %s", a.printer.Bold(acc.Email))
			a.printer.Info("password: %s", a.printer.Bold(password))
			a.printer.Warning("this password is shown only once")
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "main admin email address")
	cmd.Flags().StringVar(&name, "name", "", "display name (default \"Main Admin\")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newListPendingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-pending",
		Short: "List accounts awaiting approval",
		RunE: a.withDB(func(cmd *cobra.Command) error {
			var rows [][]string
			for page := 1; ; page++ {
				res, err := a.accounts.List(cmd.Context(), store.AccountFilterPending, page)
				if err != nil {
					return err
				}
				for _, acc := range res.Items {
					rows = append(rows, []string{
						strconv.FormatInt(acc.ID, 10),
						acc.Email,
						acc.Name,
						acc.CreatedAt.Format("2006-01-02 15:04"),
					})
				}
				if !res.HasNext() {
					break
				}
			}

			if len(rows) == 0 {
				a.printer.Info("no accounts awaiting approval")
				return nil
			}
			return a.printer.Table([]string{"ID", "Email", "Name", "Registered"}, rows)
		}),
	}
}

func newApproveCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a pending account as the main admin",
		RunE: a.withDB(func(cmd *cobra.Command) error {
			ctx := cmd.Context()
			admin, err := a.accounts.MainAdmin(ctx)
			if service.KindOf(err) == service.KindNotFound {
				return errors.New("no main admin exists; run setup-main-admin first")
			}
			if err != nil {
				return err
			}
			target, err := a.accounts.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if target.IsActive {
				a.printer.Info("%s is already active", target.Email)
				return nil
			}
			if _, err := a.accounts.Approve(ctx, admin, target.ID); err != nil {
				return err
			}

			_ = a.events.LogAuth(ctx, model.EventLevelInfo, "Account approved", &admin.ID, cliSource,
				map[string]any{"target_id": target.ID, "email": target.Email})

			a.printer.Success("approved %s", a.printer.Bold(target.Email))
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to approve")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
