// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/service"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/testutil"
)

func idParam(id int64) map[string]string {
	return map[string]string{"id": strconv.FormatInt(id, 10)}
}

func TestCategoryDeleteInUse(t *testing.T) {
	e := newEnv(t)
	h := NewCategoriesHandler(e.renderer, e.categories, e.events)
	editor := e.account(t, model.RoleEditor)

	cat := testutil.CreateCategory(t, e.q, "World")
	testutil.CreateArticle(t, e.q, editor.ID, cat.ID, model.ArticleStatusDraft)
	testutil.CreateArticle(t, e.q, editor.ID, cat.ID, model.ArticleStatusPublished)

	rec := e.serve(t, h.Delete, call{method: http.MethodPost, json: true, user: editor, params: idParam(cat.ID)})
	require.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "cannot delete category: it has 2 article(s)", env.Message)

	_, err := e.categories.Get(context.Background(), cat.ID)
	require.NoError(t, err)
}

func TestCategoryDeleteEmpty(t *testing.T) {
	e := newEnv(t)
	h := NewCategoriesHandler(e.renderer, e.categories, e.events)
	editor := e.account(t, model.RoleEditor)
	cat := testutil.CreateCategory(t, e.q, "")

	rec := e.serve(t, h.Delete, call{method: http.MethodPost, json: true, user: editor, params: idParam(cat.ID)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)

	_, err := e.categories.Get(context.Background(), cat.ID)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))

	rec = e.serve(t, h.Delete, call{method: http.MethodPost, json: true, user: editor, params: idParam(cat.ID)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryDeleteHTMLRedirects(t *testing.T) {
	e := newEnv(t)
	h := NewCategoriesHandler(e.renderer, e.categories, e.events)
	editor := e.account(t, model.RoleEditor)
	cat := testutil.CreateCategory(t, e.q, "")

	rec := e.serve(t, h.Delete, call{method: http.MethodPost, user: editor, params: idParam(cat.ID)})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/categories", rec.Header().Get("Location"))
}

func TestUserApproval(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := NewUsersHandler(e.renderer, e.accounts, e.events)

	chief := e.mainAdmin(t)
	otherAdmin := e.account(t, model.RoleAdmin)
	pending := testutil.CreateAccount(t, e.q, model.RoleEditor, false, false)

	rec := e.serve(t, h.Approve, call{method: http.MethodPost, json: true, user: otherAdmin, params: idParam(pending.ID)})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, decode(t, rec).Success)

	acc, err := e.accounts.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.False(t, acc.IsActive)

	denied, err := e.events.List(ctx, store.EventFilter{Level: model.EventLevelWarning, Category: model.EventCategoryAuth}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, denied.Items)
	assert.Equal(t, "Denied: Account approved", denied.Items[0].Message)

	rec = e.serve(t, h.Approve, call{method: http.MethodPost, json: true, user: chief, params: idParam(pending.ID)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)

	acc, err = e.accounts.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, acc.IsActive)
}

func TestUserRejectAndDeactivateGuards(t *testing.T) {
	e := newEnv(t)
	h := NewUsersHandler(e.renderer, e.accounts, e.events)
	chief := e.mainAdmin(t)

	rec := e.serve(t, h.Deactivate, call{method: http.MethodPost, json: true, user: chief, params: idParam(chief.ID)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.serve(t, h.Reject, call{method: http.MethodPost, json: true, user: chief, params: idParam(9999)})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	pending := testutil.CreateAccount(t, e.q, model.RoleEditor, false, false)
	rec = e.serve(t, h.Reject, call{method: http.MethodPost, json: true, user: chief, params: idParam(pending.ID)})
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := e.accounts.Get(context.Background(), pending.ID)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestUserChangeRole(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := NewUsersHandler(e.renderer, e.accounts, e.events)
	chief := e.mainAdmin(t)
	otherAdmin := e.account(t, model.RoleAdmin)
	editor := e.account(t, model.RoleEditor)

	tests := []struct {
		name     string
		user     *model.Account
		target   int64
		role     string
		wantCode int
	}{
		{"non-main admin is denied", otherAdmin, editor.ID, model.RoleAdmin, http.StatusForbidden},
		{"unknown role", chief, editor.ID, "owner", http.StatusBadRequest},
		{"main admin role is fixed", chief, chief.ID, model.RoleEditor, http.StatusConflict},
		{"missing account", chief, 9999, model.RoleAdmin, http.StatusNotFound},
		{"promote editor", chief, editor.ID, model.RoleAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(t, h.ChangeRole, call{
				method: http.MethodPost, json: true, user: tt.user,
				params: idParam(tt.target), form: url.Values{"role": {tt.role}},
			})
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCode == http.StatusOK, decode(t, rec).Success)
		})
	}

	acc, err := e.accounts.Get(ctx, editor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, acc.Role)

	chiefNow, err := e.accounts.Get(ctx, chief.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, chiefNow.Role)

	changed, err := e.events.List(ctx, store.EventFilter{Level: model.EventLevelInfo, Category: model.EventCategoryAuth}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, changed.Items)
	assert.Equal(t, "Account role changed", changed.Items[0].Message)
}

func TestUsersListRenders(t *testing.T) {
	e := newEnv(t)
	h := NewUsersHandler(e.renderer, e.accounts, e.events)
	chief := e.mainAdmin(t)
	pending := testutil.CreateAccount(t, e.q, model.RoleEditor, false, false)

	rec := e.serve(t, h.List, call{target: "/admin/users?filter=bogus", user: chief})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), pending.Email)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("/admin/users/%d/role", pending.ID))
}

func submitMessage(t *testing.T, e *env, subject string) *model.Message {
	t.Helper()
	msg, err := e.messages.Submit(context.Background(), service.ContactInput{
		Name:    "Ann",
		Email:   "ann@example.com",
		Subject: subject,
		Body:    "Hello newsroom",
	})
	require.NoError(t, err)
	return msg
}

func TestMessagesReadFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := NewMessagesHandler(e.renderer, e.messages)
	editor := e.account(t, model.RoleEditor)

	first := submitMessage(t, e, "First")
	submitMessage(t, e, "Second")

	unreadCount := func() int64 {
		rec := e.serve(t, h.UnreadCount, call{json: true, user: editor})
		require.Equal(t, http.StatusOK, rec.Code)
		var data struct {
			Count int64 `json:"count"`
		}
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
		return data.Count
	}
	assert.EqualValues(t, 2, unreadCount())

	rec := e.serve(t, h.View, call{user: editor, params: idParam(first.ID)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello newsroom")
	assert.EqualValues(t, 1, unreadCount())

	msg, err := e.messages.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, msg.IsRead)
	assert.True(t, msg.ReadAt.Valid)
	assert.Equal(t, editor.ID, msg.ReadBy.Int64)

	rec = e.serve(t, h.MarkUnread, call{method: http.MethodPost, json: true, user: editor, params: idParam(first.ID)})
	require.Equal(t, http.StatusOK, rec.Code)
	msg, err = e.messages.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, msg.IsRead)
	assert.False(t, msg.ReadAt.Valid)
	assert.False(t, msg.ReadBy.Valid)

	rec = e.serve(t, h.MarkAllRead, call{method: http.MethodPost, json: true, user: editor})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 message(s) marked as read", decode(t, rec).Message)
	assert.Zero(t, unreadCount())

	rec = e.serve(t, h.Delete, call{method: http.MethodPost, json: true, user: editor, params: idParam(first.ID)})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.serve(t, h.View, call{user: editor, params: idParam(first.ID)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessagesListRenders(t *testing.T) {
	e := newEnv(t)
	h := NewMessagesHandler(e.renderer, e.messages)
	editor := e.account(t, model.RoleEditor)
	submitMessage(t, e, "Story tip")

	rec := e.serve(t, h.List, call{target: "/admin/messages?filter=unread", user: editor})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Story tip")
}

func TestSubscriptionsAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := NewSubscriptionsHandler(e.renderer, e.subscriptions, e.events)
	admin := e.account(t, model.RoleAdmin)

	rec := e.serve(t, h.Create, call{method: http.MethodPost, json: true, user: admin, form: url.Values{"email": {"reader@example.com"}}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reader@example.com subscribed", decode(t, rec).Message)

	rec = e.serve(t, h.Create, call{method: http.MethodPost, json: true, user: admin, form: url.Values{"email": {"reader@example.com"}}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	page, err := e.subscriptions.List(ctx, store.SubscriptionFilter{}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	id := page.Items[0].ID

	rec = e.serve(t, h.Toggle, call{method: http.MethodPost, json: true, user: admin, params: idParam(id)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reader@example.com deactivated", decode(t, rec).Message)

	rec = e.serve(t, h.Create, call{method: http.MethodPost, json: true, user: admin, form: url.Values{"email": {"reader@example.com"}}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reader@example.com reactivated", decode(t, rec).Message)

	rec = e.serve(t, h.Delete, call{method: http.MethodPost, json: true, user: admin, params: idParam(id)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.serve(t, h.List, call{target: "/admin/subscriptions", user: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "reader@example.com")
}
