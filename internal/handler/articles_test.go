// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/store"
	"github.com/olegiv/newsdesk/internal/testutil"
	"github.com/olegiv/newsdesk/internal/upload"
)

func newArticlesHandler(t *testing.T, e *env) *ArticlesHandler {
	t.Helper()
	uploads, err := upload.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewArticlesHandler(e.renderer, e.articles, e.categories, uploads, e.events)
}

func sourcedArticleForm(categoryID int64, sourceDate string) url.Values {
	return url.Values{
		"title":       {"Harbour expansion approved"},
		"content":     {"<p>The council voted on Tuesday.</p>"},
		"category_id": {strconv.FormatInt(categoryID, 10)},
		"status":      {model.ArticleStatusDraft},
		"source_type": {model.SourceSourced},
		"source_name": {"Wire Service"},
		"source_date": {sourceDate},
	}
}

func TestArticleCreateSourceDate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	h := newArticlesHandler(t, e)
	editor := e.account(t, model.RoleEditor)
	cat := testutil.CreateCategory(t, e.q, "")

	tests := []struct {
		name       string
		sourceDate string
		wantCode   int
	}{
		{"not a date", "yesterday", http.StatusBadRequest},
		{"wrong layout", "31/01/2026", http.StatusBadRequest},
		{"impossible day", "2026-02-30", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(t, h.Create, call{method: http.MethodPost, json: true, user: editor,
				form: sourcedArticleForm(cat.ID, tt.sourceDate)})
			require.Equal(t, tt.wantCode, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Message, "source date")
		})
	}

	n, err := e.q.CountArticles(ctx, store.ArticleFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "rejected submissions create nothing")

	rec := e.serve(t, h.Create, call{method: http.MethodPost, user: editor, form: sourcedArticleForm(cat.ID, "not-a-date")})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "source date must be a date")
	assert.Contains(t, rec.Body.String(), "Harbour expansion approved", "form values are kept")

	rec = e.serve(t, h.Create, call{method: http.MethodPost, json: true, user: editor, form: sourcedArticleForm(cat.ID, "2026-01-31")})
	require.Equal(t, http.StatusOK, rec.Code)

	page, err := e.articles.List(ctx, store.ArticleFilter{}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	art, err := e.articles.Get(ctx, page.Items[0].ID)
	require.NoError(t, err)
	require.True(t, art.Source.OriginalPublishDate.Valid)
	assert.True(t, art.Source.OriginalPublishDate.Time.Equal(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
}
