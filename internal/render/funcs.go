// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"database/sql"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/newsdesk/internal/model"
	"github.com/olegiv/newsdesk/internal/upload"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"isoDate":        isoDate,
		"nullDate":       nullDate,
		"timeAgo":        func(t time.Time) string { return timeAgo(t, time.Now()) },
		"truncate":       truncate,
		// Stored article content is sanitized on write.
		"safe": func(s string) template.HTML {
			return template.HTML(s)
		},
		"thumb": upload.ThumbnailURL,
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
		"hasRole": func(acc *model.Account, roles ...string) bool {
			if acc == nil {
				return false
			}
			for _, r := range roles {
				if acc.Role == r {
					return true
				}
			}
			return false
		},
		"join":        strings.Join,
		"statusClass": statusClass,
		"sourceLabel": sourceLabel,
		"selected": func(a, b any) template.HTMLAttr {
			if fmt.Sprint(a) == fmt.Sprint(b) {
				return "selected"
			}
			return ""
		},
		"checked": func(b bool) template.HTMLAttr {
			if b {
				return "checked"
			}
			return ""
		},
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 15:04")
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// nullDate formats a nullable time, returning "" when unset.
func nullDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return formatDate(t.Time)
}

func timeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day") + " ago"
	default:
		return formatDate(t)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	return string([]rune(s)[:length]) + "..."
}

func statusClass(status string) string {
	switch status {
	case model.ArticleStatusPublished, "active":
		return "badge-success"
	case model.ArticleStatusDraft, "pending":
		return "badge-warning"
	default:
		return "badge-muted"
	}
}

func sourceLabel(t string) string {
	switch t {
	case model.SourceSourced:
		return "Source"
	case model.SourceAggregated:
		return "Aggregated from"
	case model.SourceTranslated:
		return "Translated from"
	default:
		return ""
	}
}
