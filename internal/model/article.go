// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// Article statuses.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
	ArticleStatusArchived  = "archived"
)

// ArticleStatuses lists every valid article status in display order.
var ArticleStatuses = []string{ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived}

// IsValidArticleStatus reports whether s is a known article status.
func IsValidArticleStatus(s string) bool {
	for _, st := range ArticleStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Source types. Only SourceOriginal carries no attribution fields.
const (
	SourceOriginal   = "original"
	SourceSourced    = "sourced"
	SourceAggregated = "aggregated"
	SourceTranslated = "translated"
)

// SourceTypes lists every valid source type.
var SourceTypes = []string{SourceOriginal, SourceSourced, SourceAggregated, SourceTranslated}

// Source describes where an article's content came from.
type Source struct {
	Type                string       `json:"type"`
	Name                string       `json:"name,omitempty"`
	URL                 string       `json:"url,omitempty"`
	Author              string       `json:"author,omitempty"`
	OriginalPublishDate sql.NullTime `json:"original_publish_date,omitempty"`
}

// IsOriginal reports whether the article is original reporting.
func (s Source) IsOriginal() bool {
	return s.Type == "" || s.Type == SourceOriginal
}

// Article is a news item or feature.
type Article struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	Content       string       `json:"content"`
	Excerpt       string       `json:"excerpt"`
	CategoryID    int64        `json:"category_id"`
	AuthorID      int64        `json:"author_id"`
	Status        string       `json:"status"`
	PublishedAt   sql.NullTime `json:"published_at,omitempty"`
	Views         int64        `json:"views"`
	IsFeatured    bool         `json:"is_featured"`
	Tags          []string     `json:"tags"`
	Source        Source       `json:"source"`
	FeaturedImage string       `json:"featured_image,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsPublished returns true if the article is published.
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// ArticleWithRefs is an article joined with its category and author.
type ArticleWithRefs struct {
	Article
	CategoryName string `json:"category_name"`
	CategorySlug string `json:"category_slug"`
	AuthorName   string `json:"author_name"`
}

// EncodeTags serializes tags for storage as a JSON array.
func EncodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeTags parses a stored JSON tag array. Malformed input yields no tags.
func DecodeTags(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

// ParseTags splits a comma-separated tag list into a trimmed, lowercased set
// that keeps first-seen order.
func ParseTags(raw string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
