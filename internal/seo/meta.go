// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/json"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/newsdesk/internal/model"
)

// Meta holds the meta tag data for a page.
type Meta struct {
	Title         string
	Description   string
	Keywords      string
	Canonical     string
	OGTitle       string
	OGDescription string
	OGImage       string
	OGType        string // website, article
	OGSiteName    string
	OGURL         string
	Robots        string
	TwitterCard   string
}

// SiteConfig contains site-wide settings for SEO.
type SiteConfig struct {
	SiteName        string
	SiteURL         string
	SiteDescription string
}

var textOnly = bluemonday.StrictPolicy()

// SiteMeta returns meta tags for a listing page. An empty title means the homepage.
func SiteMeta(site SiteConfig, title, path string) *Meta {
	m := &Meta{
		Title:         site.SiteName,
		Description:   site.SiteDescription,
		OGType:        "website",
		OGSiteName:    site.SiteName,
		Robots:        "index,follow",
		TwitterCard:   "summary",
		Canonical:     absoluteURL(path, site.SiteURL),
		OGDescription: site.SiteDescription,
	}
	if title != "" {
		m.Title = title + " | " + site.SiteName
	}
	m.OGTitle = m.Title
	m.OGURL = m.Canonical
	return m
}

// ArticleMeta returns meta tags for an article page.
func ArticleMeta(a *model.ArticleWithRefs, site SiteConfig) *Meta {
	desc := a.Excerpt
	if desc == "" {
		desc = a.Content
	}
	desc = truncateText(plainText(desc), 160)

	m := &Meta{
		Title:         a.Title + " | " + site.SiteName,
		Description:   desc,
		Keywords:      strings.Join(a.Tags, ", "),
		Canonical:     site.SiteURL + "/article/" + a.Slug,
		OGTitle:       a.Title,
		OGDescription: desc,
		OGType:        "article",
		OGSiteName:    site.SiteName,
		Robots:        "index,follow",
		TwitterCard:   "summary",
	}
	m.OGURL = m.Canonical
	if a.FeaturedImage != "" {
		m.OGImage = absoluteURL(a.FeaturedImage, site.SiteURL)
		m.TwitterCard = "summary_large_image"
	}
	return m
}

// NewsArticleSchema represents JSON-LD NewsArticle structured data.
type NewsArticleSchema struct {
	Context          string        `json:"@context"`
	Type             string        `json:"@type"`
	Headline         string        `json:"headline"`
	Description      string        `json:"description,omitempty"`
	Image            string        `json:"image,omitempty"`
	DatePublished    string        `json:"datePublished,omitempty"`
	DateModified     string        `json:"dateModified,omitempty"`
	ArticleSection   string        `json:"articleSection,omitempty"`
	Keywords         string        `json:"keywords,omitempty"`
	Author           *PersonSchema `json:"author,omitempty"`
	Publisher        *OrgSchema    `json:"publisher,omitempty"`
	MainEntityOfPage string        `json:"mainEntityOfPage,omitempty"`
	IsBasedOn        string        `json:"isBasedOn,omitempty"`
}

// PersonSchema represents JSON-LD Person structured data.
type PersonSchema struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// OrgSchema represents JSON-LD Organization structured data.
type OrgSchema struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// BuildArticleSchema returns JSON-LD for an article, ready to embed in a
// script tag.
func BuildArticleSchema(a *model.ArticleWithRefs, site SiteConfig) template.JS {
	s := NewsArticleSchema{
		Context:          "https://schema.org",
		Type:             "NewsArticle",
		Headline:         a.Title,
		Description:      truncateText(plainText(a.Excerpt), 160),
		ArticleSection:   a.CategoryName,
		Keywords:         strings.Join(a.Tags, ", "),
		MainEntityOfPage: site.SiteURL + "/article/" + a.Slug,
		Publisher:        &OrgSchema{Type: "Organization", Name: site.SiteName},
	}
	if a.FeaturedImage != "" {
		s.Image = absoluteURL(a.FeaturedImage, site.SiteURL)
	}
	if a.PublishedAt.Valid {
		s.DatePublished = a.PublishedAt.Time.UTC().Format(time.RFC3339)
	}
	if !a.UpdatedAt.IsZero() {
		s.DateModified = a.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if a.AuthorName != "" {
		s.Author = &PersonSchema{Type: "Person", Name: a.AuthorName}
	}
	if !a.Source.IsOriginal() {
		s.IsBasedOn = a.Source.URL
	}

	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return template.JS(data)
}

// plainText strips markup and collapses whitespace.
func plainText(html string) string {
	return strings.Join(strings.Fields(textOnly.Sanitize(html)), " ")
}

// truncateText cuts text to at most maxLen runes at a word boundary.
func truncateText(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	truncated := string([]rune(text)[:maxLen])
	if i := strings.LastIndex(truncated, " "); i > len(truncated)/2 {
		truncated = truncated[:i]
	}
	return strings.TrimSpace(truncated) + "..."
}

func absoluteURL(u, siteURL string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return strings.TrimSuffix(siteURL, "/") + u
}
