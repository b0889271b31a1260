// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds sitemap.xml, robots.txt, meta tags and JSON-LD
// structured data for the public site.
package seo

import (
	"encoding/xml"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Valid change frequency values.
const (
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapItem is a slug with its last modification time.
type SitemapItem struct {
	Slug      string
	UpdatedAt time.Time
}

// SitemapBuilder builds sitemap XML from site content.
type SitemapBuilder struct {
	siteURL string
	urls    []SitemapURL
}

// NewSitemapBuilder creates a new sitemap builder.
func NewSitemapBuilder(siteURL string) *SitemapBuilder {
	return &SitemapBuilder{siteURL: strings.TrimSuffix(siteURL, "/")}
}

// AddHomepage adds the homepage to the sitemap.
func (b *SitemapBuilder) AddHomepage() {
	b.urls = append(b.urls, SitemapURL{Loc: b.siteURL + "/", ChangeFreq: ChangeFreqHourly, Priority: "1.0"})
}

// AddNews adds the news listing page.
func (b *SitemapBuilder) AddNews() {
	b.urls = append(b.urls, SitemapURL{Loc: b.siteURL + "/news", ChangeFreq: ChangeFreqHourly, Priority: "0.9"})
}

// AddArticles adds published articles.
func (b *SitemapBuilder) AddArticles(items []SitemapItem) {
	for _, it := range items {
		b.add("/article/", it, ChangeFreqWeekly, "0.8")
	}
}

// AddCategories adds category listing pages.
func (b *SitemapBuilder) AddCategories(items []SitemapItem) {
	for _, it := range items {
		b.add("/category/", it, ChangeFreqDaily, "0.6")
	}
}

func (b *SitemapBuilder) add(prefix string, it SitemapItem, freq ChangeFreq, priority string) {
	u := SitemapURL{Loc: b.siteURL + prefix + it.Slug, ChangeFreq: freq, Priority: priority}
	if !it.UpdatedAt.IsZero() {
		u.LastMod = it.UpdatedAt.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, u)
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	xmlBytes, err := xml.MarshalIndent(Sitemap{XMLNS: XMLNamespace, URLs: b.urls}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), xmlBytes...), nil
}

// GenerateSitemap builds the full sitemap for the site.
func GenerateSitemap(siteURL string, articles, categories []SitemapItem) ([]byte, error) {
	b := NewSitemapBuilder(siteURL)
	b.AddHomepage()
	b.AddNews()
	b.AddArticles(articles)
	b.AddCategories(categories)
	return b.Build()
}
