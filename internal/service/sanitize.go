// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// allowedContentTags are the formatting elements kept in article bodies.
var allowedContentTags = []string{
	"p", "br", "hr", "div", "span",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"b", "strong", "i", "em", "u", "s", "del", "ins", "mark", "small", "sub", "sup",
	"blockquote", "q", "cite", "abbr", "code", "pre", "kbd",
	"ul", "ol", "li", "dl", "dt", "dd",
	"figure", "figcaption",
	"table", "caption", "thead", "tbody", "tfoot", "tr", "th", "td",
	"a", "img",
}

var targetRegex = regexp.MustCompile(`^_(blank|self|parent|top)$`)

// Sanitizer filters editor-supplied HTML through a fixed allow-list.
// Script and style elements are dropped together with their content.
type Sanitizer struct {
	content *bluemonday.Policy
	strict  *bluemonday.Policy
}

// NewSanitizer builds the article content policy: basic formatting tags,
// images with src, alt and title, and links with href, target and rel.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedContentTags...)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(targetRegex).OnElements("a")
	p.AllowAttrs("rel").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)

	return &Sanitizer{content: p, strict: bluemonday.StrictPolicy()}
}

// Content returns html with everything outside the allow-list removed.
func (s *Sanitizer) Content(html string) string {
	return strings.TrimSpace(s.content.Sanitize(html))
}

// PlainText strips all markup from s.
func (s *Sanitizer) PlainText(text string) string {
	return strings.TrimSpace(s.strict.Sanitize(text))
}
