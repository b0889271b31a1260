// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/olegiv/newsdesk/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Site identifies the publication in outgoing mail.
type Site struct {
	Name string
	URL  string
}

// Templates renders the notification emails.
type Templates struct {
	site Site
	tmpl *template.Template
}

// NewTemplates parses the embedded email templates.
func NewTemplates(site Site) (*Templates, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing email templates: %w", err)
	}
	return &Templates{site: site, tmpl: tmpl}, nil
}

type emailData struct {
	Site    Site
	Year    int
	Article *model.Article
	URL     string
}

// Welcome renders the message sent to a new subscriber.
func (t *Templates) Welcome(to string) (Message, error) {
	html, err := t.render("welcome.html", emailData{Site: t.site, Year: time.Now().Year(), URL: t.site.URL})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Welcome to the " + t.site.Name + " newsletter", HTML: html}, nil
}

// ArticlePublished renders the new-article notification.
func (t *Templates) ArticlePublished(to string, a model.Article) (Message, error) {
	html, err := t.render("article.html", emailData{
		Site:    t.site,
		Year:    time.Now().Year(),
		Article: &a,
		URL:     t.site.URL + "/article/" + a.Slug,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "New article: " + a.Title, HTML: html}, nil
}

func (t *Templates) render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
