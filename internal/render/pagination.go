// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"fmt"
	"net/url"
)

// Pagination holds pagination links for list templates.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int64
	HasPrev     bool
	HasNext     bool
	PrevURL     string
	NextURL     string
	Pages       []PageLink
}

// PageLink is one numbered link, or an ellipsis gap.
type PageLink struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// ShouldShow returns true if there is more than one page.
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// NewPagination builds links for baseURL, keeping every non-empty query
// parameter except page.
func NewPagination(current, totalPages int, totalItems int64, baseURL string, query url.Values) Pagination {
	if totalPages < 1 {
		totalPages = 1
	}
	if current < 1 {
		current = 1
	}

	params := make(url.Values)
	for k, v := range query {
		if k != "page" && len(v) > 0 && v[0] != "" {
			params[k] = v
		}
	}
	qs := params.Encode()
	pageURL := func(n int) string {
		if qs != "" {
			return fmt.Sprintf("%s?%s&page=%d", baseURL, qs, n)
		}
		return fmt.Sprintf("%s?page=%d", baseURL, n)
	}

	p := Pagination{
		CurrentPage: current,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
		PrevURL:     pageURL(current - 1),
		NextURL:     pageURL(current + 1),
	}

	// Five numbers centred on the current page, plus first and last.
	start, end := current-2, current+2
	if start < 1 {
		start, end = 1, 5
	}
	if end > totalPages {
		end = totalPages
		start = max(end-4, 1)
	}
	if start > 1 {
		p.Pages = append(p.Pages, PageLink{Number: 1, URL: pageURL(1)})
		if start > 2 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PageLink{Number: i, URL: pageURL(i), IsCurrent: i == current})
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, PageLink{Number: totalPages, URL: pageURL(totalPages)})
	}
	return p
}
