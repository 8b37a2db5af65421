package render

import (
	"fmt"
	"regexp"
	"strings"
)

var pageSuffix = regexp.MustCompile(`/page/\d+$`)

// PageURL is the archive URL of page n. Page one lives at the base path.
func PageURL(path string, n int) string {
	base := strings.TrimSuffix(pageSuffix.ReplaceAllString(path, ""), "/")
	if n <= 1 {
		if base == "" {
			return "/"
		}
		return base
	}
	return fmt.Sprintf("%s/page/%d", base, n)
}

// Pagination is the view model of the archive pager.
type Pagination struct {
	Page         int
	TotalPages   int
	HasPrev      bool
	HasNext      bool
	HasExtraPrev bool
	HasExtraNext bool
	PrevHref     string
	PageHref     string
	NextHref     string
}

// Hrefs overrides the generated page links.
type Hrefs struct {
	Prev string
	Page string
	Next string
}

func NewPagination(page, totalPages int, path string, hrefs Hrefs) Pagination {
	p := Pagination{
		Page:         page,
		TotalPages:   totalPages,
		HasPrev:      page > 1,
		HasNext:      page < totalPages,
		HasExtraPrev: page-1 > 1,
		HasExtraNext: page+1 < totalPages,
		PrevHref:     hrefs.Prev,
		PageHref:     hrefs.Page,
		NextHref:     hrefs.Next,
	}
	if p.PrevHref == "" {
		p.PrevHref = PageURL(path, page-1)
	}
	if p.PageHref == "" {
		p.PageHref = PageURL(path, page)
	}
	if p.NextHref == "" {
		p.NextHref = PageURL(path, page+1)
	}
	return p
}

type labels struct {
	singular string
	plural   string
}

var collectionLabels = map[string]labels{
	"posts": {singular: "Post", plural: "Posts"},
}

// PageRange describes the slice of an archive being shown, such as
// "Showing 13 - 24 of 30 Posts".
func PageRange(collection string, currentPage, limit, totalDocs int) string {
	if totalDocs <= 0 {
		return "Search produced no results."
	}
	if limit <= 0 {
		limit = 1
	}

	start := 1
	if currentPage > 0 {
		start = (currentPage-1)*limit + 1
	}
	if start > totalDocs {
		start = 0
	}
	page := currentPage
	if page <= 0 {
		page = 1
	}
	end := page * limit
	if end > totalDocs {
		end = totalDocs
	}

	l, ok := collectionLabels[collection]
	if !ok {
		l = labels{singular: "Doc", plural: "Docs"}
	}
	label := l.singular
	if totalDocs > 1 {
		label = l.plural
	}

	if start == 0 {
		return fmt.Sprintf("Showing %d of %d %s", start, totalDocs, label)
	}
	return fmt.Sprintf("Showing %d - %d of %d %s", start, end, totalDocs, label)
}
