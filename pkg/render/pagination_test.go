package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"site-cms/pkg/render"
)

func TestPageURL(t *testing.T) {
	assert.Equal(t, "/posts", render.PageURL("/posts", 1))
	assert.Equal(t, "/posts", render.PageURL("/posts/page/3", 1))
	assert.Equal(t, "/posts/page/4", render.PageURL("/posts/page/3", 4))
	assert.Equal(t, "/page/2", render.PageURL("/", 2))
	assert.Equal(t, "/", render.PageURL("/page/2", 1))
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		total int
		want  render.Pagination
	}{
		{
			name: "first page", page: 1, total: 3,
			want: render.Pagination{
				Page: 1, TotalPages: 3, HasNext: true, HasExtraNext: true,
				PrevHref: "/posts", PageHref: "/posts", NextHref: "/posts/page/2",
			},
		},
		{
			name: "middle page", page: 2, total: 3,
			want: render.Pagination{
				Page: 2, TotalPages: 3, HasPrev: true, HasNext: true,
				PrevHref: "/posts", PageHref: "/posts/page/2", NextHref: "/posts/page/3",
			},
		},
		{
			name: "last of many", page: 5, total: 5,
			want: render.Pagination{
				Page: 5, TotalPages: 5, HasPrev: true, HasExtraPrev: true,
				PrevHref: "/posts/page/4", PageHref: "/posts/page/5", NextHref: "/posts/page/6",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render.NewPagination(tt.page, tt.total, "/posts/page/9", render.Hrefs{}))
		})
	}
}

func TestNewPagination_Overrides(t *testing.T) {
	p := render.NewPagination(2, 3, "/posts", render.Hrefs{Prev: "/a", Next: "/b"})
	assert.Equal(t, "/a", p.PrevHref)
	assert.Equal(t, "/posts/page/2", p.PageHref)
	assert.Equal(t, "/b", p.NextHref)
}

func TestPageRange(t *testing.T) {
	assert.Equal(t, "Search produced no results.", render.PageRange("posts", 1, 12, 0))
	assert.Equal(t, "Showing 1 - 1 of 1 Post", render.PageRange("posts", 1, 12, 1))
	assert.Equal(t, "Showing 1 - 12 of 30 Posts", render.PageRange("posts", 1, 12, 30))
	assert.Equal(t, "Showing 25 - 30 of 30 Posts", render.PageRange("posts", 3, 12, 30))
	assert.Equal(t, "Showing 0 of 30 Posts", render.PageRange("posts", 4, 12, 30))
	assert.Equal(t, "Showing 1 - 5 of 5 Docs", render.PageRange("pages", 1, 10, 5))
}
