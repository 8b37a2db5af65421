package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuerySkip(t *testing.T) {
	assert.Equal(t, 0, Query{}.Skip())
	assert.Equal(t, 0, Query{Limit: 10, Page: 1}.Skip())
	assert.Equal(t, 20, Query{Limit: 10, Page: 3}.Skip())
	assert.Equal(t, math.MaxInt, Query{Limit: 12, Page: 1_000_000_000_000_000_000}.Skip())
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, Query{Where: Where{"meta.title": "x"}, Sort: "-publishedAt", Limit: 10, Page: 2}.Validate())
	assert.ErrorIs(t, Query{Where: Where{"$where": "1"}}.Validate(), ErrInvalidField)
	assert.ErrorIs(t, Query{Sort: "$natural"}.Validate(), ErrInvalidField)
	assert.ErrorIs(t, Query{Limit: 10, Page: math.MaxInt}.Validate(), ErrPageRange)
	assert.NoError(t, Query{Page: math.MaxInt}.Validate())
}

func TestNewResult(t *testing.T) {
	r := NewResult([]int{5, 6}, 6, Query{Limit: 2, Page: 3})
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, 5, r.PagingCounter)
	assert.True(t, r.HasPrevPage)
	assert.False(t, r.HasNextPage)

	r = NewResult[int](nil, 3, Query{Limit: 12, Page: math.MaxInt})
	assert.Empty(t, r.Docs)
	assert.Equal(t, math.MaxInt, r.PagingCounter)
}
