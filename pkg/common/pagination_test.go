package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPaginationParams(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		page     int
		pageSize int
	}{
		{"defaults", "/sessions", 1, 20},
		{"explicit", "/sessions?page=3&page_size=10", 3, 10},
		{"capped page size", "/sessions?page_size=9999", 1, 100},
		{"garbage ignored", "/sessions?page=abc&page_size=-5", 1, 20},
		{"zero page ignored", "/sessions?page=0", 1, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.url, nil)
			params := ExtractPaginationParams(r)
			assert.Equal(t, tc.page, params.Page)
			assert.Equal(t, tc.pageSize, params.PageSize)
		})
	}
}

func TestBounds(t *testing.T) {
	p := PaginationParams{Page: 2, PageSize: 10}

	start, end := p.Bounds(25)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)

	start, end = p.Bounds(12)
	assert.Equal(t, 10, start)
	assert.Equal(t, 12, end, "end clamps to total")

	start, end = p.Bounds(5)
	assert.Equal(t, 5, start, "a page past the data yields an empty slice")
	assert.Equal(t, 5, end)

	start, end = PaginationParams{Page: 1, PageSize: 20}.Bounds(0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 3, CalculateTotalPages(25, 10))
	assert.Equal(t, 2, CalculateTotalPages(20, 10))
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 0, CalculateTotalPages(10, 0))
}

func TestBuildPaginationMeta(t *testing.T) {
	meta := BuildPaginationMeta(2, 10, 25)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrev)

	meta = BuildPaginationMeta(1, 10, 5)
	assert.False(t, meta.HasNext)
	assert.False(t, meta.HasPrev)
}
