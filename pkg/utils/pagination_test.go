package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  PaginationParams
	}{
		{"defaults", "", PaginationParams{Page: 1, PageSize: 20, Offset: 0}},
		{"explicit", "?page=3&limit=10", PaginationParams{Page: 3, PageSize: 10, Offset: 20}},
		{"limit too large", "?limit=500", PaginationParams{Page: 1, PageSize: 20, Offset: 0}},
		{"garbage", "?page=abc&limit=-1", PaginationParams{Page: 1, PageSize: 20, Offset: 0}},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, GetPaginationParams(c))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page := Paginate(items, PaginationParams{Page: 1, PageSize: 2, Offset: 0})
	assert.Equal(t, []int{1, 2}, page.Items)
	assert.True(t, page.HasMore)
	assert.Equal(t, 5, page.Total)

	page = Paginate(items, PaginationParams{Page: 3, PageSize: 2, Offset: 4})
	assert.Equal(t, []int{5}, page.Items)
	assert.False(t, page.HasMore)

	page = Paginate(items, PaginationParams{Page: 9, PageSize: 2, Offset: 16})
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}
