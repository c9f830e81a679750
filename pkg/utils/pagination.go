package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// Page is one slice of a message history plus what the caller needs to
// ask for the next one.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	HasMore  bool `json:"has_more"`
}

// GetPaginationParams reads ?page= and ?limit= with defaults 1 and 20.
func GetPaginationParams(c echo.Context) PaginationParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("limit"))

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// Paginate cuts items down to the requested page. Pages past the end are
// empty, not an error.
func Paginate[T any](items []T, params PaginationParams) Page[T] {
	page := Page[T]{
		Items:    []T{},
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    len(items),
	}
	if params.Offset >= len(items) {
		return page
	}

	end := params.Offset + params.PageSize
	if end > len(items) {
		end = len(items)
	}
	page.Items = items[params.Offset:end]
	page.HasMore = end < len(items)
	return page
}
