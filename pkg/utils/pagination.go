// Package utils provides pagination utilities for the console's local
// listing endpoints. Orders, digital assets, and threat feed events live in
// the in-memory state container, so offset pagination over a stable sorted
// snapshot is sufficient.
package utils

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	// DefaultPageSize is the default number of items per page when not specified
	DefaultPageSize = 20
	// MaxPageSize is the maximum allowed page size to prevent resource exhaustion
	MaxPageSize = 100
	// MinPageSize is the minimum page size
	MinPageSize = 1
)

// PageParams holds pagination parameters extracted from an HTTP request.
// It includes both the raw page/size values and a calculated offset/limit
// for slicing the state snapshot.
type PageParams struct {
	Page     int // 1-based page number
	PageSize int // Number of items per page
	Offset   int // Calculated offset into the snapshot (0-based)
	Limit    int // Calculated slice limit
}

// PageMeta holds pagination metadata to be included in API responses.
// It helps clients navigate through paginated results and understand
// the total available data.
type PageMeta struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"page_size"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	HasPrevious  bool  `json:"has_previous"`
	HasNext      bool  `json:"has_next"`
	PreviousPage *int  `json:"previous_page,omitempty"`
	NextPage     *int  `json:"next_page,omitempty"`
}

// PaginatedResponse wraps data with pagination metadata for API responses.
// This provides a consistent response format across all paginated endpoints.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination PageMeta    `json:"pagination"`
}

// ParsePageParams extracts and validates pagination parameters from an HTTP request.
// It reads the "page" and "page_size" query parameters, applies defaults and
// constraints, and calculates the offset and limit for slicing.
//
// Query parameters:
//   - page: 1-based page number (default: 1, min: 1)
//   - page_size: items per page (default: 20, min: 1, max: 100)
//
// Example:
//
//	params := utils.ParsePageParams(r)
//	page := utils.PageSlice(orders, params)
//	response := utils.NewPaginatedResponse(page, params, int64(len(orders)))
func ParsePageParams(r *http.Request) PageParams {
	page := parseIntParam(r, "page", 1)
	pageSize := parseIntParam(r, "page_size", DefaultPageSize)

	if page < 1 {
		page = 1
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	offset := (page - 1) * pageSize
	limit := pageSize

	return PageParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   offset,
		Limit:    limit,
	}
}

// PageSlice returns the sub-slice of items for the requested page.
// Out-of-range pages yield an empty slice rather than an error, matching
// how the listing endpoints treat navigation past the last page.
func PageSlice[T any](items []T, params PageParams) []T {
	if params.Offset >= len(items) {
		return []T{}
	}
	end := params.Offset + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[params.Offset:end]
}

// CalculateMeta calculates pagination metadata based on the total number of items.
// This generates information about available pages, navigation, and data ranges.
func (p PageParams) CalculateMeta(totalItems int64) PageMeta {
	totalPages := int((totalItems + int64(p.PageSize) - 1) / int64(p.PageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	hasPrevious := p.Page > 1
	hasNext := p.Page < totalPages

	var previousPage *int
	var nextPage *int

	if hasPrevious {
		prev := p.Page - 1
		previousPage = &prev
	}

	if hasNext {
		next := p.Page + 1
		nextPage = &next
	}

	return PageMeta{
		Page:         p.Page,
		PageSize:     p.PageSize,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		HasPrevious:  hasPrevious,
		HasNext:      hasNext,
		PreviousPage: previousPage,
		NextPage:     nextPage,
	}
}

// NewPaginatedResponse creates a paginated response combining data with metadata.
// This is a convenience function that wraps the data and automatically calculates
// pagination metadata.
//
// Example:
//
//	params := utils.ParsePageParams(r)
//	page := utils.PageSlice(assets, params)
//	response := utils.NewPaginatedResponse(page, params, int64(len(assets)))
//	utils.RespondWithSuccess(w, r, response)
func NewPaginatedResponse(data interface{}, params PageParams, totalItems int64) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Pagination: params.CalculateMeta(totalItems),
	}
}

// String returns a human-readable representation of pagination metadata.
func (m PageMeta) String() string {
	return fmt.Sprintf("Page %d/%d (%d items per page, %d total items)",
		m.Page, m.TotalPages, m.PageSize, m.TotalItems)
}

// parseIntParam safely parses an integer query parameter with a default fallback.
func parseIntParam(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
