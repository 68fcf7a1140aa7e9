package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage = 1
	DefaultSize = 100
	MaxSize     = 1000

	DefaultSort      = "id"
	DefaultDirection = "asc"
)

// Filter is the normalized representation of a caller's search intent. It is
// created per request, compiled once by pkg/query, and discarded.
type Filter struct {
	// Text is the raw search phrase; normalization happens at compile time.
	Text string

	// Playlists is an exact-match allow-list. Empty means no playlist filter.
	Playlists []string

	// Sort and Direction are always members of the allow-list; ParseFilter
	// replaces anything else with the defaults.
	Sort      string
	Direction string

	Page int
	Size int
}

// sortColumns is the fixed allow-list for ORDER BY. Raw caller strings never
// reach the query text; anything outside this set falls back to the default.
var sortColumns = map[string]bool{
	"id":         true,
	"playlist":   true,
	"title":      true,
	"timing":     true,
	"transcript": true,
	"pos_tags":   true,
	"audio":      true,
}

// ValidSortColumn reports whether name is an allowed sort column.
func ValidSortColumn(name string) bool {
	return sortColumns[name]
}

// ParseFilter parses HTTP query parameters into a Filter.
//
// Supported parameters:
//   - text: search phrase
//   - playlists: comma-separated exact playlist names (tokens trimmed,
//     empty tokens dropped)
//   - sort, direction: silently coerced to "id"/"asc" when invalid
//   - page (>= 1, default 1) and size (1..1000, default 100)
//
// Invalid sort or direction values never produce an error. Explicitly
// supplied page or size values that are not positive integers within range
// do: the HTTP boundary turns that into a 400.
func ParseFilter(queryParams url.Values) (Filter, error) {
	f := Filter{
		Sort:      DefaultSort,
		Direction: DefaultDirection,
		Page:      DefaultPage,
		Size:      DefaultSize,
	}

	f.Text = queryParams.Get("text")

	if raw := queryParams.Get("playlists"); raw != "" {
		for _, token := range strings.Split(raw, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				f.Playlists = append(f.Playlists, token)
			}
		}
	}

	if sort := queryParams.Get("sort"); ValidSortColumn(sort) {
		f.Sort = sort
	}

	if direction := queryParams.Get("direction"); direction == "asc" || direction == "desc" {
		f.Direction = direction
	}

	if pageStr := queryParams.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return f, fmt.Errorf("page must be a positive integer, got %q", pageStr)
		}
		f.Page = page
	}

	if sizeStr := queryParams.Get("size"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 || size > MaxSize {
			return f, fmt.Errorf("size must be between 1 and %d, got %q", MaxSize, sizeStr)
		}
		f.Size = size
	}

	return f, nil
}

// Offset returns the row offset for the current page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.Size
}
