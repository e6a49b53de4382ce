// Package utils holds small generic helpers with no domain knowledge.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int and returns def when s is blank or
// not a number.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Page cuts items into pages of pageSize and returns the 1-based page plus
// the page count. page and pageSize are floored at 1. A page past the end
// is empty but never nil. The returned slice has no spare capacity, so
// appending to it cannot overwrite items.
func Page[T any](items []T, page, pageSize int) ([]T, int) {
	page, pageSize = max(page, 1), max(pageSize, 1)
	pages := (len(items) + pageSize - 1) / pageSize
	if page > pages {
		return []T{}, pages
	}
	lo := (page - 1) * pageSize
	hi := min(lo+pageSize, len(items))
	return items[lo:hi:hi], pages
}
