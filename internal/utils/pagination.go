package utils

import (
	"net/url"
	"strconv"
)

const DefaultPageSize = 6

// PageSize resolves the configured default page size, falling back when the
// config key is absent or malformed.
func PageSize() int {
	size, err := strconv.Atoi(GetConfig("PAGE_SIZE"))
	if err != nil || size < 1 {
		return DefaultPageSize
	}
	return size
}

// PageLinks builds absolute next/previous links for the list envelope.
// The request's query string is carried over so active filters survive
// paging; only page and limit are rewritten. A link is nil when the
// corresponding page does not exist.
func PageLinks(baseURL, path, rawQuery string, page, limit int, count int64) (next, previous *string) {
	totalPages := (count + int64(limit) - 1) / int64(limit)

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	values.Set("limit", strconv.Itoa(limit))

	pageLink := func(p int) *string {
		values.Set("page", strconv.Itoa(p))
		link := baseURL + path + "?" + values.Encode()
		return &link
	}

	if int64(page) < totalPages {
		next = pageLink(page + 1)
	}
	if page > 1 {
		previous = pageLink(page - 1)
	}
	return next, previous
}
