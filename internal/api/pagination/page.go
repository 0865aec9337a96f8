package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the fixed number of results per page. It is a system constant,
// not client-configurable.
const PageSize = 10

var (
	ErrInvalidPage = errors.New("invalid page number")
	// ErrPageOutOfRange maps to 404: the page exists in the query string but
	// not in the collection.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Page identifies one fixed-size window of a result set.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ParsePage reads the page query parameter. An absent parameter means page 1;
// anything that is not a positive integer is rejected.
func ParsePage(values url.Values) (Page, error) {
	page := Page{Number: 1, Size: PageSize}

	raw := strings.TrimSpace(values.Get("page"))
	if raw == "" {
		return page, nil
	}

	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return Page{}, ErrInvalidPage
	}
	page.Number = number
	return page, nil
}

// LastPage returns the highest valid page number for count results. An empty
// collection still has page 1 (which renders empty).
func LastPage(count, size int) int {
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// Links computes the next/previous page URLs for a list response. baseURL
// makes them absolute when configured; otherwise they are rooted at path.
// Non-page query parameters (filters, search) are preserved.
func Links(baseURL, path string, query url.Values, page Page, count int) (next, previous *string) {
	last := LastPage(count, page.Size)
	if page.Number < last {
		link := pageLink(baseURL, path, query, page.Number+1)
		next = &link
	}
	if page.Number > 1 {
		link := pageLink(baseURL, path, query, page.Number-1)
		previous = &link
	}
	return next, previous
}

func pageLink(baseURL, path string, query url.Values, number int) string {
	values := url.Values{}
	for key, vals := range query {
		if key == "page" {
			continue
		}
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	if number > 1 {
		values.Set("page", strconv.Itoa(number))
	}

	target := strings.TrimSuffix(baseURL, "/") + path
	if encoded := values.Encode(); encoded != "" {
		return fmt.Sprintf("%s?%s", target, encoded)
	}
	return target
}
