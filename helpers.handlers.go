package main

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	DefaultPageNum  = 1
	MaxPageSize     = 100
)

// DecodeCreateOrUpdateBookRequestBody is a helper function to read the content of a book creation or update request.
func DecodeCreateOrUpdateBookRequestBody(r *http.Request, book *Book) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("invalid create book request body")
	}
	return json.NewDecoder(r.Body).Decode(book)
}

// ValidateCreateBookRequestBody is a helper function to check if the content of a book creation request is valid.
func ValidateCreateBookRequestBody(book *Book) error {
	required := []struct {
		name  string
		value string
	}{
		{"title", book.Title},
		{"author", book.Author},
		{"publisher", book.Publisher},
		{"isbn", book.ISBN},
		{"classification", book.Classification},
		{"category", book.Category},
	}
	for _, field := range required {
		if len(strings.TrimSpace(field.value)) == 0 {
			return missingFieldError(field.name)
		}
	}

	if book.PageCount == 0 {
		return missingFieldError("pageCount")
	}
	if book.PageCount < 0 {
		return invalidFieldError{"pageCount", "must be positive"}
	}

	if book.Price.IsZero() {
		return missingFieldError("price")
	}
	if book.Price.IsNegative() {
		return invalidFieldError{"price", "must be positive"}
	}

	return nil
}

// ValidateUpdateBookRequestBody is a helper function to check if the content of a book update request is valid.
// The identifier comes from the path and may be repeated in the body only when both match.
func ValidateUpdateBookRequestBody(id string, book *Book) error {
	if err := ValidateCreateBookRequestBody(book); err != nil {
		return err
	}

	if len(book.ID) != 0 && book.ID != id {
		return invalidFieldError{"id", "does not match the requested book"}
	}

	return nil
}

// ParseListQuery reads the listing parameters from the url query.
// Absent parameters get their defaults, page size is capped to maxPageSize.
func ParseListQuery(values url.Values, maxPageSize int) (ListQuery, error) {
	q := ListQuery{
		PageSize:      DefaultPageSize,
		PageNum:       DefaultPageNum,
		SortBy:        SortByTitle,
		SortDirection: SortAscending,
		Category:      values.Get("category"),
	}

	var err error
	if q.PageSize, err = parsePositiveInt(values, "pageSize", DefaultPageSize); err != nil {
		return q, err
	}
	if q.PageNum, err = parsePositiveInt(values, "pageNum", DefaultPageNum); err != nil {
		return q, err
	}

	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	// keeps the offset within int range, such a page is past the end anyway.
	if q.PageNum > math.MaxInt/q.PageSize {
		q.PageNum = math.MaxInt / q.PageSize
	}

	if values.Has("sortBy") {
		q.SortBy = strings.ToLower(values.Get("sortBy"))
	}

	if strings.EqualFold(values.Get("sortDirection"), string(SortDescending)) {
		q.SortDirection = SortDescending
	}

	return q, nil
}

func parsePositiveInt(values url.Values, key string, fallback int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidFieldError{key, "must be an integer"}
	}
	if n < 1 {
		return 0, invalidFieldError{key, "must be positive"}
	}
	return n, nil
}
