package main

import (
	"sort"
)

// QueryBooks applies a listing query to an in-memory collection in the
// order filter, sort, count, paginate. Unsorted listings keep insertion
// order (creation time, then id). The input slice is left untouched.
func QueryBooks(books []Book, q ListQuery) BookPage {
	filtered := make([]Book, 0, len(books))
	for _, b := range books {
		if q.Category != "" && b.Category != q.Category {
			continue
		}
		filtered = append(filtered, b)
	}

	less := insertedBefore
	if q.SortBy == SortByTitle {
		less = titleBefore
		if q.SortDirection == SortDescending {
			less = func(a, b Book) bool { return titleBefore(b, a) }
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return less(filtered[i], filtered[j])
	})

	page := BookPage{Books: []Book{}, TotalNumBooks: len(filtered)}
	if q.PageSize <= 0 || q.PageNum < 1 || q.PageNum-1 > len(filtered)/q.PageSize {
		return page
	}
	start := q.Offset()
	if start >= len(filtered) {
		return page
	}
	end := start + q.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	page.Books = append(page.Books, filtered[start:end]...)
	return page
}

// titleBefore orders by title, then by insertion order. Descending
// listings use its exact reverse.
func titleBefore(a, b Book) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return insertedBefore(a, b)
}

func insertedBefore(a, b Book) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// DistinctCategories returns every category value present in books,
// deduplicated and sorted ascending.
func DistinctCategories(books []Book) []string {
	seen := make(map[string]struct{}, len(books))
	categories := []string{}
	for _, b := range books {
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		categories = append(categories, b.Category)
	}
	sort.Strings(categories)
	return categories
}
