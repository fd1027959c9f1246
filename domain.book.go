package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Book represents a catalog entry.
type Book struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Author         string          `json:"author"`
	Publisher      string          `json:"publisher"`
	ISBN           string          `json:"isbn"`
	Classification string          `json:"classification"`
	Category       string          `json:"category"`
	PageCount      int             `json:"pageCount"`
	Price          decimal.Decimal `json:"price"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SortDirection is the ordering applied to a sorted listing.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SortByTitle is the only sort field the catalog recognizes.
const SortByTitle = "title"

// ListQuery holds the listing parameters once parsed and defaulted.
// PageSize and PageNum are always positive.
type ListQuery struct {
	PageSize      int
	PageNum       int
	SortBy        string
	SortDirection SortDirection
	Category      string
}

// Offset returns the number of filtered records to skip.
func (q ListQuery) Offset() int {
	return (q.PageNum - 1) * q.PageSize
}

// BookPage is a bounded slice of the filtered and sorted catalog.
// TotalNumBooks counts the filtered set, not the whole collection.
type BookPage struct {
	Books         []Book `json:"books"`
	TotalNumBooks int    `json:"totalNumBooks"`
}

// BookStorage defines possible operations on book entity. Update and
// Delete return ErrBookNotFound when no record matches the id.
type BookStorage interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, book Book) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	List(ctx context.Context, q ListQuery) (BookPage, error)
	Categories(ctx context.Context) ([]string, error)
}
