package main

import (
	"github.com/shopspring/decimal"
)

// CartItem is a selected book with its quantity. Price is the one seen at
// the first addition.
type CartItem struct {
	BookID   string
	Title    string
	Author   string
	Category string
	Price    decimal.Decimal
	Quantity int
	Subtotal decimal.Decimal
	// Removed marks a book that no longer exists in the catalog.
	Removed bool
}

// Store is the cart of one storefront session. It is owned by the ui
// event loop and is not safe for concurrent use.
type Store struct {
	items []CartItem
}

func NewStore() *Store {
	return &Store{items: []CartItem{}}
}

// Add increments the quantity of an already selected book or appends it.
func (s *Store) Add(book Book) {
	for i := range s.items {
		item := &s.items[i]
		if item.BookID != book.ID {
			continue
		}
		if item.Removed {
			*item = newCartItem(book)
			return
		}
		item.Quantity++
		item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		return
	}
	s.items = append(s.items, newCartItem(book))
}

func newCartItem(book Book) CartItem {
	return CartItem{
		BookID:   book.ID,
		Title:    book.Title,
		Author:   book.Author,
		Category: book.Category,
		Price:    book.Price,
		Quantity: 1,
		Subtotal: book.Price,
	}
}

// Remove drops every entry of the book. Unknown ids are ignored.
func (s *Store) Remove(bookID string) {
	kept := s.items[:0]
	for _, item := range s.items {
		if item.BookID != bookID {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

func (s *Store) Clear() {
	s.items = []CartItem{}
}

// Items returns a copy of the entries in insertion order.
func (s *Store) Items() []CartItem {
	return append([]CartItem{}, s.items...)
}

// Len returns the number of entries, removed ones included.
func (s *Store) Len() int {
	return len(s.items)
}

// Count sums the quantities of the entries still in the catalog.
func (s *Store) Count() int {
	count := 0
	for _, item := range s.items {
		if !item.Removed {
			count += item.Quantity
		}
	}
	return count
}

// Total sums the subtotals of the entries still in the catalog.
func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		if !item.Removed {
			total = total.Add(item.Subtotal)
		}
	}
	return total
}

// Reconcile marks the entries whose book is gone according to exists and
// returns how many were newly marked.
func (s *Store) Reconcile(exists func(id string) bool) int {
	marked := 0
	for i := range s.items {
		if s.items[i].Removed || exists(s.items[i].BookID) {
			continue
		}
		s.items[i].Removed = true
		marked++
	}
	return marked
}
