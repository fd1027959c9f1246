package main

import (
	"fmt"
	"strings"
)

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "Bookstore")
	fmt.Fprintln(b, "")
	switch m.mode {
	case cartView:
		m.viewCart(b)
	case formView:
		m.viewForm(b)
	default:
		m.viewCatalog(b)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	return b.String()
}

func (m model) viewCatalog(b *strings.Builder) {
	category := "all"
	if p := m.params(); p.Category != "" {
		category = p.Category
	}
	direction := "asc"
	if m.descending {
		direction = "desc"
	}
	pages := (m.total + m.pageSize - 1) / m.pageSize
	if pages == 0 {
		pages = 1
	}
	fmt.Fprintf(b, "Catalog  page %d/%d  category: %s  title %s  cart: %d items\n\n", m.pageNum, pages, category, direction, m.cart.Count())

	if m.loading && len(m.books) == 0 {
		fmt.Fprintln(b, " loading...")
	}
	for i, book := range m.books {
		marker := " "
		if i == m.cursor {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-40s %-24s %-14s %8s\n", marker, truncate(book.Title, 40), truncate(book.Author, 24), truncate(book.Category, 14), book.Price.StringFixed(2))
	}
	fmt.Fprintln(b, "\nControls: up/down select, left/right page, s sort, c category, enter add to cart, N new, e edit, d delete, r reload, tab cart, q quit")
}

func (m model) viewCart(b *strings.Builder) {
	fmt.Fprintf(b, "Cart  %d items  total %s\n\n", m.cart.Count(), m.cart.Total().StringFixed(2))
	items := m.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(b, " the cart is empty")
	}
	for i, item := range items {
		marker := " "
		if i == m.cartCursor {
			marker = ">"
		}
		line := fmt.Sprintf(" %s %-40s x%-3d %8s %9s", marker, truncate(item.Title, 40), item.Quantity, item.Price.StringFixed(2), item.Subtotal.StringFixed(2))
		if item.Removed {
			line += "  (no longer available)"
		}
		fmt.Fprintln(b, line)
	}
	fmt.Fprintln(b, "\nControls: up/down select, x remove, C clear, R check availability, tab catalog, q quit")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
