package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type viewMode int

const (
	catalogView viewMode = iota
	cartView
	formView
)

// booksLoadedMsg carries the sequence number of the fetch that produced it.
type booksLoadedMsg struct {
	seq  uint64
	page BookPage
	err  error
}

type categoriesLoadedMsg struct {
	categories []string
	err        error
}

type bookDeletedMsg struct {
	id  string
	err error
}

type reconciledMsg struct {
	missing map[string]bool
	err     error
}

type model struct {
	client  CatalogClient
	cart    *Store
	logger  *zap.Logger
	timeout time.Duration

	pageSize   int
	pageNum    int
	descending bool
	categories []string
	// category indexes categories, -1 selects every category.
	category int

	books      []Book
	total      int
	cursor     int
	cartCursor int
	mode       viewMode
	form       bookForm

	// seq is the sequence number of the latest listing fetch. Only its
	// result is applied.
	seq     uint64
	loading bool
	status  string
}

func newModel(client CatalogClient, cart *Store, logger *zap.Logger, config *Config) model {
	return model{
		client:   client,
		cart:     cart,
		logger:   logger,
		timeout:  config.Timeout,
		pageSize: config.PageSize,
		pageNum:  1,
		category: -1,
		books:    []Book{},
		seq:      1,
		loading:  true,
		status:   "Loading catalog...",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchBooksCmd(m.client, m.params(), m.seq, m.timeout),
		fetchCategoriesCmd(m.client, m.timeout),
	)
}

func (m model) params() ListParams {
	p := ListParams{PageSize: m.pageSize, PageNum: m.pageNum, Descending: m.descending}
	if m.category >= 0 && m.category < len(m.categories) {
		p.Category = m.categories[m.category]
	}
	return p
}

// reload issues a new listing fetch. Results of earlier fetches become stale.
func (m *model) reload() tea.Cmd {
	m.seq++
	m.loading = true
	return fetchBooksCmd(m.client, m.params(), m.seq, m.timeout)
}

func (m model) lastPage() bool {
	return m.pageNum*m.pageSize >= m.total
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == formView {
			return m.updateForm(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == catalogView {
				m.mode = cartView
			} else {
				m.mode = catalogView
			}
			return m, nil
		}
		if m.mode == cartView {
			return m.updateCart(msg)
		}
		return m.updateCatalog(msg)

	case booksLoadedMsg:
		if msg.seq != m.seq {
			m.logger.Debug("dropping stale listing", zap.Uint64("listing.seq", msg.seq), zap.Uint64("listing.latest", m.seq))
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.logger.Error("failed to list books", zap.Error(msg.err))
			m.status = fmt.Sprintf("Listing failed: %v", msg.err)
			return m, nil
		}
		m.books = msg.page.Books
		m.total = msg.page.TotalNumBooks
		if m.cursor >= len(m.books) {
			m.cursor = 0
		}
		m.status = fmt.Sprintf("%d books", m.total)

	case categoriesLoadedMsg:
		if msg.err != nil {
			m.logger.Error("failed to list categories", zap.Error(msg.err))
			m.status = fmt.Sprintf("Categories failed: %v", msg.err)
			return m, nil
		}
		selected := ""
		if m.category >= 0 && m.category < len(m.categories) {
			selected = m.categories[m.category]
		}
		m.categories = msg.categories
		m.category = -1
		for i, c := range m.categories {
			if c == selected {
				m.category = i
			}
		}

	case bookSavedMsg:
		return m.handleSaved(msg)

	case bookDeletedMsg:
		if msg.err != nil {
			m.logger.Error("failed to delete book", zap.String("book.id", msg.id), zap.Error(msg.err))
			m.status = fmt.Sprintf("Delete failed: %v", msg.err)
			return m, nil
		}
		marked := m.cart.Reconcile(func(id string) bool { return id != msg.id })
		m.status = fmt.Sprintf("Book %s deleted", msg.id)
		if marked > 0 {
			m.status += ", cart entry marked removed"
		}
		cmd := tea.Batch(m.reload(), fetchCategoriesCmd(m.client, m.timeout))
		return m, cmd

	case reconciledMsg:
		if msg.err != nil {
			m.logger.Error("failed to reconcile cart", zap.Error(msg.err))
			m.status = fmt.Sprintf("Cart check failed: %v", msg.err)
			return m, nil
		}
		marked := m.cart.Reconcile(func(id string) bool { return !msg.missing[id] })
		m.status = fmt.Sprintf("Cart checked, %d entries no longer available", marked)
	}
	return m, nil
}

func (m model) updateCatalog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.books)-1 {
			m.cursor++
		}
	case "right", "n":
		if !m.lastPage() {
			m.pageNum++
			m.cursor = 0
			cmd := m.reload()
			return m, cmd
		}
	case "left", "p":
		if m.pageNum > 1 {
			m.pageNum--
			m.cursor = 0
			cmd := m.reload()
			return m, cmd
		}
	case "s":
		m.descending = !m.descending
		m.pageNum = 1
		cmd := m.reload()
		return m, cmd
	case "c":
		m.category++
		if m.category >= len(m.categories) {
			m.category = -1
		}
		m.pageNum = 1
		m.cursor = 0
		cmd := m.reload()
		return m, cmd
	case "r":
		cmd := tea.Batch(m.reload(), fetchCategoriesCmd(m.client, m.timeout))
		return m, cmd
	case "enter", "a":
		if len(m.books) == 0 {
			return m, nil
		}
		book := m.books[m.cursor]
		m.cart.Add(book)
		m.status = fmt.Sprintf("Added %q to the cart", book.Title)
	case "d":
		if len(m.books) == 0 {
			return m, nil
		}
		return m, deleteBookCmd(m.client, m.books[m.cursor].ID, m.timeout)
	case "N":
		return m.openForm(nil), nil
	case "e":
		if len(m.books) == 0 {
			return m, nil
		}
		book := m.books[m.cursor]
		return m.openForm(&book), nil
	}
	return m, nil
}

func (m model) updateCart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.cart.Items()
	switch msg.String() {
	case "up", "k":
		if m.cartCursor > 0 {
			m.cartCursor--
		}
	case "down", "j":
		if m.cartCursor < len(items)-1 {
			m.cartCursor++
		}
	case "x":
		if len(items) == 0 {
			return m, nil
		}
		m.cart.Remove(items[m.cartCursor].BookID)
		if m.cartCursor >= m.cart.Len() && m.cartCursor > 0 {
			m.cartCursor--
		}
	case "C":
		m.cart.Clear()
		m.cartCursor = 0
		m.status = "Cart cleared"
	case "R":
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.BookID)
		}
		return m, reconcileCmd(m.client, ids, m.timeout)
	}
	return m, nil
}

func fetchBooksCmd(client CatalogClient, p ListParams, seq uint64, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		page, err := client.List(ctx, p)
		return booksLoadedMsg{seq: seq, page: page, err: err}
	}
}

func fetchCategoriesCmd(client CatalogClient, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		categories, err := client.Categories(ctx)
		return categoriesLoadedMsg{categories: categories, err: err}
	}
}

func deleteBookCmd(client CatalogClient, id string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return bookDeletedMsg{id: id, err: client.Delete(ctx, id)}
	}
}

// reconcileCmd looks every cart book up and reports the ones the catalog no longer has.
func reconcileCmd(client CatalogClient, ids []string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		missing := make(map[string]bool)
		for _, id := range ids {
			_, err := client.Get(ctx, id)
			if errors.Is(err, ErrBookNotFound) {
				missing[id] = true
				continue
			}
			if err != nil {
				return reconciledMsg{err: err}
			}
		}
		return reconciledMsg{missing: missing}
	}
}
