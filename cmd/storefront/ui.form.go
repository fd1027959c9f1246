package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type bookSavedMsg struct {
	book    Book
	created bool
	err     error
}

type formField struct {
	label string
	value string
}

// bookForm holds the admin fields of a book being created or edited.
// An empty id means a new book.
type bookForm struct {
	id     string
	fields []formField
	focus  int
}

const (
	fieldTitle = iota
	fieldAuthor
	fieldPublisher
	fieldISBN
	fieldClassification
	fieldCategory
	fieldPageCount
	fieldPrice
)

func newBookForm(book *Book) bookForm {
	f := bookForm{fields: []formField{
		{label: "Title"},
		{label: "Author"},
		{label: "Publisher"},
		{label: "ISBN"},
		{label: "Classification"},
		{label: "Category"},
		{label: "Page count"},
		{label: "Price"},
	}}
	if book == nil {
		return f
	}
	f.id = book.ID
	f.fields[fieldTitle].value = book.Title
	f.fields[fieldAuthor].value = book.Author
	f.fields[fieldPublisher].value = book.Publisher
	f.fields[fieldISBN].value = book.ISBN
	f.fields[fieldClassification].value = book.Classification
	f.fields[fieldCategory].value = book.Category
	f.fields[fieldPageCount].value = strconv.Itoa(book.PageCount)
	f.fields[fieldPrice].value = book.Price.StringFixed(2)
	return f
}

// book converts the typed values. Only the numeric fields are checked
// here, the api validates the rest.
func (f bookForm) book() (Book, error) {
	value := func(i int) string { return strings.TrimSpace(f.fields[i].value) }
	pageCount, err := strconv.Atoi(value(fieldPageCount))
	if err != nil {
		return Book{}, fmt.Errorf("page count must be an integer")
	}
	price, err := decimal.NewFromString(value(fieldPrice))
	if err != nil {
		return Book{}, fmt.Errorf("price must be a decimal number")
	}
	return Book{
		ID:             f.id,
		Title:          value(fieldTitle),
		Author:         value(fieldAuthor),
		Publisher:      value(fieldPublisher),
		ISBN:           value(fieldISBN),
		Classification: value(fieldClassification),
		Category:       value(fieldCategory),
		PageCount:      pageCount,
		Price:          price,
	}, nil
}

func (m model) openForm(book *Book) model {
	m.form = newBookForm(book)
	m.mode = formView
	if book == nil {
		m.status = "New book"
	} else {
		m.status = fmt.Sprintf("Editing %q", book.Title)
	}
	return m
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.form = m.form.copyForm()
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.mode = catalogView
		m.status = "Edit cancelled"
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.form.focus = (m.form.focus + 1) % len(m.form.fields)
	case tea.KeyShiftTab, tea.KeyUp:
		m.form.focus = (m.form.focus + len(m.form.fields) - 1) % len(m.form.fields)
	case tea.KeyBackspace:
		r := []rune(m.form.fields[m.form.focus].value)
		if len(r) > 0 {
			m.form.fields[m.form.focus].value = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.form.fields[m.form.focus].value += " "
	case tea.KeyRunes:
		m.form.fields[m.form.focus].value += string(msg.Runes)
	case tea.KeyEnter:
		book, err := m.form.book()
		if err != nil {
			m.status = fmt.Sprintf("Invalid book: %v", err)
			return m, nil
		}
		m.status = "Saving..."
		return m, saveBookCmd(m.client, book, m.timeout)
	}
	return m, nil
}

// copyForm detaches the fields slice so edits never leak between model values.
func (f bookForm) copyForm() bookForm {
	fields := make([]formField, len(f.fields))
	copy(fields, f.fields)
	f.fields = fields
	return f
}

func (m model) handleSaved(msg bookSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Error("failed to save book", zap.String("book.id", msg.book.ID), zap.Error(msg.err))
		m.status = fmt.Sprintf("Save failed: %v", msg.err)
		return m, nil
	}
	m.mode = catalogView
	m.form = bookForm{}
	if msg.created {
		m.status = fmt.Sprintf("Book %q created", msg.book.Title)
	} else {
		m.status = fmt.Sprintf("Book %q updated", msg.book.Title)
	}
	cmd := tea.Batch(m.reload(), fetchCategoriesCmd(m.client, m.timeout))
	return m, cmd
}

func saveBookCmd(client CatalogClient, book Book, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if book.ID == "" {
			saved, err := client.Create(ctx, book)
			return bookSavedMsg{book: saved, created: true, err: err}
		}
		saved, err := client.Update(ctx, book.ID, book)
		if err != nil {
			saved = book
		}
		return bookSavedMsg{book: saved, err: err}
	}
}

func (m model) viewForm(b *strings.Builder) {
	if m.form.id == "" {
		fmt.Fprintln(b, "New book")
	} else {
		fmt.Fprintf(b, "Edit book %s\n", m.form.id)
	}
	fmt.Fprintln(b, "")
	for i, field := range m.form.fields {
		marker := " "
		if i == m.form.focus {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-15s %s\n", marker, field.label+":", field.value)
	}
	fmt.Fprintln(b, "\nControls: tab/shift+tab field, enter save, esc cancel")
}
