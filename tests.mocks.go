package main

import (
	"context"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc        func(ctx context.Context, id string, book Book) error
	GetOneFunc     func(ctx context.Context, id string) (Book, error)
	DeleteFunc     func(ctx context.Context, id string) error
	UpdateFunc     func(ctx context.Context, id string, book Book) (Book, error)
	GetAllFunc     func(ctx context.Context) ([]Book, error)
	ListFunc       func(ctx context.Context, q ListQuery) (BookPage, error)
	CategoriesFunc func(ctx context.Context) ([]string, error)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, id string, book Book) error {
	return m.AddFunc(ctx, id, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	return m.UpdateFunc(ctx, id, book)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// List mocks the behavior of listing a page of books by the repository.
func (m *MockBookStorage) List(ctx context.Context, q ListQuery) (BookPage, error) {
	return m.ListFunc(ctx, q)
}

// Categories mocks the behavior of listing the categories by the repository.
func (m *MockBookStorage) Categories(ctx context.Context) ([]string, error) {
	return m.CategoriesFunc(ctx)
}

// MemoryBookStorage is a map-backed BookStorage used to drive handlers end to end.
type MemoryBookStorage struct {
	mu    sync.Mutex
	books map[string]Book
}

func NewMemoryBookStorage() *MemoryBookStorage {
	return &MemoryBookStorage{books: make(map[string]Book)}
}

func (m *MemoryBookStorage) Add(_ context.Context, id string, book Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; ok {
		return ErrBookAlreadyExists
	}
	m.books[id] = book
	return nil
}

func (m *MemoryBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

func (m *MemoryBookStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return ErrBookNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *MemoryBookStorage) Update(_ context.Context, id string, book Book) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	book.CreatedAt = old.CreatedAt
	m.books[id] = book
	return book, nil
}

func (m *MemoryBookStorage) GetAll(_ context.Context) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	books := make([]Book, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, b)
	}
	return books, nil
}

func (m *MemoryBookStorage) List(ctx context.Context, q ListQuery) (BookPage, error) {
	books, _ := m.GetAll(ctx)
	return QueryBooks(books, q), nil
}

func (m *MemoryBookStorage) Categories(ctx context.Context) ([]string, error) {
	books, _ := m.GetAll(ctx)
	return DistinctCategories(books), nil
}

// Len returns the number of stored books.
func (m *MemoryBookStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.books)
}

// QueuedBook is a mutation recorded by MockQueuer.
type QueuedBook struct {
	QID  string
	Book Book
}

// MockQueuer records pushed mutations and replays them on Pop.
type MockQueuer struct {
	mu      sync.Mutex
	Pushed  []QueuedBook
	PushErr error
	items   chan QueuedBook
}

func NewMockQueuer(size int) *MockQueuer {
	return &MockQueuer{items: make(chan QueuedBook, size)}
}

func (mq *MockQueuer) Push(_ context.Context, qid string, book Book) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.PushErr != nil {
		return mq.PushErr
	}
	mq.Pushed = append(mq.Pushed, QueuedBook{qid, book})
	if mq.items != nil {
		mq.items <- QueuedBook{qid, book}
	}
	return nil
}

func (mq *MockQueuer) Pop(ctx context.Context, _ ...string) (string, Book, error) {
	select {
	case <-ctx.Done():
		return "", Book{}, ctx.Err()
	case item := <-mq.items:
		return item.QID, item.Book, nil
	}
}

// Mutations returns a copy of the recorded pushes.
func (mq *MockQueuer) Mutations() []QueuedBook {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return append([]QueuedBook(nil), mq.Pushed...)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	mu      sync.Mutex
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{MockNow: time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	mck.mu.Lock()
	defer mck.mu.Unlock()
	return mck.MockNow
}

// Advance moves the mocked time forward.
func (mck *MockClocker) Advance(d time.Duration) {
	mck.mu.Lock()
	defer mck.mu.Unlock()
	mck.MockNow = mck.MockNow.Add(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}
