package main

import (
	"context"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Add(ctx context.Context, book Book) (Book, error)
	GetOne(ctx context.Context, id string) (Book, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, book Book) (Book, error)
	List(ctx context.Context, q ListQuery) (BookPage, error)
	Categories(ctx context.Context) ([]string, error)
}

type BookService struct {
	logger     *zap.Logger
	config     *Config
	clock      Clocker
	idsHandler UIDHandler
	storage    BookStorage
	queue      Queuer
}

func NewBookService(logger *zap.Logger, config *Config, clock Clocker, ids UIDHandler, storage BookStorage, queue Queuer) BookServiceProvider {
	if queue == nil {
		queue = nopQueue{}
	}
	return &BookService{
		logger:     logger,
		config:     config,
		clock:      clock,
		idsHandler: ids,
		storage:    storage,
		queue:      queue,
	}
}

// Add assigns the identifier and the timestamps then stores the book.
func (bs *BookService) Add(ctx context.Context, book Book) (Book, error) {
	now := bs.clock.Now().UTC()
	book.ID = bs.idsHandler.Generate(BookIDPrefix)
	book.CreatedAt = now
	book.UpdatedAt = now

	if err := bs.storage.Add(ctx, book.ID, book); err != nil {
		return book, err
	}
	bs.replicate(ctx, CreateQueue, book)
	return book, nil
}

func (bs *BookService) GetOne(ctx context.Context, id string) (Book, error) {
	return bs.storage.GetOne(ctx, id)
}

func (bs *BookService) Delete(ctx context.Context, id string) error {
	if err := bs.storage.Delete(ctx, id); err != nil {
		return err
	}
	bs.replicate(ctx, DeleteQueue, Book{ID: id})
	return nil
}

// Update replaces every field of the stored book. Only the identifier
// and the creation time survive from the previous version.
func (bs *BookService) Update(ctx context.Context, id string, book Book) (Book, error) {
	book.ID = id
	book.UpdatedAt = bs.clock.Now().UTC()
	updated, err := bs.storage.Update(ctx, id, book)
	if err != nil {
		return updated, err
	}
	bs.replicate(ctx, UpdateQueue, updated)
	return updated, nil
}

func (bs *BookService) List(ctx context.Context, q ListQuery) (BookPage, error) {
	return bs.storage.List(ctx, q)
}

func (bs *BookService) Categories(ctx context.Context) ([]string, error) {
	return bs.storage.Categories(ctx)
}

// replicate publishes a successful mutation. A failure only degrades the
// replica so it is logged and never returned to the caller.
func (bs *BookService) replicate(ctx context.Context, qid string, book Book) {
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.String("book.id", book.ID), zap.Error(err))
	}
}
