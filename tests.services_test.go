package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBookService(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClocker()

	t.Run("add assigns id and timestamps then replicates", func(t *testing.T) {
		store := NewMemoryBookStorage()
		queue := NewMockQueuer(4)
		bs := NewBookService(zap.NewNop(), newTestConfig(), clock, NewMockUIDHandler("1", true), store, queue)

		book, err := bs.Add(ctx, newTestBook("Service", "Programming"))
		require.NoError(t, err)
		assert.Equal(t, "b:1", book.ID)
		assert.Equal(t, clock.Now(), book.CreatedAt)
		assert.Equal(t, clock.Now(), book.UpdatedAt)
		assert.Equal(t, []QueuedBook{{CreateQueue, book}}, queue.Mutations())
	})

	t.Run("failed writes are not replicated", func(t *testing.T) {
		queue := NewMockQueuer(4)
		failure := errors.New("storage down")
		bs := NewBookService(zap.NewNop(), newTestConfig(), clock, NewMockUIDHandler("1", true), &MockBookStorage{
			AddFunc: func(ctx context.Context, id string, book Book) error {
				return failure
			},
			UpdateFunc: func(ctx context.Context, id string, book Book) (Book, error) {
				return Book{}, ErrBookNotFound
			},
			DeleteFunc: func(ctx context.Context, id string) error {
				return ErrBookNotFound
			},
		}, queue)

		_, err := bs.Add(ctx, newTestBook("Service", "Programming"))
		assert.ErrorIs(t, err, failure)
		_, err = bs.Update(ctx, "b:1", newTestBook("Service", "Programming"))
		assert.ErrorIs(t, err, ErrBookNotFound)
		assert.ErrorIs(t, bs.Delete(ctx, "b:1"), ErrBookNotFound)
		assert.Empty(t, queue.Mutations())
	})

	t.Run("update refreshes only the update time", func(t *testing.T) {
		store := NewMemoryBookStorage()
		queue := NewMockQueuer(4)
		bs := NewBookService(zap.NewNop(), newTestConfig(), clock, NewMockUIDHandler("2", true), store, queue)
		book, err := bs.Add(ctx, newTestBook("Before", "Programming"))
		require.NoError(t, err)

		later := NewMockClocker()
		later.Advance(time.Hour)
		bs = NewBookService(zap.NewNop(), newTestConfig(), later, NewMockUIDHandler("2", true), store, queue)
		updated, err := bs.Update(ctx, book.ID, newTestBook("After", "Fiction"))
		require.NoError(t, err)
		assert.Equal(t, book.ID, updated.ID)
		assert.Equal(t, "After", updated.Title)
		assert.Equal(t, book.CreatedAt, updated.CreatedAt)
		assert.Equal(t, later.Now(), updated.UpdatedAt)

		mutations := queue.Mutations()
		require.Len(t, mutations, 2)
		assert.Equal(t, UpdateQueue, mutations[1].QID)
		assert.Equal(t, "After", mutations[1].Book.Title)
	})

	t.Run("queue failure does not fail the write", func(t *testing.T) {
		store := NewMemoryBookStorage()
		queue := NewMockQueuer(4)
		queue.PushErr = errors.New("queue down")
		bs := NewBookService(zap.NewNop(), newTestConfig(), clock, NewMockUIDHandler("3", true), store, queue)
		_, err := bs.Add(ctx, newTestBook("Service", "Programming"))
		assert.NoError(t, err)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("no queue configured", func(t *testing.T) {
		store := NewMemoryBookStorage()
		bs := NewBookService(zap.NewNop(), newTestConfig(), clock, NewMockUIDHandler("4", true), store, nil)
		book, err := bs.Add(ctx, newTestBook("Service", "Programming"))
		require.NoError(t, err)
		require.NoError(t, bs.Delete(ctx, book.ID))
	})
}

func TestReplicaConsumer(t *testing.T) {
	replica := NewMemoryBookStorage()
	queue := NewMockQueuer(8)
	consumer := NewReplicaConsumer(zap.NewNop(), queue, replica)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	}()

	first := newTestBook("First", "Programming")
	first.ID = "b:1"
	missed := newTestBook("Missed creation", "Fiction")
	missed.ID = "b:2"

	require.NoError(t, queue.Push(ctx, CreateQueue, first))
	// a replayed creation replaces the record.
	first.Title = "First again"
	require.NoError(t, queue.Push(ctx, CreateQueue, first))
	// an update of an unknown record creates it.
	require.NoError(t, queue.Push(ctx, UpdateQueue, missed))
	// deleting an unknown record is a no-op.
	require.NoError(t, queue.Push(ctx, DeleteQueue, Book{ID: "b:404"}))
	require.NoError(t, queue.Push(ctx, "books.unknown", Book{ID: "b:9"}))
	require.NoError(t, queue.Push(ctx, DeleteQueue, Book{ID: "b:1"}))

	assert.Eventually(t, func() bool {
		_, errFirst := replica.GetOne(ctx, "b:1")
		missedBook, errMissed := replica.GetOne(ctx, "b:2")
		return errors.Is(errFirst, ErrBookNotFound) && errMissed == nil && missedBook.Title == "Missed creation"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, replica.Len())

	cancel()
	assert.NoError(t, <-done)
}
