package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	CreateQueue = "books.creation"
	UpdateQueue = "books.updating"
	DeleteQueue = "books.deletion"
)

var (
	_ Queuer = (*redisQueue)(nil) // ensure redisQueue implements Queuer.
	_ Queuer = nopQueue{}         // ensure nopQueue implements Queuer.
)

// Queuer describes a queue of book mutations.
type Queuer interface {
	Push(ctx context.Context, qid string, book Book) error
	Pop(ctx context.Context, qids ...string) (string, Book, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// Push enqueues a book onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, bookBytes).Err()
}

// Pop blocks until a book is available on one of the queue ids
// and returns it with the id of the queue it came from.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	var book Book
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return "", book, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &book); err != nil {
		return "", book, err
	}
	return infos[0], book, nil
}

// nopQueue is used when no replica consumes the mutations.
type nopQueue struct{}

func (nopQueue) Push(context.Context, string, Book) error { return nil }

func (nopQueue) Pop(ctx context.Context, _ ...string) (string, Book, error) {
	<-ctx.Done()
	return "", Book{}, ctx.Err()
}
