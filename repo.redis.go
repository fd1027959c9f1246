package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// HBooks is the redis hash holding every book keyed by its id.
	HBooks string = "books"

	maxWatchRetries = 5
)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Add inserts a new book record. It never overwrites an existing id.
func (rs *redisBookStorage) Add(ctx context.Context, id string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	created, err := rs.client.HSetNX(ctx, HBooks, id, bookBytes).Result()
	if err != nil {
		return fmt.Errorf("redis: add book: %w", err)
	}
	if !created {
		return ErrBookAlreadyExists
	}
	return nil
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, id).Result()
	if errors.Is(err, redis.Nil) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id string) error {
	removed, err := rs.client.HDel(ctx, HBooks, id).Result()
	if err != nil {
		return fmt.Errorf("redis: delete book: %w", err)
	}
	if removed == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Update replaces every field of an existing book record. The check and the
// write run under WATCH so a concurrent delete cannot be resurrected.
func (rs *redisBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, HBooks, id).Result()
		if errors.Is(err, redis.Nil) {
			return ErrBookNotFound
		}
		if err != nil {
			return err
		}
		var existing Book
		if err = json.Unmarshal([]byte(current), &existing); err != nil {
			return err
		}
		book.ID = id
		book.CreatedAt = existing.CreatedAt
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, HBooks, id, bookBytes)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < maxWatchRetries; i++ {
		err = rs.client.Watch(ctx, txf, HBooks)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		rs.logger.Debug("redis: update book transaction conflict", zap.String("book.id", id), zap.Int("attempt", i+1))
	}
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// GetAll retrieves a list of all books stored in the redis database.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	mapBooks, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(mapBooks))
	for _, bookJSONString := range mapBooks {
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// List loads the whole hash then filters, sorts and paginates in memory.
func (rs *redisBookStorage) List(ctx context.Context, q ListQuery) (BookPage, error) {
	books, err := rs.GetAll(ctx)
	if err != nil {
		return BookPage{Books: []Book{}}, err
	}
	return QueryBooks(books, q), nil
}

// Categories returns the sorted set of categories found in the hash.
func (rs *redisBookStorage) Categories(ctx context.Context) ([]string, error) {
	books, err := rs.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return DistinctCategories(books), nil
}
