package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

func (bs *boltBookStorage) bucket(tx *bolt.Tx) *bolt.Bucket {
	return tx.Bucket([]byte(bs.config.BucketName))
}

// Add inserts a new book record into boltdb store.
func (bs *boltBookStorage) Add(_ context.Context, id string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get([]byte(id)) != nil {
			return ErrBookAlreadyExists
		}
		return b.Put([]byte(id), bookBytes)
	})
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		result := bs.bucket(tx).Get([]byte(id))
		if result == nil {
			return ErrBookNotFound
		}
		return json.Unmarshal(result, &book)
	})
	return book, err
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id string) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		if b.Get([]byte(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Update replaces every field of an existing book record. The creation
// time of the stored record is kept.
func (bs *boltBookStorage) Update(_ context.Context, id string, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := bs.bucket(tx)
		current := b.Get([]byte(id))
		if current == nil {
			return ErrBookNotFound
		}
		var existing Book
		if err := json.Unmarshal(current, &existing); err != nil {
			return err
		}
		book.ID = id
		book.CreatedAt = existing.CreatedAt
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), bookBytes)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// GetAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		return bs.bucket(tx).ForEach(func(_, v []byte) error {
			var book Book
			if err := json.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// List reads the bucket in one transaction then filters, sorts and paginates in memory.
func (bs *boltBookStorage) List(ctx context.Context, q ListQuery) (BookPage, error) {
	books, err := bs.GetAll(ctx)
	if err != nil {
		return BookPage{Books: []Book{}}, err
	}
	return QueryBooks(books, q), nil
}

// Categories returns the sorted set of categories found in the bucket.
func (bs *boltBookStorage) Categories(ctx context.Context) ([]string, error) {
	books, err := bs.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return DistinctCategories(books), nil
}
