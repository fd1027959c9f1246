package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const pgUniqueViolation = "23505"

// bookColumns lists the selected columns in the order scanBook expects them.
const bookColumns = `id, title, author, publisher, isbn, classification, category, page_count, price::text, created_at, updated_at`

type postgresBookStorage struct {
	logger *zap.Logger
	db     *pgxpool.Pool
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, db *pgxpool.Pool) BookStorage {
	return &postgresBookStorage{logger: logger, db: db}
}

// GetPostgresPool connects to the database and checks the connection.
func GetPostgresPool(ctx context.Context, config *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if config.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = config.Postgres.MaxConns
	}
	if config.Postgres.ConnTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = config.Postgres.ConnTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	return pool, nil
}

// RunPostgresMigrations applies the embedded schema migrations.
func RunPostgresMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func scanBook(row pgx.Row) (Book, error) {
	var book Book
	var price string
	err := row.Scan(
		&book.ID, &book.Title, &book.Author, &book.Publisher, &book.ISBN,
		&book.Classification, &book.Category, &book.PageCount, &price,
		&book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		return book, err
	}
	book.Price, err = decimal.NewFromString(price)
	return book, err
}

// Add inserts a new book record.
func (ps *postgresBookStorage) Add(ctx context.Context, id string, book Book) error {
	const insertSQL = `
		INSERT INTO books (id, title, author, publisher, isbn, classification, category, page_count, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11)`

	_, err := ps.db.Exec(ctx, insertSQL,
		id, book.Title, book.Author, book.Publisher, book.ISBN, book.Classification,
		book.Category, book.PageCount, book.Price.String(), book.CreatedAt, book.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrBookAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("postgres: add book: %w", err)
	}
	return nil
}

// GetOne retrieves a book record based on its ID.
func (ps *postgresBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	book, err := scanBook(ps.db.QueryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	return book, err
}

// Delete removes a book record based on its ID.
func (ps *postgresBookStorage) Delete(ctx context.Context, id string) error {
	tag, err := ps.db.Exec(ctx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Update replaces every mutable column of an existing book record.
func (ps *postgresBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	const updateSQL = `
		UPDATE books SET
			title = $2,
			author = $3,
			publisher = $4,
			isbn = $5,
			classification = $6,
			category = $7,
			page_count = $8,
			price = $9::numeric,
			updated_at = $10
		WHERE id = $1
		RETURNING ` + bookColumns

	updated, err := scanBook(ps.db.QueryRow(ctx, updateSQL,
		id, book.Title, book.Author, book.Publisher, book.ISBN, book.Classification,
		book.Category, book.PageCount, book.Price.String(), book.UpdatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("postgres: update book: %w", err)
	}
	return updated, nil
}

// GetAll retrieves every book in insertion order.
func (ps *postgresBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return ps.queryBooks(ctx, "SELECT "+bookColumns+" FROM books ORDER BY created_at, id")
}

// List pushes the filter, the ordering and the pagination down to the
// database. The total is counted with the same filter.
func (ps *postgresBookStorage) List(ctx context.Context, q ListQuery) (BookPage, error) {
	page := BookPage{Books: []Book{}}
	where := ""
	args := []any{}
	if q.Category != "" {
		where = "WHERE category = $1"
		args = append(args, q.Category)
	}

	if err := ps.db.QueryRow(ctx, "SELECT COUNT(*) FROM books "+where, args...).Scan(&page.TotalNumBooks); err != nil {
		return page, fmt.Errorf("postgres: count books: %w", err)
	}
	if q.PageSize <= 0 || q.PageNum < 1 || q.PageNum-1 > page.TotalNumBooks/q.PageSize {
		return page, nil
	}

	dataSQL := fmt.Sprintf("SELECT %s FROM books %s ORDER BY %s LIMIT $%d OFFSET $%d",
		bookColumns, where, listOrdering(q), len(args)+1, len(args)+2)
	args = append(args, q.PageSize, q.Offset())

	books, err := ps.queryBooks(ctx, dataSQL, args...)
	if err != nil {
		return page, err
	}
	page.Books = books
	return page, nil
}

// listOrdering mirrors QueryBooks: byte-wise title order with insertion
// order as tie-breaker, fully reversed for descending listings.
func listOrdering(q ListQuery) string {
	if q.SortBy != SortByTitle {
		return "created_at, id"
	}
	columns := []string{`title COLLATE "C"`, "created_at", "id"}
	if q.SortDirection == SortDescending {
		for i := range columns {
			columns[i] += " DESC"
		}
	}
	return strings.Join(columns, ", ")
}

// Categories returns the distinct categories sorted ascending.
func (ps *postgresBookStorage) Categories(ctx context.Context) ([]string, error) {
	rows, err := ps.db.Query(ctx, `SELECT category FROM books GROUP BY category ORDER BY category COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (ps *postgresBookStorage) queryBooks(ctx context.Context, sql string, args ...any) ([]Book, error) {
	rows, err := ps.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query books: %w", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}
