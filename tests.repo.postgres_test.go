package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startPostgresDockerContainer(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping docker based test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Failed to start Dockertest: %+v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("Could not connect to Docker: %+v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=books",
			"POSTGRES_PASSWORD=books",
			"POSTGRES_DB=books",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Failed to start postgres: %+v", err)
	}
	_ = resource.Expire(120)

	config := &Config{Postgres: PostgresConfig{
		DSN:         fmt.Sprintf("postgres://books:books@%s/books?sslmode=disable", resource.GetHostPort("5432/tcp")),
		ConnTimeout: 5 * time.Second,
	}}

	var db *pgxpool.Pool
	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		var e error
		db, e = GetPostgresPool(context.Background(), config)
		return e
	})
	if err != nil {
		t.Fatalf("Failed to ping postgres: %+v", err)
	}

	destroyFunc := func() {
		db.Close()
		if err := pool.Purge(resource); err != nil {
			t.Logf("Failed to purge resource: %+v", err)
		}
	}
	return db, destroyFunc
}

func TestPostgresStore(t *testing.T) {
	db, destroyFunc := startPostgresDockerContainer(t)
	defer destroyFunc()

	require.NoError(t, RunPostgresMigrations(db))
	// migrations are idempotent.
	require.NoError(t, RunPostgresMigrations(db))

	runBookStorageSuite(t, NewPostgresBookStorage(zap.NewNop(), db))
}

func TestListOrdering(t *testing.T) {
	assert.Equal(t, "created_at, id", listOrdering(ListQuery{}))
	assert.Equal(t, `title COLLATE "C", created_at, id`, listOrdering(ListQuery{SortBy: SortByTitle, SortDirection: SortAscending}))
	assert.Equal(t, `title COLLATE "C" DESC, created_at DESC, id DESC`, listOrdering(ListQuery{SortBy: SortByTitle, SortDirection: SortDescending}))
}
