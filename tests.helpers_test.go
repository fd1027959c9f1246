package main

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseListQuery(t *testing.T) {
	testCases := []struct {
		name    string
		query   string
		max     int
		want    ListQuery
		wantErr string
	}{
		{
			name:  "defaults",
			query: "",
			max:   100,
			want:  ListQuery{PageSize: 10, PageNum: 1, SortBy: SortByTitle, SortDirection: SortAscending},
		},
		{
			name:  "every parameter",
			query: "pageSize=5&pageNum=3&sortBy=Title&sortDirection=DESC&category=Fiction",
			max:   100,
			want:  ListQuery{PageSize: 5, PageNum: 3, SortBy: SortByTitle, SortDirection: SortDescending, Category: "Fiction"},
		},
		{
			name:  "page size capped",
			query: "pageSize=1000",
			max:   50,
			want:  ListQuery{PageSize: 50, PageNum: 1, SortBy: SortByTitle, SortDirection: SortAscending},
		},
		{
			name:  "page number bounded by the page size",
			query: "pageNum=9223372036854775807&pageSize=10",
			max:   100,
			want:  ListQuery{PageSize: 10, PageNum: math.MaxInt / 10, SortBy: SortByTitle, SortDirection: SortAscending},
		},
		{
			name:  "unknown direction falls back to ascending",
			query: "sortDirection=sideways",
			max:   100,
			want:  ListQuery{PageSize: 10, PageNum: 1, SortBy: SortByTitle, SortDirection: SortAscending},
		},
		{
			name:  "unknown sort field keeps insertion order",
			query: "sortBy=price",
			max:   100,
			want:  ListQuery{PageSize: 10, PageNum: 1, SortBy: "price", SortDirection: SortAscending},
		},
		{name: "zero page size", query: "pageSize=0", max: 100, wantErr: "pageSize must be positive"},
		{name: "negative page number", query: "pageNum=-2", max: 100, wantErr: "pageNum must be positive"},
		{name: "non numeric page size", query: "pageSize=ten", max: 100, wantErr: "pageSize must be an integer"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			got, err := ParseListQuery(values, tc.max)
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateCreateBookRequestBody(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(b *Book)
		wantErr string
	}{
		{"valid book", func(b *Book) {}, ""},
		{"missing title", func(b *Book) { b.Title = "" }, "title is required"},
		{"blank author", func(b *Book) { b.Author = "   " }, "author is required"},
		{"missing publisher", func(b *Book) { b.Publisher = "" }, "publisher is required"},
		{"missing isbn", func(b *Book) { b.ISBN = "" }, "isbn is required"},
		{"missing classification", func(b *Book) { b.Classification = "" }, "classification is required"},
		{"missing category", func(b *Book) { b.Category = "" }, "category is required"},
		{"missing page count", func(b *Book) { b.PageCount = 0 }, "pageCount is required"},
		{"negative page count", func(b *Book) { b.PageCount = -3 }, "pageCount must be positive"},
		{"missing price", func(b *Book) { b.Price = decimal.Zero }, "price is required"},
		{"negative price", func(b *Book) { b.Price = decimal.RequireFromString("-1.50") }, "price must be positive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			book := newTestBook("Title", "Programming")
			tc.mutate(&book)
			err := ValidateCreateBookRequestBody(&book)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidateUpdateBookRequestBody(t *testing.T) {
	book := newTestBook("Title", "Programming")
	assert.NoError(t, ValidateUpdateBookRequestBody(testBookID, &book))

	book.ID = testBookID
	assert.NoError(t, ValidateUpdateBookRequestBody(testBookID, &book))

	book.ID = "b:other"
	assert.EqualError(t, ValidateUpdateBookRequestBody(testBookID, &book), "id does not match the requested book")

	book.ID = ""
	book.Category = ""
	assert.EqualError(t, ValidateUpdateBookRequestBody(testBookID, &book), "category is required")
}

func TestDecodeCreateOrUpdateBookRequestBody(t *testing.T) {
	var book Book
	req := httptest.NewRequest(http.MethodPost, "/v1/books", nil)
	assert.Error(t, DecodeCreateOrUpdateBookRequestBody(req, &book))

	req = httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBufferString(`{"title":"Go","price":"12.30","pageCount":10}`))
	require.NoError(t, DecodeCreateOrUpdateBookRequestBody(req, &book))
	assert.Equal(t, "Go", book.Title)
	assert.Equal(t, 10, book.PageCount)
	assert.Equal(t, "12.3", book.Price.String())
}

func TestIDsHandler(t *testing.T) {
	ids := NewIDsHandler()
	id := ids.Generate(BookIDPrefix)
	assert.True(t, strings.HasPrefix(id, "b:"))
	assert.True(t, ids.IsValid(id, BookIDPrefix))
	assert.NotEqual(t, id, ids.Generate(BookIDPrefix))

	assert.False(t, ids.IsValid(id, RequestIDPrefix))
	assert.False(t, ids.IsValid("b:not-a-uuid", BookIDPrefix))
	assert.False(t, ids.IsValid(strings.TrimPrefix(id, "b:"), BookIDPrefix))
	assert.False(t, ids.IsValid("b:00000000-0000-0000-0000-000000000000", BookIDPrefix))
}

func TestGetRequestSourceIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:4321"
	assert.Equal(t, "192.168.1.10", GetRequestSourceIP(req))

	req.Header.Set("X-Forwarded-For", "garbage, 10.1.1.1")
	assert.Equal(t, "10.1.1.1", GetRequestSourceIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.1")
	assert.Equal(t, "172.16.0.1", GetRequestSourceIP(req))
	assert.Equal(t, "192.168.1.10", GetRemoteIP(req))

	req.RemoteAddr = "not-an-address"
	assert.Equal(t, "", GetRemoteIP(req))
}

func validTestConfig() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: "8080"},
		Redis:   RedisConfig{Host: "localhost", Port: "6379"},
		BoltDB:  BoltDBConfig{FilePath: "books.db", BucketName: "books"},
		Storage: StorageConfig{},
	}
}

func TestInitConfig(t *testing.T) {
	t.Run("defaults and build infos", func(t *testing.T) {
		config := validTestConfig()
		require.NoError(t, InitConfig(config, "abc123", "v1.0.0", "2023-07-02"))
		assert.Equal(t, StorageRedis, config.Storage.Driver)
		assert.Equal(t, MaxPageSize, config.Server.MaxPageSize)
		assert.Equal(t, 100, config.LogMaxSize)
		assert.Equal(t, "abc123", config.GitCommit)
		assert.Equal(t, "v1.0.0", config.GitTag)
		assert.Equal(t, "2023-07-02", config.BuildTime)
	})

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing server port", func(c *Config) { c.Server.Port = "" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"redis without address", func(c *Config) { c.Redis.Host = "" }},
		{"bolt without bucket", func(c *Config) { c.Storage.Driver = StorageBoltDB; c.BoltDB.BucketName = "" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = StoragePostgres }},
		{"replica without redis", func(c *Config) { c.Storage.Driver = StorageBoltDB; c.BoltDB.Replica = true }},
		{"rate limit without rps", func(c *Config) { c.RateLimit = RateLimitConfig{Enable: true, Burst: 1} }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := validTestConfig()
			tc.mutate(config)
			assert.Error(t, InitConfig(config, "", "", ""))
		})
	}
}

func TestLoadConfigFileAndEnvs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
log_level: debug
server:
  host: 127.0.0.1
  port: "9090"
  request_timeout: 15s
storage:
  driver: bolt
boltdb:
  filepath: ./books.db
  bucket_name: books
ratelimit:
  enable: true
  rps: 5
  burst: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, config.LogLevel)
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 15*time.Second, config.Server.RequestTimeout)
	assert.Equal(t, StorageBoltDB, config.Storage.Driver)
	assert.Equal(t, 5.0, config.RateLimit.RPS)

	t.Setenv("BOOKS_SERVER_PORT", "7070")
	t.Setenv("BOOKS_STORAGE_DRIVER", StoragePostgres)
	t.Setenv("BOOKS_POSTGRES_DSN", "postgres://localhost/books")
	require.NoError(t, LoadConfigEnvs("BOOKS", config))
	assert.Equal(t, "7070", config.Server.Port)
	assert.Equal(t, StoragePostgres, config.Storage.Driver)
	require.NoError(t, InitConfig(config, "", "", ""))

	_, err = LoadConfigFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestRSyncWriter(t *testing.T) {
	dir := t.TempDir()
	clock := NewMockClocker()
	w := NewRSyncWriter(&Config{LogFolder: dir, LogMaxSize: 1}, clock)

	_, err := w.Write([]byte("first line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	clock.Advance(time.Second)
	_, err = w.Write(bytes.Repeat([]byte("x"), megabyte))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = w.Write(bytes.Repeat([]byte("x"), megabyte+1))
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{IsProduction: true, LogLevel: zapcore.InfoLevel, GitTag: "v1.0.0"}
	logger, flush := SetupLogging(config, zapcore.AddSync(&buf), NewClock(true))
	logger.Debug("hidden")
	logger.Info("visible")
	require.NoError(t, flush())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"app.tag":"v1.0.0"`)
}

func TestCreateLogFilePath(t *testing.T) {
	ts := time.Date(2023, 7, 2, 13, 4, 5, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "20230702.130405.prod.log"), CreateLogFilePath("logs", true, ts))
	assert.Equal(t, filepath.Join("logs", "20230702.130405.dev.log"), CreateLogFilePath("logs", false, ts))
}
