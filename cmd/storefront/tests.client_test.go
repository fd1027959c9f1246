package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/books", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "5", q.Get("pageSize"))
		assert.Equal(t, "2", q.Get("pageNum"))
		assert.Equal(t, "title", q.Get("sortBy"))
		assert.Equal(t, "desc", q.Get("sortDirection"))
		assert.Equal(t, "Science Fiction", q.Get("category"))
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		_, _ = w.Write([]byte(`{"books":[{"id":"b:1","title":"Dune","price":"9.99"}],"totalNumBooks":6}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	page, err := c.List(context.Background(), ListParams{PageSize: 5, PageNum: 2, Descending: true, Category: "Science Fiction"})
	require.NoError(t, err)
	assert.Equal(t, 6, page.TotalNumBooks)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "9.99", page.Books[0].Price.StringFixed(2))
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(APIError{RequestID: "r:1", Status: 404, Message: "book does not exist", Data: struct{}{}})
		case http.MethodPost:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(APIError{RequestID: "r:2", Status: 400, Message: "failed to create the book", Data: "title is required"})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	_, err := c.Get(context.Background(), "b:1")
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = c.Create(context.Background(), Book{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.EqualError(t, err, "400 failed to create the book: title is required")
	assert.NotErrorIs(t, err, ErrBookNotFound)

	err = c.Delete(context.Background(), "b:1")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_Mutations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/books":
			var b Book
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&b))
			b.ID = "b:new"
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(b)
		case r.Method == http.MethodPut && r.URL.Path == "/v1/books/b:new":
			var b Book
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&b))
			_ = json.NewEncoder(w).Encode(b)
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/books/b:new":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/categories":
			_, _ = w.Write([]byte(`["Fiction","Programming"]`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	created, err := c.Create(ctx, Book{Title: "Go"})
	require.NoError(t, err)
	assert.Equal(t, "b:new", created.ID)

	created.Title = "Go, second edition"
	updated, err := c.Update(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, "Go, second edition", updated.Title)

	assert.NoError(t, c.Delete(ctx, created.ID))

	categories, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction", "Programming"}, categories)
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := c.List(context.Background(), ListParams{})
	assert.Error(t, err)
}
