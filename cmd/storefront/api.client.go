package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrBookNotFound = errors.New("book not found")

// Book mirrors the catalog record served by the api.
type Book struct {
	ID             string          `json:"id,omitempty"`
	Title          string          `json:"title"`
	Author         string          `json:"author"`
	Publisher      string          `json:"publisher"`
	ISBN           string          `json:"isbn"`
	Classification string          `json:"classification"`
	Category       string          `json:"category"`
	PageCount      int             `json:"pageCount"`
	Price          decimal.Decimal `json:"price"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// BookPage is one page of a listing with the size of the filtered set.
type BookPage struct {
	Books         []Book `json:"books"`
	TotalNumBooks int    `json:"totalNumBooks"`
}

// ListParams are the listing parameters sent to the api. Zero values are omitted.
type ListParams struct {
	PageSize   int
	PageNum    int
	Descending bool
	Category   string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.PageNum > 0 {
		v.Set("pageNum", strconv.Itoa(p.PageNum))
	}
	v.Set("sortBy", "title")
	if p.Descending {
		v.Set("sortDirection", "desc")
	}
	if p.Category != "" {
		v.Set("category", p.Category)
	}
	return v
}

// APIError is the error envelope returned by the api.
type APIError struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func (e *APIError) Error() string {
	if detail, ok := e.Data.(string); ok && detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Is makes 404 responses match ErrBookNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrBookNotFound && e.Status == http.StatusNotFound
}

// CatalogClient describes the catalog operations used by the storefront.
type CatalogClient interface {
	List(ctx context.Context, p ListParams) (BookPage, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (Book, error)
	Create(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, id string, book Book) (Book, error)
	Delete(ctx context.Context, id string) error
}

// Client talks to the catalog http api.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context, p ListParams) (BookPage, error) {
	var page BookPage
	err := c.do(ctx, http.MethodGet, "/v1/books?"+p.values().Encode(), nil, &page)
	if page.Books == nil {
		page.Books = []Book{}
	}
	return page, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := c.do(ctx, http.MethodGet, "/v1/categories", nil, &categories)
	return categories, err
}

func (c *Client) Get(ctx context.Context, id string) (Book, error) {
	var book Book
	err := c.do(ctx, http.MethodGet, "/v1/books/"+url.PathEscape(id), nil, &book)
	return book, err
}

func (c *Client) Create(ctx context.Context, book Book) (Book, error) {
	var created Book
	err := c.do(ctx, http.MethodPost, "/v1/books", book, &created)
	return created, err
}

func (c *Client) Update(ctx context.Context, id string, book Book) (Book, error) {
	var updated Book
	err := c.do(ctx, http.MethodPut, "/v1/books/"+url.PathEscape(id), book, &updated)
	return updated, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/books/"+url.PathEscape(id), nil, nil)
}

// do sends the request and decodes a success body into out, or the
// error envelope into an *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err = json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Status = resp.StatusCode
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
