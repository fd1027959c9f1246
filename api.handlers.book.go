package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		StatusResponse{
			RequestID: requestID,
			Status:    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			Message:   "Hello. Books store api is available. Enjoy :)",
		},
	); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send status response", zap.Error(err))
	}
}

// sendError logs the failure with the request scoped logger and replies with the error envelope.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}, err error) {
	logger := api.GetLoggerFromContext(r.Context())
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger.Error(message, zap.Int("response.status", status), zap.Error(err))
	if err = WriteErrorResponse(r.Context(), w, NewAPIError(requestID, status, message, data)); err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
}

func (api *APIHandler) sendResponse(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	if err := WriteResponse(r.Context(), w, status, payload); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}

// validBookID rejects malformed identifiers before any storage access.
func (api *APIHandler) validBookID(w http.ResponseWriter, r *http.Request, id string) bool {
	if api.idsHandler.IsValid(id, BookIDPrefix) {
		return true
	}
	api.sendError(w, r, http.StatusBadRequest, "book id provided is not valid", EmptyData, fmt.Errorf("invalid book id %q", id))
	return false
}

// CreateBook godoc
// @Summary  Create a book
// @Tags     books
// @Accept   json
// @Produce  json
// @Param    book body Book true "book to create"
// @Success  201 {object} Book
// @Failure  400 {object} APIError
// @Router   /v1/books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	book := Book{}
	if err := DecodeCreateOrUpdateBookRequestBody(r, &book); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", "invalid json payload", err)
		return
	}

	if err := ValidateCreateBookRequestBody(&book); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", err.Error(), err)
		return
	}

	book, err := api.bookService.Add(r.Context(), book)
	if errors.Is(err, ErrBookAlreadyExists) {
		api.sendError(w, r, http.StatusConflict, "book already exists", EmptyData, err)
		return
	}
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to create the book", EmptyData, err)
		return
	}

	api.GetLoggerFromContext(r.Context()).Info("success to create book", zap.String("book.id", book.ID))
	api.sendResponse(w, r, http.StatusCreated, book)
}

// ListBooks godoc
// @Summary  List a page of books
// @Tags     books
// @Produce  json
// @Param    pageSize      query int    false "page size"   default(10)
// @Param    pageNum       query int    false "page number" default(1)
// @Param    sortBy        query string false "sort field"  Enums(title)
// @Param    sortDirection query string false "direction"   Enums(asc, desc)
// @Param    category      query string false "exact category filter"
// @Success  200 {object} BookPage
// @Failure  400 {object} APIError
// @Router   /v1/books [get]
func (api *APIHandler) ListBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// listings can be large: extend the write deadline of this response only.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(api.config.Server.LongRequestWriteTimeout)); err != nil {
		api.GetLoggerFromContext(r.Context()).Debug("http: failed to update the write deadline", zap.Error(err))
	}

	q, err := ParseListQuery(r.URL.Query(), api.config.Server.MaxPageSize)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "invalid listing parameters", err.Error(), err)
		return
	}

	page, err := api.bookService.List(r.Context(), q)
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to list books", EmptyData, err)
		return
	}

	api.GetLoggerFromContext(r.Context()).Info("success to list books",
		zap.Int("query.page_size", q.PageSize),
		zap.Int("query.page_num", q.PageNum),
		zap.String("query.category", q.Category),
		zap.Int("result.count", len(page.Books)),
		zap.Int("result.total", page.TotalNumBooks),
	)
	api.sendResponse(w, r, http.StatusOK, page)
}

// ListCategories godoc
// @Summary  List the distinct book categories
// @Tags     books
// @Produce  json
// @Success  200 {array} string
// @Router   /v1/categories [get]
func (api *APIHandler) ListCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	categories, err := api.bookService.Categories(r.Context())
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to list categories", EmptyData, err)
		return
	}
	api.sendResponse(w, r, http.StatusOK, categories)
}

// GetOneBook godoc
// @Summary  Fetch a book
// @Tags     books
// @Produce  json
// @Param    id path string true "book id"
// @Success  200 {object} Book
// @Failure  404 {object} APIError
// @Router   /v1/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if !api.validBookID(w, r, id) {
		return
	}

	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		api.sendError(w, r, http.StatusNotFound, "book does not exist", EmptyData, err)
		return
	}
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to get the book", EmptyData, err)
		return
	}
	api.sendResponse(w, r, http.StatusOK, book)
}

// UpdateBook godoc
// @Summary  Replace every field of a book
// @Tags     books
// @Accept   json
// @Produce  json
// @Param    id   path string true "book id"
// @Param    book body Book   true "replacement book"
// @Success  200 {object} Book
// @Failure  400 {object} APIError
// @Failure  404 {object} APIError
// @Router   /v1/books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if !api.validBookID(w, r, id) {
		return
	}

	var book Book
	if err := DecodeCreateOrUpdateBookRequestBody(r, &book); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", "invalid json payload", err)
		return
	}

	if err := ValidateUpdateBookRequestBody(id, &book); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", err.Error(), err)
		return
	}

	book, err := api.bookService.Update(r.Context(), id, book)
	if errors.Is(err, ErrBookNotFound) {
		api.sendError(w, r, http.StatusNotFound, "book does not exist", EmptyData, err)
		return
	}
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to update the book", EmptyData, err)
		return
	}

	api.GetLoggerFromContext(r.Context()).Info("success to update book", zap.String("book.id", id))
	api.sendResponse(w, r, http.StatusOK, book)
}

// DeleteOneBook godoc
// @Summary  Delete a book
// @Tags     books
// @Param    id path string true "book id"
// @Success  204
// @Failure  404 {object} APIError
// @Router   /v1/books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if !api.validBookID(w, r, id) {
		return
	}

	err := api.bookService.Delete(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		api.sendError(w, r, http.StatusNotFound, "book does not exist", EmptyData, err)
		return
	}
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to delete the book", EmptyData, err)
		return
	}

	api.GetLoggerFromContext(r.Context()).Info("success to delete book", zap.String("book.id", id))
	if err = WriteNoContent(r.Context(), w); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}

// NotFound replies to every request hitting an unknown route.
func (api *APIHandler) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		if requestID == "" {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"requestid": requestID,
			"message":   "route does not exist",
			"path":      r.Method + " " + r.URL.Path,
		}); err != nil {
			api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
		}
	})
}
