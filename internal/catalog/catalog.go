// Package catalog backs the home page: the book grid, its search filter,
// and the request-a-book action.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/library-web/internal/api"
	"github.com/aanand-mishra/library-web/internal/session"
	"github.com/aanand-mishra/library-web/internal/types"
)

// ErrNotAuthenticated is returned by RequestBook for anonymous sessions.
var ErrNotAuthenticated = errors.New("catalog: login required")

const (
	msgRequested      = "Book requested successfully!"
	msgLoginRequired  = "Please login to request books"
	msgRequestFailure = "Failed to request book"
)

// BookLister is the part of the API client the grid needs.
type BookLister interface {
	ListBooks(ctx context.Context) ([]types.Book, error)
}

// Requester is the part of the API client the request action needs.
type Requester interface {
	CreateRequest(ctx context.Context, bookID int64) (types.Request, error)
}

// Filter returns the books whose title or ISBN contains term, ignoring
// case. An empty or blank term keeps every book. Order is preserved.
func Filter(books []types.Book, term string) []types.Book {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]types.Book, 0, len(books))
	for _, b := range books {
		if needle == "" ||
			strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.ISBN), needle) {
			out = append(out, b)
		}
	}
	return out
}

// Load fetches the books for the grid and applies Filter.
func Load(ctx context.Context, books BookLister, term string) ([]types.Book, error) {
	all, err := books.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Load: %w", err)
	}
	return Filter(all, term), nil
}

// RequestBook files a borrow request for bookID. Anonymous sessions get
// ErrNotAuthenticated and no call is made.
func RequestBook(ctx context.Context, sess *session.Session, req Requester, bookID int64) (types.Request, error) {
	if sess == nil || !sess.IsAuthenticated() {
		return types.Request{}, ErrNotAuthenticated
	}
	created, err := req.CreateRequest(ctx, bookID)
	if err != nil {
		return types.Request{}, fmt.Errorf("catalog.RequestBook: %w", err)
	}
	return created, nil
}

// RequestFlash turns the result of RequestBook into the message shown to
// the user. Server faults show the server's detail when it sent one.
func RequestFlash(err error) types.Flash {
	switch {
	case err == nil:
		return types.Flash{Kind: types.FlashSuccess, Message: msgRequested}
	case errors.Is(err, ErrNotAuthenticated):
		return types.Flash{Kind: types.FlashError, Message: msgLoginRequired}
	}
	if detail := api.Detail(err); detail != "" {
		return types.Flash{Kind: types.FlashError, Message: detail}
	}
	return types.Flash{Kind: types.FlashError, Message: msgRequestFailure}
}
