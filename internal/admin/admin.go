// Package admin implements the admin dashboard: loading the three lists
// it shows, approving a request by issuing a copy, rejecting a request and
// returning an issued copy.
//
// The approval is two independent API writes (create the issue, then mark
// the request approved). Nothing rolls the first back if the second fails;
// the RequestUpdateFailed outcome reports that case to the caller.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/library-web/internal/api"
	"github.com/aanand-mishra/library-web/internal/dashboard"
	"github.com/aanand-mishra/library-web/internal/types"
)

const (
	msgApproved       = "Request approved and book issued"
	msgApproveFailed  = "Failed to approve request: "
	msgNoCopy         = "No available copies for this book."
	msgReturned       = "Book returned successfully"
	msgReturnFailed   = "Failed to return book"
	msgRejected       = "Request rejected"
	msgRejectFailed   = "Failed to reject request"
	msgLoadFailed     = "Failed to load admin data"
	defaultLoanPeriod = 7 * 24 * time.Hour
)

// API is the part of the API client the admin dashboard uses.
type API interface {
	ListRequests(ctx context.Context) ([]types.Request, error)
	ListIssues(ctx context.Context) ([]types.Issue, error)
	ListBooks(ctx context.Context) ([]types.Book, error)
	ListCopies(ctx context.Context) ([]types.Copy, error)
	CreateIssue(ctx context.Context, issue types.NewIssue) (types.Issue, error)
	UpdateRequestStatus(ctx context.Context, id int64, status types.RequestStatus) (types.Request, error)
	ReturnIssue(ctx context.Context, id int64) (types.Issue, error)
}

// Tab is the admin dashboard section being shown.
type Tab string

const (
	TabRequests Tab = "requests"
	TabIssues   Tab = "issues"
	TabBooks    Tab = "books"
)

// ParseTab maps a query value onto a Tab. Unknown values select requests.
func ParseTab(s string) Tab {
	switch Tab(s) {
	case TabIssues:
		return TabIssues
	case TabBooks:
		return TabBooks
	default:
		return TabRequests
	}
}

// Data is what the admin dashboard renders.
type Data struct {
	Requests []types.Request
	Issues   []dashboard.IssueRow
	Books    []types.Book
}

// Workflow runs admin operations against an API bound to an admin token.
type Workflow struct {
	api        API
	now        func() time.Time
	loanPeriod time.Duration
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock replaces time.Now when computing return dates.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// WithLoanPeriod sets how long after approval a copy is due back.
// Non-positive periods are ignored.
func WithLoanPeriod(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.loanPeriod = d
		}
	}
}

// NewWorkflow returns a Workflow with a seven day loan period.
func NewWorkflow(client API, opts ...Option) *Workflow {
	w := &Workflow{
		api:        client,
		now:        time.Now,
		loanPeriod: defaultLoanPeriod,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Load fetches requests, issues and books concurrently. Any failure cancels
// the rest and is returned alone.
func (w *Workflow) Load(ctx context.Context) (Data, error) {
	var (
		requests []types.Request
		issues   []types.Issue
		books    []types.Book
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		requests, err = w.api.ListRequests(gctx)
		return err
	})
	g.Go(func() (err error) {
		issues, err = w.api.ListIssues(gctx)
		return err
	})
	g.Go(func() (err error) {
		books, err = w.api.ListBooks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Data{}, fmt.Errorf("admin.Load: %w", err)
	}

	pending := make([]types.Request, 0, len(requests))
	for _, r := range requests {
		if r.Status == types.RequestPending {
			pending = append(pending, r)
		}
	}

	return Data{
		Requests: pending,
		Issues:   dashboard.ActiveIssues(issues, w.now()),
		Books:    books,
	}, nil
}

// LoadFailedFlash is the message shown when Load fails.
func LoadFailedFlash() types.Flash {
	return types.Flash{Kind: types.FlashError, Message: msgLoadFailed}
}

// FirstAvailableCopy returns the first copy of bookID with status
// available, scanning in list order.
func FirstAvailableCopy(copies []types.Copy, bookID int64) (types.Copy, bool) {
	for _, c := range copies {
		if c.BookID == bookID && c.Status == types.CopyAvailable {
			return c, true
		}
	}
	return types.Copy{}, false
}

// PendingRequest looks up the request with id as the API holds it. Approve
// must be given this record so the issue goes to the request's own user and
// book. Requests that are no longer pending are refused.
func (w *Workflow) PendingRequest(ctx context.Context, id int64) (types.Request, error) {
	requests, err := w.api.ListRequests(ctx)
	if err != nil {
		return types.Request{}, fmt.Errorf("admin.PendingRequest: %w", err)
	}

	for _, r := range requests {
		if r.ID != id {
			continue
		}
		if r.Status != types.RequestPending {
			return types.Request{}, fmt.Errorf("admin.PendingRequest: request %d is %s: %w", id, r.Status, ErrRequestNotPending)
		}
		return r, nil
	}

	return types.Request{}, fmt.Errorf("admin.PendingRequest: request %d: %w", id, ErrRequestNotFound)
}

// Approve issues the first available copy of req's book to req's user and
// marks req approved.
//
// A non-nil error means nothing was written: listing the copies or creating
// the issue failed. Otherwise the result tells which outcome applied.
func (w *Workflow) Approve(ctx context.Context, req types.Request) (ApprovalResult, error) {
	copies, err := w.api.ListCopies(ctx)
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("admin.Approve: list copies: %w", err)
	}

	picked, ok := FirstAvailableCopy(copies, req.BookID)
	if !ok {
		return NoCopyAvailableResult(), nil
	}

	issue, err := w.api.CreateIssue(ctx, types.NewIssue{
		CopyID:     picked.ID,
		UserID:     req.UserID,
		ReturnDate: types.NewTime(w.now().Add(w.loanPeriod)),
	})
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("admin.Approve: create issue: %w", err)
	}

	if _, err := w.api.UpdateRequestStatus(ctx, req.ID, types.RequestApproved); err != nil {
		return RequestUpdateFailedResult(picked, issue, fmt.Errorf("admin.Approve: update request: %w", err)), nil
	}

	return ApprovedResult(picked, issue), nil
}

// ApproveFailedFlash is the message shown when Approve returns an error.
func ApproveFailedFlash(err error) types.Flash {
	return types.Flash{Kind: types.FlashError, Message: msgApproveFailed + reason(err)}
}

// Reject marks the request rejected.
func (w *Workflow) Reject(ctx context.Context, requestID int64) (types.Request, error) {
	updated, err := w.api.UpdateRequestStatus(ctx, requestID, types.RequestRejected)
	if err != nil {
		return types.Request{}, fmt.Errorf("admin.Reject: %w", err)
	}
	return updated, nil
}

// RejectFlash is the message shown after Reject.
func RejectFlash(err error) types.Flash {
	if err != nil {
		return types.Flash{Kind: types.FlashError, Message: msgRejectFailed}
	}
	return types.Flash{Kind: types.FlashSuccess, Message: msgRejected}
}

// Return marks the issue returned.
func (w *Workflow) Return(ctx context.Context, issueID int64) (types.Issue, error) {
	returned, err := w.api.ReturnIssue(ctx, issueID)
	if err != nil {
		return types.Issue{}, fmt.Errorf("admin.Return: %w", err)
	}
	return returned, nil
}

// ReturnFlash is the message shown after Return.
func ReturnFlash(err error) types.Flash {
	if err != nil {
		return types.Flash{Kind: types.FlashError, Message: msgReturnFailed}
	}
	return types.Flash{Kind: types.FlashSuccess, Message: msgReturned}
}

// reason is the human part of an approval failure message.
func reason(err error) string {
	if detail := api.Detail(err); detail != "" {
		return detail
	}
	for _, known := range []error{ErrRequestNotFound, ErrRequestNotPending} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if err == nil {
		return "unknown error"
	}
	return "the library service could not be reached"
}
