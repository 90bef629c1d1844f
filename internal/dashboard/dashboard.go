// Package dashboard loads and shapes the data for a user's own dashboard:
// the books they currently hold and every request they have filed.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/library-web/internal/types"
)

// Source is the part of the API client the dashboard reads from. The API
// scopes both lists to the token's user.
type Source interface {
	ListIssues(ctx context.Context) ([]types.Issue, error)
	ListRequests(ctx context.Context) ([]types.Request, error)
}

// IssueRow is an active loan ready for display.
type IssueRow struct {
	types.Issue
	Overdue bool
}

// RequestRow is a request with its badge style.
type RequestRow struct {
	types.Request
	Badge string
}

// Data is everything the dashboard page renders.
type Data struct {
	Issues   []IssueRow
	Requests []RequestRow
}

// Load fetches issues and requests concurrently. The first failure cancels
// the other call and is returned alone; Data is then empty.
func Load(ctx context.Context, src Source, now time.Time) (Data, error) {
	var (
		issues   []types.Issue
		requests []types.Request
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issues, err = src.ListIssues(gctx)
		if err != nil {
			return fmt.Errorf("list issues: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		requests, err = src.ListRequests(gctx)
		if err != nil {
			return fmt.Errorf("list requests: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Data{}, fmt.Errorf("dashboard.Load: %w", err)
	}

	return Data{
		Issues:   ActiveIssues(issues, now),
		Requests: Requests(requests),
	}, nil
}

// ActiveIssues keeps the issues still out on loan, flagging those past
// their return date.
func ActiveIssues(issues []types.Issue, now time.Time) []IssueRow {
	out := make([]IssueRow, 0, len(issues))
	for _, is := range issues {
		if is.Status != types.IssueIssued {
			continue
		}
		out = append(out, IssueRow{Issue: is, Overdue: is.IsOverdue(now)})
	}
	return out
}

// Requests attaches a badge to every request.
func Requests(requests []types.Request) []RequestRow {
	out := make([]RequestRow, 0, len(requests))
	for _, r := range requests {
		out = append(out, RequestRow{Request: r, Badge: Badge(r.Status)})
	}
	return out
}

// Badge maps a request status to its CSS class.
func Badge(status types.RequestStatus) string {
	switch status {
	case types.RequestPending:
		return "badge-yellow"
	case types.RequestApproved:
		return "badge-green"
	default:
		return "badge-red"
	}
}
