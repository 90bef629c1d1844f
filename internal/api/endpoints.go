package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aanand-mishra/library-web/internal/types"
)

// ListBooks handles GET /books/.
func (c *Client) ListBooks(ctx context.Context) ([]types.Book, error) {
	books := make([]types.Book, 0)
	if err := c.do(ctx, http.MethodGet, "/books/", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// ListCopies handles GET /copies/. The API returns every copy of every book.
func (c *Client) ListCopies(ctx context.Context) ([]types.Copy, error) {
	copies := make([]types.Copy, 0)
	if err := c.do(ctx, http.MethodGet, "/copies/", nil, &copies); err != nil {
		return nil, err
	}
	return copies, nil
}

// CreateRequest handles POST /requests/ for the session's user.
func (c *Client) CreateRequest(ctx context.Context, bookID int64) (types.Request, error) {
	var created types.Request
	err := c.do(ctx, http.MethodPost, "/requests/", types.NewRequest{BookID: bookID}, &created)
	return created, err
}

// ListRequests handles GET /requests/. Members get their own requests,
// admins get all of them.
func (c *Client) ListRequests(ctx context.Context) ([]types.Request, error) {
	requests := make([]types.Request, 0)
	if err := c.do(ctx, http.MethodGet, "/requests/", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateRequestStatus handles PUT /requests/{id}.
func (c *Client) UpdateRequestStatus(ctx context.Context, id int64, status types.RequestStatus) (types.Request, error) {
	var updated types.Request
	path := fmt.Sprintf("/requests/%d", id)
	err := c.do(ctx, http.MethodPut, path, types.RequestStatusUpdate{Status: status}, &updated)
	return updated, err
}

// ListIssues handles GET /issues/. Same role rules as ListRequests.
func (c *Client) ListIssues(ctx context.Context) ([]types.Issue, error) {
	issues := make([]types.Issue, 0)
	if err := c.do(ctx, http.MethodGet, "/issues/", nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// CreateIssue handles POST /issues/.
func (c *Client) CreateIssue(ctx context.Context, issue types.NewIssue) (types.Issue, error) {
	var created types.Issue
	err := c.do(ctx, http.MethodPost, "/issues/", issue, &created)
	return created, err
}

// ReturnIssue handles POST /issues/{id}/return.
func (c *Client) ReturnIssue(ctx context.Context, id int64) (types.Issue, error) {
	var returned types.Issue
	path := fmt.Sprintf("/issues/%d/return", id)
	err := c.do(ctx, http.MethodPost, path, nil, &returned)
	return returned, err
}

// Me handles GET /users/me.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &user)
	return user, err
}

// Register handles POST /users/. New accounts are always members.
func (c *Client) Register(ctx context.Context, email, password string) (types.User, error) {
	var user types.User
	body := types.NewUser{Email: email, Password: password, Role: types.RoleMember}
	err := c.do(ctx, http.MethodPost, "/users/", body, &user)
	return user, err
}

// Authenticate exchanges credentials for a token at the login path, then
// fetches the account the token belongs to.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, types.User, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": email,
			"password": password,
		}).
		Post(c.loginPath)
	if err != nil {
		return "", types.User{}, fmt.Errorf("POST %s: %w", c.loginPath, err)
	}

	var token types.Token
	if err := decode(resp, &token); err != nil {
		return "", types.User{}, err
	}
	if token.AccessToken == "" {
		return "", types.User{}, fmt.Errorf("POST %s: empty access token", c.loginPath)
	}

	user, err := c.WithToken(token.AccessToken).Me(ctx)
	if err != nil {
		return "", types.User{}, fmt.Errorf("Authenticate: fetch account: %w", err)
	}

	return token.AccessToken, user, nil
}
