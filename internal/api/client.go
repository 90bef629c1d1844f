// Package api is the outbound client for the library REST API.
//
// Every call is a single round trip: no retries, no timeout policy, no
// caching. A non-2xx answer becomes an *Error carrying the status code and
// the server's detail string; transport failures are returned wrapped.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error is a fault reported by the API.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Detail)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Detail returns the server-supplied detail of err, or "" when err did not
// come from the API.
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// Client wraps a resty client with the API base URL. The zero token means
// requests go out without an Authorization header.
type Client struct {
	http      *resty.Client
	loginPath string
	token     string
}

// Option configures a Client.
type Option func(*Client)

// WithLoginPath overrides the token endpoint path.
func WithLoginPath(path string) Option {
	return func(c *Client) {
		c.loginPath = path
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal),
		loginPath: "/auth/token",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithToken returns a client that attaches token as a bearer credential.
// The receiver is left unchanged.
func (c *Client) WithToken(token string) *Client {
	bound := *c
	bound.token = token
	return &bound
}

// Token returns the bearer token bound to c.
func (c *Client) Token() string { return c.token }

// do performs one call. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	return decode(resp, out)
}

func decode(resp *resty.Response, out any) error {
	if resp.IsError() {
		return errorFrom(resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode body: %w", resp.Request.Method, resp.Request.URL, err)
	}
	return nil
}

// errorFrom builds an *Error out of a failed response. The API answers
// {"detail": "..."} for most faults and {"detail": [{"msg": "..."}]} for
// validation faults.
func errorFrom(resp *resty.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode()}

	var envelope struct {
		Detail jsoniter.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err == nil && len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			apiErr.Detail = text
			return apiErr
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				apiErr.Detail = strings.Join(msgs, "; ")
				return apiErr
			}
		}
	}

	if text := strings.TrimSpace(string(resp.Body())); text != "" {
		apiErr.Detail = text
	} else {
		apiErr.Detail = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
