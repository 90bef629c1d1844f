package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/library-web/internal/types"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   string
}

func newBackend(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *[]recorded) {
	t.Helper()
	calls := &[]recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*calls = append(*calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestListBooksAttachesBearerToken(t *testing.T) {
	srv, calls := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":1,"title":"Go in Action","isbn":"111","publication_year":2015,"authors":[{"id":1,"name":"Kennedy"}]}]`)
	})

	books, err := New(srv.URL).WithToken("tok-1").ListBooks(context.Background())
	require.NoError(t, err)

	require.Len(t, books, 1)
	assert.Equal(t, "Go in Action", books[0].Title)
	assert.Equal(t, "Kennedy", books[0].AuthorNames())
	require.Len(t, *calls, 1)
	assert.Equal(t, "/books/", (*calls)[0].path)
	assert.Equal(t, "Bearer tok-1", (*calls)[0].auth)
}

func TestCallWithoutTokenSendsNoAuthorization(t *testing.T) {
	srv, calls := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})

	copies, err := New(srv.URL).ListCopies(context.Background())
	require.NoError(t, err)

	assert.Empty(t, copies)
	assert.Equal(t, "", (*calls)[0].auth)
}

func TestWithTokenLeavesReceiverUnchanged(t *testing.T) {
	base := New("http://example.invalid")
	bound := base.WithToken("abc")

	assert.Equal(t, "", base.Token())
	assert.Equal(t, "abc", bound.Token())
}

func TestErrorDetailExtraction(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{
			name:       "string detail",
			status:     http.StatusBadRequest,
			body:       `{"detail":"You already have a pending request for this book"}`,
			wantDetail: "You already have a pending request for this book",
		},
		{
			name:       "validation list",
			status:     http.StatusUnprocessableEntity,
			body:       `{"detail":[{"loc":["body","book_id"],"msg":"field required"},{"msg":"value is not a valid integer"}]}`,
			wantDetail: "field required; value is not a valid integer",
		},
		{
			name:       "plain body",
			status:     http.StatusBadGateway,
			body:       `upstream down`,
			wantDetail: "upstream down",
		},
		{
			name:       "empty body",
			status:     http.StatusNotFound,
			body:       ``,
			wantDetail: "Not Found",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})

			_, err := New(srv.URL).WithToken("t").CreateRequest(context.Background(), 7)
			require.Error(t, err)

			assert.True(t, IsStatus(err, tc.status))
			assert.Equal(t, tc.wantDetail, Detail(err))
		})
	}
}

func TestTransportFaultIsNotAnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).ListIssues(context.Background())
	require.Error(t, err)
	assert.Equal(t, "", Detail(err))
}

func TestWriteEndpointsSendExpectedRequests(t *testing.T) {
	srv, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/issues/":
			writeJSON(w, http.StatusOK, `{"id":11,"copy_id":5,"user_id":3,"status":"issued","return_date":"2025-01-08T12:00:00"}`)
		case "/requests/9":
			writeJSON(w, http.StatusOK, `{"id":9,"user_id":3,"book_id":2,"status":"approved"}`)
		case "/issues/11/return":
			writeJSON(w, http.StatusOK, `{"id":11,"copy_id":5,"user_id":3,"status":"returned"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := New(srv.URL).WithToken("admin")
	ctx := context.Background()
	due := types.NewTime(time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC))

	issue, err := client.CreateIssue(ctx, types.NewIssue{CopyID: 5, UserID: 3, ReturnDate: due})
	require.NoError(t, err)
	assert.Equal(t, int64(11), issue.ID)
	assert.Equal(t, due.Time, issue.ReturnDate.Time)

	req, err := client.UpdateRequestStatus(ctx, 9, types.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, types.RequestApproved, req.Status)

	returned, err := client.ReturnIssue(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, types.IssueReturned, returned.Status)

	require.Len(t, *calls, 3)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.JSONEq(t, `{"copy_id":5,"user_id":3,"return_date":"2025-01-08T12:00:00Z"}`, (*calls)[0].body)
	assert.Equal(t, http.MethodPut, (*calls)[1].method)
	assert.JSONEq(t, `{"status":"approved"}`, (*calls)[1].body)
	assert.Equal(t, http.MethodPost, (*calls)[2].method)
	assert.Equal(t, "/issues/11/return", (*calls)[2].path)
}

func TestAuthenticate(t *testing.T) {
	srv, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			_ = r.ParseForm()
			if r.PostForm.Get("username") == "ann@lib.org" && r.PostForm.Get("password") == "secret" {
				writeJSON(w, http.StatusOK, `{"access_token":"tok-ann","token_type":"bearer"}`)
				return
			}
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`)
		case "/users/me":
			if r.Header.Get("Authorization") != "Bearer tok-ann" {
				writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"id":3,"email":"ann@lib.org","role":"member","is_active":true}`)
		}
	})
	client := New(srv.URL)

	token, user, err := client.Authenticate(context.Background(), "ann@lib.org", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-ann", token)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, types.RoleMember, user.Role)
	require.Len(t, *calls, 2)

	_, _, err = client.Authenticate(context.Background(), "ann@lib.org", "wrong")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "Incorrect username or password", Detail(err))
}

func TestAuthenticateCustomLoginPath(t *testing.T) {
	srv, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			writeJSON(w, http.StatusOK, `{"access_token":"x","token_type":"bearer"}`)
		case "/users/me":
			writeJSON(w, http.StatusOK, `{"id":1,"email":"root@lib.org","role":"admin"}`)
		}
	})

	_, user, err := New(srv.URL, WithLoginPath("/token")).Authenticate(context.Background(), "root@lib.org", "pw")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.Equal(t, "/token", (*calls)[0].path)
}

func TestRegisterSendsMemberRole(t *testing.T) {
	srv, calls := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":4,"email":"new@lib.org","role":"member"}`)
	})

	user, err := New(srv.URL).Register(context.Background(), "new@lib.org", "pw1234")
	require.NoError(t, err)
	assert.Equal(t, int64(4), user.ID)
	assert.JSONEq(t, `{"email":"new@lib.org","password":"pw1234","role":"member"}`, (*calls)[0].body)
}
