package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aanand-mishra/library-web/internal/session"
	"github.com/aanand-mishra/library-web/internal/types"
)

func withRole(role types.Role) *session.Session {
	return &session.Session{
		ID:    "s",
		User:  &types.User{ID: 1, Email: "x@lib.org", Role: role},
		Token: "tok",
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		sess *session.Session
		req  Requirement
		want Decision
	}{
		{"anonymous on dashboard", &session.Session{}, Authenticated, RedirectLogin},
		{"anonymous on admin", &session.Session{}, AdminOnly, RedirectLogin},
		{"nil session", nil, Authenticated, RedirectLogin},
		{"user without token", &session.Session{User: &types.User{Role: types.RoleAdmin}}, AdminOnly, RedirectLogin},
		{"member on dashboard", withRole(types.RoleMember), Authenticated, Allow},
		{"member on admin", withRole(types.RoleMember), AdminOnly, RedirectDashboard},
		{"admin on dashboard", withRole(types.RoleAdmin), Authenticated, Allow},
		{"admin on admin", withRole(types.RoleAdmin), AdminOnly, Allow},
		{"unknown role on admin", withRole(types.Role(99)), AdminOnly, RedirectLogin},
		{"unknown requirement", withRole(types.RoleAdmin), Requirement(0), RedirectLogin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.sess, tc.req))
		})
	}
}

func TestRequire(t *testing.T) {
	tests := []struct {
		name         string
		sess         *session.Session
		req          Requirement
		wantStatus   int
		wantLocation string
		wantCalled   bool
	}{
		{"anonymous", &session.Session{}, Authenticated, http.StatusSeeOther, "/login", false},
		{"member to admin", withRole(types.RoleMember), AdminOnly, http.StatusSeeOther, "/dashboard", false},
		{"admin to admin", withRole(types.RoleAdmin), AdminOnly, http.StatusOK, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := Require(tc.req, func(w http.ResponseWriter, _ *http.Request, _ *session.Session) {
				called = true
				w.WriteHeader(http.StatusOK)
			})
			rec := httptest.NewRecorder()

			h(rec, httptest.NewRequest(http.MethodGet, "/admin", nil), tc.sess)

			assert.Equal(t, tc.wantCalled, called)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantLocation, rec.Header().Get("Location"))
		})
	}
}
