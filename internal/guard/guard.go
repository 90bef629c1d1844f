// Package guard decides whether a session may see a page.
package guard

import (
	"fmt"
	"net/http"

	"github.com/aanand-mishra/library-web/internal/session"
	"github.com/aanand-mishra/library-web/internal/types"
)

// Requirement is what a route demands of the session.
type Requirement int

const (
	// Authenticated admits any logged-in user.
	Authenticated Requirement = iota + 1
	// AdminOnly admits logged-in admins.
	AdminOnly
)

func (r Requirement) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin-only"
	default:
		return fmt.Sprintf("Requirement(%d)", int(r))
	}
}

// Decision is the guard's verdict.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectDashboard
)

// Location is the redirect target of d, or "" for Allow.
func (d Decision) Location() string {
	switch d {
	case RedirectLogin:
		return "/login"
	case RedirectDashboard:
		return "/dashboard"
	default:
		return ""
	}
}

// Decide evaluates req against sess. Nothing is cached between calls.
func Decide(sess *session.Session, req Requirement) Decision {
	if sess == nil || !sess.IsAuthenticated() {
		return RedirectLogin
	}

	switch req {
	case Authenticated:
		return Allow
	case AdminOnly:
		return decideAdmin(sess.User.Role)
	default:
		// Unknown requirements fail closed.
		return RedirectLogin
	}
}

func decideAdmin(role types.Role) Decision {
	switch role {
	case types.RoleAdmin:
		return Allow
	case types.RoleMember:
		return RedirectDashboard
	default:
		return RedirectLogin
	}
}

// Require wraps next so it only runs when Decide allows the request.
// Otherwise the browser is redirected with 303 See Other.
func Require(req Requirement, next session.Handler) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		if d := Decide(sess, req); d != Allow {
			http.Redirect(w, r, d.Location(), http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	}
}
