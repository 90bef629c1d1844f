// Package pages contains the HTTP handlers of the web front end.
//
// Every handler is built by a factory that closes over Deps and returns a
// session.Handler; Routes wraps them with the session manager and the
// route guard. Actions (form POSTs) never render: they queue a flash
// message, save the session and redirect, so the next GET fetches fresh
// data from the API.
package pages

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/library-web/internal/admin"
	"github.com/aanand-mishra/library-web/internal/api"
	"github.com/aanand-mishra/library-web/internal/catalog"
	"github.com/aanand-mishra/library-web/internal/dashboard"
	"github.com/aanand-mishra/library-web/internal/guard"
	"github.com/aanand-mishra/library-web/internal/http/view"
	"github.com/aanand-mishra/library-web/internal/session"
	"github.com/aanand-mishra/library-web/internal/types"
	"github.com/aanand-mishra/library-web/internal/utils/response"
)

var validate = validator.New()

// Deps are the collaborators shared by all handlers.
type Deps struct {
	API        *api.Client
	Sessions   *session.Manager
	Views      *view.Renderer
	LoanPeriod time.Duration
	Now        func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) workflow(sess *session.Session) *admin.Workflow {
	return admin.NewWorkflow(d.API.WithToken(sess.Token),
		admin.WithClock(d.now),
		admin.WithLoanPeriod(d.LoanPeriod),
	)
}

// Routes registers every page on a new ServeMux.
func Routes(d Deps) http.Handler {
	router := http.NewServeMux()
	wrap := d.Sessions.Wrap

	router.Handle("GET /{$}", wrap(Home(d)))
	router.Handle("POST /requests", wrap(RequestBook(d)))

	router.Handle("GET /login", wrap(LoginPage(d)))
	router.Handle("POST /login", wrap(Login(d)))
	router.Handle("GET /register", wrap(RegisterPage(d)))
	router.Handle("POST /register", wrap(Register(d)))
	router.Handle("POST /logout", wrap(Logout(d)))

	router.Handle("GET /dashboard", wrap(guard.Require(guard.Authenticated, Dashboard(d))))

	router.Handle("GET /admin", wrap(guard.Require(guard.AdminOnly, Admin(d))))
	router.Handle("POST /admin/requests/{id}/approve", wrap(guard.Require(guard.AdminOnly, Approve(d))))
	router.Handle("POST /admin/requests/{id}/reject", wrap(guard.Require(guard.AdminOnly, Reject(d))))
	router.Handle("POST /admin/issues/{id}/return", wrap(guard.Require(guard.AdminOnly, Return(d))))

	router.HandleFunc("GET /healthz", Health(d))
	router.HandleFunc("/", Fallback())

	return router
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared plumbing
// ─────────────────────────────────────────────────────────────────────────────

// render fills the layout from the session, consumes the pending flashes,
// saves the session and writes the page.
func (d Deps) render(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, page string, data view.LayoutProvider) {
	l := data.LayoutData()
	l.IsAuthenticated = sess.IsAuthenticated()
	if l.IsAuthenticated {
		l.IsAdmin = sess.User.IsAdmin()
		l.UserEmail = sess.User.Email
	}
	l.Flashes = sess.PopFlashes()

	if err := d.Sessions.Save(r.Context(), w, sess); err != nil {
		slog.Error("failed to save session", slog.String("error", err.Error()))
	}

	if err := d.Views.Render(w, status, page, data); err != nil {
		slog.Error("failed to render page", slog.String("page", page), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// redirect saves the session and sends the browser to location with
// 303 See Other.
func (d Deps) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, location string) {
	if err := d.Sessions.Save(r.Context(), w, sess); err != nil {
		slog.Error("failed to save session", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func flash(sess *session.Session, f types.Flash) {
	sess.AddFlash(f.Kind, f.Message)
}

// validationMessage turns a validator failure into one sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return response.ValidationError(verrs).Error
	}
	return err.Error()
}

// formInt parses a form or path value, yielding 0 when it is not a number.
func formInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

// Home handles GET /. Logged-in users get the filtered book grid; visitors
// get a login prompt and no API call is made.
func Home(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		page := &view.HomePage{
			Layout: view.Layout{Title: "Catalog"},
			Query:  r.URL.Query().Get("q"),
			Books:  []types.Book{},
		}

		if sess.IsAuthenticated() {
			books, err := catalog.Load(r.Context(), d.API.WithToken(sess.Token), page.Query)
			if err != nil {
				slog.Error("failed to fetch books", slog.String("error", err.Error()))
			} else {
				page.Books = books
			}
		}

		d.render(w, r, sess, http.StatusOK, view.PageHome, page)
	}
}

// RequestBook handles POST /requests (form: book_id, q).
func RequestBook(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		back := "/"
		if q := r.PostFormValue("q"); q != "" {
			back = "/?" + url.Values{"q": {q}}.Encode()
		}

		form := types.RequestForm{BookID: formInt(r.PostFormValue("book_id"))}
		if sess.IsAuthenticated() {
			if err := validate.Struct(form); err != nil {
				sess.AddFlash(types.FlashError, validationMessage(err))
				d.redirect(w, r, sess, back)
				return
			}
		}

		created, err := catalog.RequestBook(r.Context(), sess, d.API.WithToken(sess.Token), form.BookID)
		switch {
		case err == nil:
			slog.Info("book requested", slog.Int64("request_id", created.ID), slog.Int64("book_id", form.BookID))
		case errors.Is(err, catalog.ErrNotAuthenticated):
		default:
			slog.Error("failed to request book", slog.Int64("book_id", form.BookID), slog.String("error", err.Error()))
		}
		flash(sess, catalog.RequestFlash(err))

		d.redirect(w, r, sess, back)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Login / register / logout
// ─────────────────────────────────────────────────────────────────────────────

// LoginPage handles GET /login.
func LoginPage(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		d.render(w, r, sess, http.StatusOK, view.PageLogin, &view.LoginPage{Layout: view.Layout{Title: "Login"}})
	}
}

// Login handles POST /login (form: email, password). Success goes to the
// dashboard; failure re-renders the form.
func Login(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		form := types.LoginForm{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}
		page := &view.LoginPage{Layout: view.Layout{Title: "Login"}, Email: form.Email}

		if err := validate.Struct(form); err != nil {
			page.Error = validationMessage(err)
			d.render(w, r, sess, http.StatusBadRequest, view.PageLogin, page)
			return
		}

		if !d.Sessions.Login(r.Context(), w, sess, form.Email, form.Password) {
			page.Error = "Invalid email or password"
			d.render(w, r, sess, http.StatusUnauthorized, view.PageLogin, page)
			return
		}

		d.redirect(w, r, sess, "/dashboard")
	}
}

// RegisterPage handles GET /register.
func RegisterPage(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		d.render(w, r, sess, http.StatusOK, view.PageRegister, &view.RegisterPage{Layout: view.Layout{Title: "Register"}})
	}
}

// Register handles POST /register (form: email, password). New accounts
// are members; the user is sent to the login form afterwards.
func Register(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		form := types.RegisterForm{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}
		page := &view.RegisterPage{Layout: view.Layout{Title: "Register"}, Email: form.Email}

		if err := validate.Struct(form); err != nil {
			page.Error = validationMessage(err)
			d.render(w, r, sess, http.StatusBadRequest, view.PageRegister, page)
			return
		}

		user, err := d.API.Register(r.Context(), form.Email, form.Password)
		if err != nil {
			slog.Warn("registration failed", slog.String("email", form.Email), slog.String("error", err.Error()))
			page.Error = api.Detail(err)
			if page.Error == "" {
				page.Error = "Registration failed"
			}
			d.render(w, r, sess, http.StatusBadRequest, view.PageRegister, page)
			return
		}

		slog.Info("user registered", slog.Int64("user_id", user.ID))
		sess.AddFlash(types.FlashSuccess, "Registration successful! Please login.")
		d.redirect(w, r, sess, "/login")
	}
}

// Logout handles POST /logout.
func Logout(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		d.Sessions.Logout(r.Context(), w, sess)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// User dashboard
// ─────────────────────────────────────────────────────────────────────────────

// Dashboard handles GET /dashboard. A failed fetch logs once and renders
// empty sections.
func Dashboard(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		page := &view.DashboardPage{Layout: view.Layout{Title: "Dashboard"}}

		data, err := dashboard.Load(r.Context(), d.API.WithToken(sess.Token), d.now())
		if err != nil {
			slog.Error("failed to fetch dashboard data", slog.Int64("user_id", sess.User.ID), slog.String("error", err.Error()))
		}
		page.Data = data

		d.render(w, r, sess, http.StatusOK, view.PageDashboard, page)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin dashboard
// ─────────────────────────────────────────────────────────────────────────────

// Admin handles GET /admin?tab=requests|issues|books.
func Admin(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		page := &view.AdminPage{
			Layout: view.Layout{Title: "Admin"},
			Tab:    admin.ParseTab(r.URL.Query().Get("tab")),
		}

		data, err := d.workflow(sess).Load(r.Context())
		if err != nil {
			slog.Error("failed to fetch admin data", slog.String("error", err.Error()))
			flash(sess, admin.LoadFailedFlash())
		}
		page.Data = data

		d.render(w, r, sess, http.StatusOK, view.PageAdmin, page)
	}
}

// Approve handles POST /admin/requests/{id}/approve. The request's user and
// book are read back from the API, never taken from the form.
func Approve(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		form := types.ApproveForm{RequestID: formInt(r.PathValue("id"))}
		if err := validate.Struct(form); err != nil {
			sess.AddFlash(types.FlashError, validationMessage(err))
			d.redirect(w, r, sess, "/admin?tab=requests")
			return
		}

		wf := d.workflow(sess)
		req, err := wf.PendingRequest(r.Context(), form.RequestID)
		if err != nil {
			slog.Warn("request not approvable", slog.Int64("request_id", form.RequestID), slog.String("error", err.Error()))
			flash(sess, admin.ApproveFailedFlash(err))
			d.redirect(w, r, sess, "/admin?tab=requests")
			return
		}

		result, err := wf.Approve(r.Context(), req)
		if err != nil {
			slog.Error("failed to approve request", slog.Int64("request_id", req.ID), slog.String("error", err.Error()))
			flash(sess, admin.ApproveFailedFlash(err))
			d.redirect(w, r, sess, "/admin?tab=requests")
			return
		}

		attrs := []any{
			slog.Int64("request_id", req.ID),
			slog.Int64("book_id", req.BookID),
			slog.String("outcome", result.Outcome.String()),
		}
		if result.Issued() {
			attrs = append(attrs, slog.Int64("copy_id", result.Copy.ID), slog.Int64("issue_id", result.Issue.ID))
		}
		switch err := result.HasError(); {
		case err == nil:
			slog.Info("request approved", attrs...)
		case result.Issued():
			slog.Warn("copy issued but request not marked approved", append(attrs, slog.String("error", err.Error()))...)
		default:
			slog.Info("request not approved", attrs...)
		}
		flash(sess, result.Flash())

		d.redirect(w, r, sess, "/admin?tab=requests")
	}
}

// Reject handles POST /admin/requests/{id}/reject.
func Reject(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		id := formInt(r.PathValue("id"))
		if id <= 0 {
			sess.AddFlash(types.FlashError, "invalid request id")
			d.redirect(w, r, sess, "/admin?tab=requests")
			return
		}

		_, err := d.workflow(sess).Reject(r.Context(), id)
		if err != nil {
			slog.Error("failed to reject request", slog.Int64("request_id", id), slog.String("error", err.Error()))
		}
		flash(sess, admin.RejectFlash(err))

		d.redirect(w, r, sess, "/admin?tab=requests")
	}
}

// Return handles POST /admin/issues/{id}/return.
func Return(d Deps) session.Handler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		id := formInt(r.PathValue("id"))
		if id <= 0 {
			sess.AddFlash(types.FlashError, "invalid issue id")
			d.redirect(w, r, sess, "/admin?tab=issues")
			return
		}

		_, err := d.workflow(sess).Return(r.Context(), id)
		if err != nil {
			slog.Error("failed to return book", slog.Int64("issue_id", id), slog.String("error", err.Error()))
		} else {
			slog.Info("book returned", slog.Int64("issue_id", id))
		}
		flash(sess, admin.ReturnFlash(err))

		d.redirect(w, r, sess, "/admin?tab=issues")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Misc
// ─────────────────────────────────────────────────────────────────────────────

// Health handles GET /healthz. It answers 503 when the session store
// cannot be reached.
func Health(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sessions.Ping(r.Context()); err != nil {
			slog.Error("session store unreachable", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK())
	}
}

// Fallback sends every unknown path to the catalog.
func Fallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
