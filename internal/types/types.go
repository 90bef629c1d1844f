// Package types holds the records exchanged with the library API and the
// form payloads posted by browsers. Keeping them in one place prevents import
// cycles: the API client, the session layer and the page handlers all import
// types without depending on each other.
//
// Struct tags serve two purposes:
//
//  1. json:"..." holds the snake_case keys the library API uses.
//  2. validate:"..." holds rules checked by go-playground/validator on forms.
package types

import (
	"fmt"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Roles
// ─────────────────────────────────────────────────────────────────────────────

// Role is the closed set of account kinds. The zero value is not a valid
// role; records decoded from the API always carry one of the constants below.
type Role int

const (
	RoleMember Role = iota + 1
	RoleAdmin
)

// ParseRole maps the API's role strings onto Role. "user" is accepted as an
// alias of "member".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member", "user":
		return RoleMember, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r Role) MarshalText() ([]byte, error) {
	switch r {
	case RoleMember, RoleAdmin:
		return []byte(r.String()), nil
	default:
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Statuses
// ─────────────────────────────────────────────────────────────────────────────

type CopyStatus string

const (
	CopyAvailable   CopyStatus = "available"
	CopyIssued      CopyStatus = "issued"
	CopyMaintenance CopyStatus = "maintenance"
	CopyLost        CopyStatus = "lost"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestFulfilled RequestStatus = "fulfilled"
)

type IssueStatus string

const (
	IssueIssued   IssueStatus = "issued"
	IssueReturned IssueStatus = "returned"
	IssueOverdue  IssueStatus = "overdue"
)

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

// User is the account behind a session.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt *Time  `json:"created_at,omitempty"`
}

// IsAdmin reports whether u may use the admin dashboard.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Publisher struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Book is a catalog title. It is read-only from this front end.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	ISBN            string     `json:"isbn"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	PublisherID     int64      `json:"publisher_id"`
	Publisher       *Publisher `json:"publisher,omitempty"`
	Authors         []Author   `json:"authors"`
}

// AuthorNames joins the author names with ", " for display.
func (b Book) AuthorNames() string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Copy is one lendable instance of a Book.
type Copy struct {
	ID            int64      `json:"id"`
	BookID        int64      `json:"book_id"`
	Status        CopyStatus `json:"status"`
	ShelfLocation string     `json:"shelf_location,omitempty"`
	CreatedAt     *Time      `json:"created_at,omitempty"`
}

// Request is a user's ask to borrow a book.
type Request struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	BookID      int64         `json:"book_id"`
	Status      RequestStatus `json:"status"`
	RequestTime *Time         `json:"request_time,omitempty"`
	CreatedAt   *Time         `json:"created_at,omitempty"`
}

// RequestedAt returns the creation timestamp under whichever key the API
// used, or nil when neither was sent.
func (r Request) RequestedAt() *Time {
	if r.RequestTime != nil {
		return r.RequestTime
	}
	return r.CreatedAt
}

// Issue is a loan of a copy to a user.
type Issue struct {
	ID               int64       `json:"id"`
	CopyID           int64       `json:"copy_id"`
	UserID           int64       `json:"user_id"`
	Status           IssueStatus `json:"status"`
	ReturnDate       *Time       `json:"return_date,omitempty"`
	IssueDate        *Time       `json:"issue_date,omitempty"`
	ActualReturnDate *Time       `json:"actual_return_date,omitempty"`
	FineAmount       float64     `json:"fine_amount"`
}

// IsOverdue reports whether the issue is still out past its return date.
func (i Issue) IsOverdue(now time.Time) bool {
	if i.Status == IssueOverdue {
		return true
	}
	return i.Status == IssueIssued && i.ReturnDate != nil && now.After(i.ReturnDate.Time)
}

// FlashKind selects how a flash message is styled.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// Token is the body of a successful login call.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Outbound payloads
// ─────────────────────────────────────────────────────────────────────────────

type NewRequest struct {
	BookID int64 `json:"book_id"`
}

type RequestStatusUpdate struct {
	Status RequestStatus `json:"status"`
}

type NewIssue struct {
	CopyID     int64 `json:"copy_id"`
	UserID     int64 `json:"user_id"`
	ReturnDate Time  `json:"return_date"`
}

type NewUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Browser forms
// ─────────────────────────────────────────────────────────────────────────────

type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type RegisterForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type RequestForm struct {
	BookID int64 `validate:"required,gt=0"`
}

type ApproveForm struct {
	RequestID int64 `validate:"required,gt=0"`
}
