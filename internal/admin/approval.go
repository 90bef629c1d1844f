package admin

import (
	"errors"
	"fmt"

	"github.com/aanand-mishra/library-web/internal/types"
)

// ErrNoAvailableCopy is the business fault of an approval that found no
// copy of the book with status available.
var ErrNoAvailableCopy = errors.New("admin: no available copy")

// Faults of PendingRequest. Their text is shown to the admin.
var (
	ErrRequestNotFound   = errors.New("request not found")
	ErrRequestNotPending = errors.New("request is no longer pending")
)

// Outcome tags an ApprovalResult.
type Outcome int

const (
	// Approved means the issue was created and the request marked approved.
	Approved Outcome = iota + 1
	// RequestUpdateFailed means the issue was created but the request kept
	// its old status. The copy is out on loan while the request still reads
	// pending.
	RequestUpdateFailed
	// NoCopyAvailable means nothing was written.
	NoCopyAvailable
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case RequestUpdateFailed:
		return "request-update-failed"
	case NoCopyAvailable:
		return "no-copy-available"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ApprovalResult is the outcome of Workflow.Approve.
//
// Construct it only through ApprovedResult, RequestUpdateFailedResult and
// NoCopyAvailableResult so Copy and Issue are set exactly when an issue was
// created.
type ApprovalResult struct {
	Outcome Outcome
	Copy    types.Copy
	Issue   types.Issue
	Err     error
}

// ApprovedResult records a fully applied approval.
func ApprovedResult(cp types.Copy, issue types.Issue) ApprovalResult {
	return ApprovalResult{Outcome: Approved, Copy: cp, Issue: issue}
}

// RequestUpdateFailedResult records an approval whose second write failed.
func RequestUpdateFailedResult(cp types.Copy, issue types.Issue, err error) ApprovalResult {
	return ApprovalResult{Outcome: RequestUpdateFailed, Copy: cp, Issue: issue, Err: err}
}

// NoCopyAvailableResult records an approval that wrote nothing.
func NoCopyAvailableResult() ApprovalResult {
	return ApprovalResult{Outcome: NoCopyAvailable, Err: ErrNoAvailableCopy}
}

// Issued reports whether a copy was issued, whatever happened after.
func (r ApprovalResult) Issued() bool {
	return r.Outcome == Approved || r.Outcome == RequestUpdateFailed
}

// HasError returns the business or second-write fault, if any.
func (r ApprovalResult) HasError() error {
	if r.Outcome == Approved {
		return nil
	}
	return r.Err
}

// Flash is the message shown to the admin for r.
func (r ApprovalResult) Flash() types.Flash {
	switch r.Outcome {
	case Approved:
		return types.Flash{Kind: types.FlashSuccess, Message: msgApproved}
	case NoCopyAvailable:
		return types.Flash{Kind: types.FlashError, Message: msgNoCopy}
	default:
		return types.Flash{Kind: types.FlashError, Message: msgApproveFailed + reason(r.Err)}
	}
}
