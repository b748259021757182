package billing

import "errors"

// BillingAccount is a read-only view of a cloud billing account as returned
// by the gateway. Name is the opaque resource name ("billingAccounts/XXXXXX").
type BillingAccount struct {
	Name        string
	DisplayName string
	Open        bool
}

// LinkState is the project's currently observed billing association. It is
// re-fetched on demand and never cached, because it can change out-of-band.
type LinkState struct {
	BillingAccountName string
	BillingEnabled     bool
}

// ErrBillingInfoNotFound is returned by a Client when a project has no
// billing info resource at all. Callers treat this as "currently unlinked",
// not as a failure.
var ErrBillingInfoNotFound = errors.New("project billing info not found")

// ResolutionOutcome is the closed set of results from listing billing
// accounts. The ambiguity between "API disabled" and "no permission" is
// deliberately preserved as a single outcome: the remote error message is the
// only signal separating the two, and it is unreliable.
type ResolutionOutcome string

const (
	OutcomeAccounts                  ResolutionOutcome = "ACCOUNTS"
	OutcomeAPIDisabledOrNoPermission ResolutionOutcome = "API_DISABLED_OR_NO_PERMISSION"
	OutcomePermissionDenied          ResolutionOutcome = "PERMISSION_DENIED"
	OutcomeUnexpectedError           ResolutionOutcome = "UNEXPECTED_ERROR"
)

// Resolution carries a ResolutionOutcome together with the account list (on
// success) or the underlying error (on failure) for logging.
type Resolution struct {
	Outcome  ResolutionOutcome
	Accounts []BillingAccount
	Err      error
}

// LinkOutcome is the closed set of results from reconciling a project's
// billing link.
type LinkOutcome string

const (
	LinkAlreadyLinked        LinkOutcome = "ALREADY_LINKED"
	LinkLinked               LinkOutcome = "LINKED"
	LinkRequestFailed        LinkOutcome = "LINK_REQUEST_FAILED"
	LinkVerificationTimedOut LinkOutcome = "VERIFICATION_TIMED_OUT"
)

// LinkResult is the outcome of a reconciliation run. PreviousAccount records
// a pre-existing link to a different account, when one was observed.
type LinkResult struct {
	Outcome         LinkOutcome
	PreviousAccount string
	Err             error
}
