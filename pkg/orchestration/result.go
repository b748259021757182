package orchestration

import "github.com/illmade-knight/go-billing-bootstrap/pkg/billing"

// ExitCode is the process-level outcome contract. Zero means the project is
// linked (or already was); every terminal failure class gets its own code so
// wrapping scripts can react to the specific cause.
type ExitCode int

const (
	CodeOK                   ExitCode = 0
	CodeMissingProjectID     ExitCode = 10
	CodePermissionDenied     ExitCode = 11
	CodeAPINeverEnabled      ExitCode = 12
	CodeEnableRequestFailed  ExitCode = 13
	CodeNoAccounts           ExitCode = 14
	CodeNoOpenAccounts       ExitCode = 15
	CodeLinkRequestFailed    ExitCode = 16
	CodeVerificationTimedOut ExitCode = 17
	CodeUnexpectedError      ExitCode = 18
)

// Result is the final outcome of one orchestration run.
type Result struct {
	Code ExitCode
	// State is the state the machine finished in: StateDone on success,
	// otherwise the state where the run terminated.
	State State
	// Account is the billing account that was selected, when the run got
	// that far.
	Account *billing.BillingAccount
	Err     error
}
