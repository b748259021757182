package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-billing-bootstrap/pkg/billing"
	"github.com/illmade-knight/go-billing-bootstrap/pkg/projectid"
)

// State names a step of the billing bootstrap state machine.
type State string

const (
	StateResolveProject  State = "RESOLVE_PROJECT"
	StateResolveAccounts State = "RESOLVE_ACCOUNTS"
	StateEnableAndRetry  State = "ENABLE_AND_RETRY"
	StateSelectAccount   State = "SELECT_ACCOUNT"
	StateReconcile       State = "RECONCILE"
	StateDone            State = "DONE"
	StateFailed          State = "FAILED"
)

const (
	// DefaultEnableAttempts bounds the post-enablement resolver polls.
	DefaultEnableAttempts = 5
	// DefaultEnableBaseWait is the wait before the first post-enablement poll.
	DefaultEnableBaseWait = 15 * time.Second
	// DefaultEnableMultiplier grows the wait between consecutive polls.
	DefaultEnableMultiplier = 1.5
)

// Config holds the enablement retry knobs.
type Config struct {
	EnableAttempts   int
	EnableBaseWait   time.Duration
	EnableMultiplier float64
}

// Resolver lists billing accounts and classifies failures.
type Resolver interface {
	Resolve(ctx context.Context) billing.Resolution
}

// Trigger submits the one-shot billing API enablement request.
type Trigger interface {
	EnableBillingAPI(ctx context.Context, projectID string) error
}

// Linker reconciles a project's billing link with a target account.
type Linker interface {
	Link(ctx context.Context, projectID string, target billing.BillingAccount) billing.LinkResult
}

// Orchestrator sequences one project's billing bootstrap: resolve the project
// id, resolve billing accounts (enabling the billing API and retrying when it
// looks disabled), select an open account, and reconcile the link.
type Orchestrator struct {
	cfg      Config
	projects projectid.Source
	checker  ProjectChecker
	resolver Resolver
	trigger  Trigger
	linker   Linker
	wait     billing.WaitFunc
	logger   zerolog.Logger
	state    State
}

// NewOrchestrator creates the state machine. checker may be nil to skip the
// project preflight. Zero config fields fall back to the defaults.
func NewOrchestrator(cfg Config, projects projectid.Source, checker ProjectChecker, resolver Resolver, trigger Trigger, linker Linker, logger zerolog.Logger) *Orchestrator {
	if cfg.EnableAttempts <= 0 {
		cfg.EnableAttempts = DefaultEnableAttempts
	}
	if cfg.EnableBaseWait <= 0 {
		cfg.EnableBaseWait = DefaultEnableBaseWait
	}
	if cfg.EnableMultiplier <= 0 {
		cfg.EnableMultiplier = DefaultEnableMultiplier
	}
	return &Orchestrator{
		cfg:      cfg,
		projects: projects,
		checker:  checker,
		resolver: resolver,
		trigger:  trigger,
		linker:   linker,
		wait:     billing.SleepWait,
		logger: logger.With().
			Str("component", "Orchestrator").
			Str("run_id", uuid.NewString()).
			Logger(),
	}
}

// SetWaitFunc replaces the backoff wait. For tests.
func (o *Orchestrator) SetWaitFunc(wait billing.WaitFunc) {
	o.wait = wait
}

func (o *Orchestrator) setState(next State) {
	o.logger.Info().Str("from", string(o.state)).Str("to", string(next)).Msg("State transition")
	o.state = next
}

func (o *Orchestrator) fail(code ExitCode, err error) Result {
	result := Result{Code: code, State: o.state, Err: err}
	o.state = StateFailed
	return result
}

// Run executes the state machine once and returns the terminal result. All
// gateway calls are synchronous; the only latency sources are the bounded
// verification and enablement waits.
func (o *Orchestrator) Run(ctx context.Context) Result {
	o.logger.Info().Msg("Starting billing bootstrap run...")

	o.setState(StateResolveProject)

	projectID, err := o.projects.ProjectID(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("Could not determine the target project id.")
		return o.fail(CodeMissingProjectID, err)
	}
	o.logger.Info().Str("project_id", projectID).Msg("Resolved target project id.")

	if o.checker != nil {
		if err := o.checker.CheckProject(ctx, projectID); err != nil {
			o.logger.Error().Err(err).Str("project_id", projectID).Msg("Project preflight check failed.")
			return o.fail(CodeMissingProjectID, err)
		}
		o.logger.Info().Str("project_id", projectID).Msg("Project exists and is active.")
	}

	o.setState(StateResolveAccounts)

	resolution := o.resolver.Resolve(ctx)
	if resolution.Outcome == billing.OutcomeAPIDisabledOrNoPermission {
		o.setState(StateEnableAndRetry)

		if err := o.trigger.EnableBillingAPI(ctx, projectID); err != nil {
			return o.fail(CodeEnableRequestFailed, err)
		}
		resolution = o.awaitBillingAPI(ctx)
	}

	switch resolution.Outcome {
	case billing.OutcomeAccounts:
		// Fall through to selection.
	case billing.OutcomeAPIDisabledOrNoPermission:
		o.logger.Error().
			Msg("The billing API never became active within the retry budget, or the caller lacks 'roles/billing.user'. Verify the IAM grant on the organization or billing account.")
		return o.fail(CodeAPINeverEnabled, resolution.Err)
	case billing.OutcomePermissionDenied:
		return o.fail(CodePermissionDenied, resolution.Err)
	default:
		return o.fail(CodeUnexpectedError, resolution.Err)
	}

	o.setState(StateSelectAccount)

	target, code := selectOpenAccount(resolution.Accounts, o.logger)
	if target == nil {
		return o.fail(code, nil)
	}

	o.setState(StateReconcile)

	linkResult := o.linker.Link(ctx, projectID, *target)
	switch linkResult.Outcome {
	case billing.LinkAlreadyLinked, billing.LinkLinked:
		o.setState(StateDone)
		o.logger.Info().Str("billing_account", target.Name).Str("outcome", string(linkResult.Outcome)).
			Msg("Billing bootstrap completed.")
		return Result{Code: CodeOK, State: StateDone, Account: target}
	case billing.LinkVerificationTimedOut:
		result := o.fail(CodeVerificationTimedOut, linkResult.Err)
		result.Account = target
		return result
	default:
		result := o.fail(CodeLinkRequestFailed, linkResult.Err)
		result.Account = target
		return result
	}
}

// awaitBillingAPI polls the resolver until the outcome is no longer the
// ambiguous disabled-API class or the retry budget runs out. Waits grow
// multiplicatively from the base wait to ride out propagation delay.
func (o *Orchestrator) awaitBillingAPI(ctx context.Context) billing.Resolution {
	waitFor := o.cfg.EnableBaseWait
	resolution := billing.Resolution{Outcome: billing.OutcomeAPIDisabledOrNoPermission}

	for attempt := 1; attempt <= o.cfg.EnableAttempts; attempt++ {
		o.logger.Info().
			Int("attempt", attempt).
			Int("max_attempts", o.cfg.EnableAttempts).
			Dur("wait", waitFor).
			Msg("Waiting for the billing API enablement to propagate...")

		if err := o.wait(ctx, waitFor); err != nil {
			resolution.Err = err
			return resolution
		}

		resolution = o.resolver.Resolve(ctx)
		if resolution.Outcome != billing.OutcomeAPIDisabledOrNoPermission {
			o.logger.Info().Int("attempt", attempt).Msg("The billing API is now responding.")
			return resolution
		}

		waitFor = time.Duration(float64(waitFor) * o.cfg.EnableMultiplier)
	}

	return resolution
}

// selectOpenAccount picks the first open account in gateway order. The
// gateway's ordering is accepted as-is; no tie-break is imposed.
func selectOpenAccount(accounts []billing.BillingAccount, logger zerolog.Logger) (*billing.BillingAccount, ExitCode) {
	if len(accounts) == 0 {
		logger.Error().Msg("No billing accounts were found. This can also be a permissions issue.")
		return nil, CodeNoAccounts
	}

	for i := range accounts {
		if accounts[i].Open {
			logger.Info().
				Str("billing_account", accounts[i].Name).
				Str("display_name", accounts[i].DisplayName).
				Msg("Selected the first open billing account as the target.")
			return &accounts[i], CodeOK
		}
	}

	logger.Error().Int("count", len(accounts)).Msg("Found billing accounts, but none are currently open.")
	return nil, CodeNoOpenAccounts
}
