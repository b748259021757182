package billing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultVerifyAttempts bounds the post-update verification loop.
	DefaultVerifyAttempts = 6
	// DefaultVerifyInterval separates consecutive verification polls.
	DefaultVerifyInterval = 10 * time.Second
)

// WaitFunc blocks for the given duration or until the context is cancelled.
// Injected so retry loops are testable without real sleeps.
type WaitFunc func(ctx context.Context, d time.Duration) error

// SleepWait is the production WaitFunc: a context-aware sleep.
func SleepWait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LinkerConfig holds the verification retry knobs.
type LinkerConfig struct {
	VerifyAttempts int
	VerifyInterval time.Duration
}

// LinkReconciler drives a project's billing link to a target account and
// polls until the link is observably active or the retry budget runs out.
type LinkReconciler struct {
	client Client
	cfg    LinkerConfig
	wait   WaitFunc
	logger zerolog.Logger
}

// NewLinkReconciler creates a reconciler over the given gateway client. Zero
// config fields fall back to the defaults.
func NewLinkReconciler(client Client, cfg LinkerConfig, logger zerolog.Logger) *LinkReconciler {
	if cfg.VerifyAttempts <= 0 {
		cfg.VerifyAttempts = DefaultVerifyAttempts
	}
	if cfg.VerifyInterval <= 0 {
		cfg.VerifyInterval = DefaultVerifyInterval
	}
	return &LinkReconciler{
		client: client,
		cfg:    cfg,
		wait:   SleepWait,
		logger: logger.With().Str("component", "LinkReconciler").Logger(),
	}
}

// SetWaitFunc replaces the inter-poll wait. For tests.
func (l *LinkReconciler) SetWaitFunc(wait WaitFunc) {
	l.wait = wait
}

// Link reconciles the project's billing link with the target account.
//
// Already-correct links short-circuit without issuing an update; a link to a
// different account is unconditionally overwritten, with the prior account
// recorded in the result. After a successful update request the link is
// polled until it is observably active; exhausting the budget yields
// LinkVerificationTimedOut, which is a warning rather than a hard failure
// because the accepted update may still land later.
func (l *LinkReconciler) Link(ctx context.Context, projectID string, target BillingAccount) LinkResult {
	if projectID == "" {
		err := errors.New("project id is empty")
		l.logger.Error().Msg("Cannot link project to billing: the provided project id is empty.")
		return LinkResult{Outcome: LinkRequestFailed, Err: err}
	}

	logger := l.logger.With().Str("project_id", projectID).Str("billing_account", target.Name).Logger()
	logger.Info().Msg("Checking current billing status for project...")

	var previousAccount string

	current, err := l.client.GetProjectBillingInfo(ctx, projectID)
	switch {
	case errors.Is(err, ErrBillingInfoNotFound):
		logger.Info().Msg("Project is not currently linked to any billing account.")
	case err != nil:
		// The update below re-establishes ground truth, so a failed read is
		// reported but does not abort the run.
		logger.Warn().Err(err).Msg("Could not read current billing link; proceeding with update.")
	case current.BillingAccountName == target.Name:
		logger.Info().Str("display_name", target.DisplayName).
			Msg("Project is already linked to the target billing account.")
		return LinkResult{Outcome: LinkAlreadyLinked}
	case current.BillingEnabled:
		previousAccount = current.BillingAccountName
		logger.Info().Str("previous_account", previousAccount).
			Msg("Project is currently linked to a different billing account; it will be re-linked.")
	}

	logger.Info().Str("display_name", target.DisplayName).Msg("Sending billing link request...")

	if err := l.client.UpdateProjectBillingInfo(ctx, projectID, target.Name); err != nil {
		if status.Code(err) == codes.PermissionDenied {
			logger.Error().Err(err).
				Msg("Permission denied updating billing link. The caller may be missing 'roles/billing.projectManager' on the project.")
		} else {
			logger.Error().Err(err).Msg("Billing link update request failed.")
		}
		return LinkResult{Outcome: LinkRequestFailed, PreviousAccount: previousAccount, Err: err}
	}

	logger.Info().Msg("Link request accepted. Verifying that the billing link is active...")

	for attempt := 1; attempt <= l.cfg.VerifyAttempts; attempt++ {
		verified, err := l.client.GetProjectBillingInfo(ctx, projectID)
		if err != nil {
			// Transient verification errors are absorbed: they count as a
			// non-matching attempt and the loop continues.
			logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", l.cfg.VerifyAttempts).
				Msg("Verification fetch failed.")
		} else if verified.BillingAccountName == target.Name && verified.BillingEnabled {
			logger.Info().Int("attempt", attempt).Msg("Billing link is confirmed active.")
			return LinkResult{Outcome: LinkLinked, PreviousAccount: previousAccount}
		} else {
			logger.Info().Int("attempt", attempt).Int("max_attempts", l.cfg.VerifyAttempts).
				Msg("Billing link not active yet.")
		}

		if attempt == l.cfg.VerifyAttempts {
			break
		}
		if err := l.wait(ctx, l.cfg.VerifyInterval); err != nil {
			return LinkResult{Outcome: LinkVerificationTimedOut, PreviousAccount: previousAccount, Err: err}
		}
	}

	logger.Warn().Int("max_attempts", l.cfg.VerifyAttempts).
		Msg("Could not verify the billing link became active within the retry budget. The accepted update may still complete out-of-band.")
	return LinkResult{Outcome: LinkVerificationTimedOut, PreviousAccount: previousAccount}
}
