package prerequisites

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// CloudBillingService is the management API that must be enabled before
// billing accounts can be listed or linked.
const CloudBillingService = "cloudbilling.googleapis.com"

// Trigger submits one-shot API enablement requests. It reports whether the
// request was accepted, never whether the enablement has propagated.
type Trigger struct {
	client ServiceAPIClient
	logger zerolog.Logger
}

// NewTrigger creates a new enablement trigger.
func NewTrigger(client ServiceAPIClient, logger zerolog.Logger) *Trigger {
	return &Trigger{
		client: client,
		logger: logger.With().Str("component", "EnablementTrigger").Logger(),
	}
}

// EnableBillingAPI asks the gateway to enable the Cloud Billing API for the
// project. A nil return means the request was accepted; the API may still
// take time to become usable. If the API is already reported enabled, no
// request is issued.
func (t *Trigger) EnableBillingAPI(ctx context.Context, projectID string) error {
	t.logger.Info().Str("project_id", projectID).Msg("Attempting to enable the Cloud Billing API...")

	// The enabled-services check is best-effort: a caller that cannot list
	// services can often still enable one, so a failed check falls through
	// to the enable request.
	enabled, err := t.client.GetEnabledServices(ctx, projectID)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Could not list enabled services; sending enable request anyway.")
	} else if _, ok := enabled[CloudBillingService]; ok {
		t.logger.Info().Msg("Cloud Billing API is already enabled for the project.")
		return nil
	}

	if err := t.client.EnableService(ctx, projectID, CloudBillingService); err != nil {
		t.logger.Error().Err(err).Msg("Enable request for the Cloud Billing API was not accepted.")
		return fmt.Errorf("failed to enable %s: %w", CloudBillingService, err)
	}

	t.logger.Info().Msg("Successfully sent request to enable the Cloud Billing API.")
	return nil
}
