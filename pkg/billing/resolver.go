package billing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// disabledAPIPhrases are the message fragments that mark a permission-denied
// error as the ambiguous "billing API disabled" case. Cloud billing returns
// the same error code whether the management API is disabled or the caller
// truly lacks IAM rights; the message text is the only disambiguating signal,
// and it is itself unreliable, so both cases collapse into one outcome and
// the caller's retry policy sorts it out.
var disabledAPIPhrases = []string{
	"api has not been used",
	"service is disabled",
}

// AccountResolver lists billing accounts and classifies failures into the
// closed ResolutionOutcome set. It performs no retries of its own; retry
// policy belongs to the orchestrator.
type AccountResolver struct {
	client Client
	logger zerolog.Logger
}

// NewAccountResolver creates a resolver over the given gateway client.
func NewAccountResolver(client Client, logger zerolog.Logger) *AccountResolver {
	return &AccountResolver{
		client: client,
		logger: logger.With().Str("component", "AccountResolver").Logger(),
	}
}

// Resolve lists the caller's billing accounts. The classification heuristic
// for permission-denied errors lives here and nowhere else.
func (r *AccountResolver) Resolve(ctx context.Context) Resolution {
	r.logger.Info().Msg("Fetching billing accounts...")

	accounts, err := r.client.ListBillingAccounts(ctx)
	if err == nil {
		r.logger.Info().Int("count", len(accounts)).Msg("Billing accounts listed.")
		return Resolution{Outcome: OutcomeAccounts, Accounts: accounts}
	}

	st, ok := status.FromError(err)
	if ok && st.Code() == codes.PermissionDenied {
		message := strings.ToLower(st.Message())
		for _, phrase := range disabledAPIPhrases {
			if strings.Contains(message, phrase) {
				r.logger.Warn().Err(err).
					Msg("Permission denied error looks like a disabled billing API. This can be a propagation delay or a missing 'roles/billing.user' grant.")
				return Resolution{Outcome: OutcomeAPIDisabledOrNoPermission, Err: err}
			}
		}
		r.logger.Error().Err(err).
			Msg("Permission denied listing billing accounts. Ensure the caller holds 'roles/billing.user'.")
		return Resolution{Outcome: OutcomePermissionDenied, Err: err}
	}

	r.logger.Error().Err(err).Msg("Unexpected error while listing billing accounts.")
	return Resolution{Outcome: OutcomeUnexpectedError, Err: err}
}
