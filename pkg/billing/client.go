package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	cloudbilling "cloud.google.com/go/billing/apiv1"
	"cloud.google.com/go/billing/apiv1/billingpb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client defines the contract for the remote billing gateway: list billing
// accounts, read a project's current link, and update it.
type Client interface {
	ListBillingAccounts(ctx context.Context) ([]BillingAccount, error)
	GetProjectBillingInfo(ctx context.Context, projectID string) (LinkState, error)
	UpdateProjectBillingInfo(ctx context.Context, projectID string, accountName string) error
	Close() error
}

// googleBillingClient implements the Client interface against the GCP Cloud
// Billing API.
type googleBillingClient struct {
	client      *cloudbilling.CloudBillingClient
	callTimeout time.Duration
}

// NewGoogleBillingClient creates a new client for the GCP Cloud Billing API.
// Every call is bounded by callTimeout; the gateway itself configures no
// per-call deadline.
func NewGoogleBillingClient(ctx context.Context, callTimeout time.Duration, opts ...option.ClientOption) (Client, error) {
	client, err := cloudbilling.NewCloudBillingClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudbilling client: %w", err)
	}
	return &googleBillingClient{client: client, callTimeout: callTimeout}, nil
}

func (c *googleBillingClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// ListBillingAccounts returns every billing account visible to the caller, in
// the order the gateway returns them.
func (c *googleBillingClient) ListBillingAccounts(ctx context.Context) ([]BillingAccount, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	var accounts []BillingAccount
	it := c.client.ListBillingAccounts(ctx, &billingpb.ListBillingAccountsRequest{})
	for {
		account, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, BillingAccount{
			Name:        account.Name,
			DisplayName: account.DisplayName,
			Open:        account.Open,
		})
	}
	return accounts, nil
}

// GetProjectBillingInfo fetches the project's current billing link. A project
// with no billing info resource yields ErrBillingInfoNotFound.
func (c *googleBillingClient) GetProjectBillingInfo(ctx context.Context, projectID string) (LinkState, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	info, err := c.client.GetProjectBillingInfo(ctx, &billingpb.GetProjectBillingInfoRequest{
		Name: fmt.Sprintf("projects/%s", projectID),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return LinkState{}, ErrBillingInfoNotFound
		}
		return LinkState{}, err
	}
	return LinkState{
		BillingAccountName: info.BillingAccountName,
		BillingEnabled:     info.BillingEnabled,
	}, nil
}

// UpdateProjectBillingInfo sets the project's billing link to the given
// billing account resource name.
func (c *googleBillingClient) UpdateProjectBillingInfo(ctx context.Context, projectID string, accountName string) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.client.UpdateProjectBillingInfo(ctx, &billingpb.UpdateProjectBillingInfoRequest{
		Name: fmt.Sprintf("projects/%s", projectID),
		ProjectBillingInfo: &billingpb.ProjectBillingInfo{
			BillingAccountName: accountName,
		},
	})
	return err
}

func (c *googleBillingClient) Close() error {
	return c.client.Close()
}
