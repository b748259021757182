package prerequisites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	serviceusage "cloud.google.com/go/serviceusage/apiv1"
	"cloud.google.com/go/serviceusage/apiv1/serviceusagepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ServiceAPIClient defines the contract for a client that can check for and
// enable cloud service APIs.
type ServiceAPIClient interface {
	GetEnabledServices(ctx context.Context, projectID string) (map[string]struct{}, error)
	EnableService(ctx context.Context, projectID string, service string) error
	Close() error
}

// googleServiceAPIClient implements the ServiceAPIClient interface for GCP.
type googleServiceAPIClient struct {
	client *serviceusage.Client
}

// NewGoogleServiceAPIClient creates a new client for the GCP Service Usage API.
func NewGoogleServiceAPIClient(ctx context.Context, opts ...option.ClientOption) (ServiceAPIClient, error) {
	client, err := serviceusage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create serviceusage client: %w", err)
	}
	return &googleServiceAPIClient{client: client}, nil
}

// GetEnabledServices retrieves a set of all currently enabled APIs for a project.
func (c *googleServiceAPIClient) GetEnabledServices(ctx context.Context, projectID string) (map[string]struct{}, error) {
	enabled := make(map[string]struct{})
	req := &serviceusagepb.ListServicesRequest{
		Parent: fmt.Sprintf("projects/%s", projectID),
		Filter: "state:ENABLED",
	}
	it := c.client.ListServices(ctx, req)
	for {
		service, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list enabled services: %w", err)
		}
		// The service name is in the format "projects/12345/services/foo.googleapis.com"
		// We only need the "foo.googleapis.com" part.
		lastSlash := strings.LastIndex(service.Name, "/")
		if lastSlash != -1 {
			enabled[service.Name[lastSlash+1:]] = struct{}{}
		}
	}
	return enabled, nil
}

// EnableService submits an enable request for a single service and waits for
// the request to be accepted. Acceptance does not mean the API is usable yet;
// enablement propagates asynchronously.
func (c *googleServiceAPIClient) EnableService(ctx context.Context, projectID string, service string) error {
	req := &serviceusagepb.EnableServiceRequest{
		Name: fmt.Sprintf("projects/%s/services/%s", projectID, service),
	}
	op, err := c.client.EnableService(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start enable operation for %s: %w", service, err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return err
	}
	return nil
}

func (c *googleServiceAPIClient) Close() error {
	return c.client.Close()
}
