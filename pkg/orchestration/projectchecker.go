package orchestration

import (
	"context"
	"fmt"

	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"cloud.google.com/go/resourcemanager/apiv3/resourcemanagerpb"
	"google.golang.org/api/option"
)

// ProjectChecker verifies that a project identifier names a real, usable
// project before any billing operation touches it.
type ProjectChecker interface {
	CheckProject(ctx context.Context, projectID string) error
	Close() error
}

// googleProjectChecker implements ProjectChecker against the Cloud Resource
// Manager API.
type googleProjectChecker struct {
	client *resourcemanager.ProjectsClient
}

// NewGoogleProjectChecker creates a checker backed by Cloud Resource Manager.
func NewGoogleProjectChecker(ctx context.Context, opts ...option.ClientOption) (ProjectChecker, error) {
	client, err := resourcemanager.NewProjectsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resourcemanager client: %w", err)
	}
	return &googleProjectChecker{client: client}, nil
}

// CheckProject fetches the project and confirms it is ACTIVE. A project that
// cannot be fetched or is being deleted is unusable for billing linking.
func (c *googleProjectChecker) CheckProject(ctx context.Context, projectID string) error {
	project, err := c.client.GetProject(ctx, &resourcemanagerpb.GetProjectRequest{
		Name: fmt.Sprintf("projects/%s", projectID),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch project %s: %w", projectID, err)
	}
	if project.State != resourcemanagerpb.Project_ACTIVE {
		return fmt.Errorf("project %s is not active (state: %s)", projectID, project.State)
	}
	return nil
}

func (c *googleProjectChecker) Close() error {
	return c.client.Close()
}
