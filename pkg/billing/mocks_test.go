package billing_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/illmade-knight/go-billing-bootstrap/pkg/billing"
)

// MockClient is a mock implementation of the billing.Client interface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) ListBillingAccounts(ctx context.Context) ([]billing.BillingAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.BillingAccount), args.Error(1)
}

func (m *MockClient) GetProjectBillingInfo(ctx context.Context, projectID string) (billing.LinkState, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(billing.LinkState), args.Error(1)
}

func (m *MockClient) UpdateProjectBillingInfo(ctx context.Context, projectID string, accountName string) error {
	args := m.Called(ctx, projectID, accountName)
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
