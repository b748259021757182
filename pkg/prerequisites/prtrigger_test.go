package prerequisites_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-billing-bootstrap/pkg/prerequisites"
)

// MockServiceAPIClient is a mock implementation of the ServiceAPIClient interface.
type MockServiceAPIClient struct {
	mock.Mock
}

func (m *MockServiceAPIClient) GetEnabledServices(ctx context.Context, projectID string) (map[string]struct{}, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockServiceAPIClient) EnableService(ctx context.Context, projectID string, service string) error {
	args := m.Called(ctx, projectID, service)
	return args.Error(0)
}

func (m *MockServiceAPIClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func setupTriggerTest(t *testing.T) (*prerequisites.Trigger, *MockServiceAPIClient) {
	t.Helper()
	mockClient := new(MockServiceAPIClient)
	trigger := prerequisites.NewTrigger(mockClient, zerolog.Nop())
	require.NotNil(t, trigger)
	return trigger, mockClient
}

func TestTrigger_EnableBillingAPI_AlreadyEnabled(t *testing.T) {
	// ARRANGE
	trigger, mockClient := setupTriggerTest(t)
	ctx := context.Background()

	enabled := map[string]struct{}{
		prerequisites.CloudBillingService: {},
		"serviceusage.googleapis.com":     {},
	}
	mockClient.On("GetEnabledServices", ctx, "test-project").Return(enabled, nil).Once()

	// ACT
	err := trigger.EnableBillingAPI(ctx, "test-project")

	// ASSERT
	require.NoError(t, err)
	// Already enabled: no enable request may be issued.
	mockClient.AssertNotCalled(t, "EnableService", mock.Anything, mock.Anything, mock.Anything)
	mockClient.AssertExpectations(t)
}

func TestTrigger_EnableBillingAPI_SendsRequest(t *testing.T) {
	// ARRANGE
	trigger, mockClient := setupTriggerTest(t)
	ctx := context.Background()

	enabled := map[string]struct{}{"serviceusage.googleapis.com": {}}
	mockClient.On("GetEnabledServices", ctx, "test-project").Return(enabled, nil).Once()
	mockClient.On("EnableService", ctx, "test-project", prerequisites.CloudBillingService).Return(nil).Once()

	// ACT
	err := trigger.EnableBillingAPI(ctx, "test-project")

	// ASSERT
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestTrigger_EnableBillingAPI_ListFailureFallsThrough(t *testing.T) {
	// ARRANGE
	trigger, mockClient := setupTriggerTest(t)
	ctx := context.Background()

	// A caller that cannot list services can often still enable one, so the
	// failed check must not abort the request.
	mockClient.On("GetEnabledServices", ctx, "test-project").Return(nil, errors.New("permission denied")).Once()
	mockClient.On("EnableService", ctx, "test-project", prerequisites.CloudBillingService).Return(nil).Once()

	// ACT
	err := trigger.EnableBillingAPI(ctx, "test-project")

	// ASSERT
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestTrigger_EnableBillingAPI_RequestRejected(t *testing.T) {
	// ARRANGE
	trigger, mockClient := setupTriggerTest(t)
	ctx := context.Background()
	expectedErr := errors.New("enable rejected")

	mockClient.On("GetEnabledServices", ctx, "test-project").Return(map[string]struct{}{}, nil).Once()
	mockClient.On("EnableService", ctx, "test-project", prerequisites.CloudBillingService).Return(expectedErr).Once()

	// ACT
	err := trigger.EnableBillingAPI(ctx, "test-project")

	// ASSERT
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	mockClient.AssertExpectations(t)
}
