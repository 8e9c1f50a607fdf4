package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/hostara/billing-service/internal/client"
	"github.com/hostara/billing-service/internal/models"
)

type mockServerStore struct {
	mock.Mock
}

func (m *mockServerStore) Create(ctx context.Context, srv *models.Server) error {
	args := m.Called(ctx, srv)
	return args.Error(0)
}

func (m *mockServerStore) GetByID(ctx context.Context, id string) (*models.Server, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Server), args.Error(1)
}

func (m *mockServerStore) ListByAccount(ctx context.Context, accountID string) ([]*models.Server, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Server), args.Error(1)
}

func (m *mockServerStore) ListBillable(ctx context.Context) ([]*models.Server, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Server), args.Error(1)
}

func (m *mockServerStore) SetSuspended(ctx context.Context, id string, suspended bool) error {
	args := m.Called(ctx, id, suspended)
	return args.Error(0)
}

func (m *mockServerStore) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockServerStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockAccountStore struct {
	mock.Mock
}

func (m *mockAccountStore) Create(ctx context.Context, acc *models.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *mockAccountStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockAccountStore) DebitIfSufficient(ctx context.Context, id string, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, id, amount)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountStore) Credit(ctx context.Context, id string, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

type mockEventLogger struct {
	mock.Mock
}

func (m *mockEventLogger) LogEvent(ctx context.Context, serverID, accountID, event, message string) error {
	args := m.Called(ctx, serverID, accountID, event, message)
	return args.Error(0)
}

func (m *mockEventLogger) LogCharge(ctx context.Context, serverID, accountID string, amount decimal.Decimal, message string) error {
	args := m.Called(ctx, serverID, accountID, amount, message)
	return args.Error(0)
}

func (m *mockEventLogger) GetByServerID(ctx context.Context, serverID string, limit int) ([]*models.BillingLog, error) {
	args := m.Called(ctx, serverID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BillingLog), args.Error(1)
}

type mockPanelAPI struct {
	mock.Mock
}

func (m *mockPanelAPI) CreateServer(ctx context.Context, req *client.CreateServerRequest) (*client.ServerAttributes, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.ServerAttributes), args.Error(1)
}

func (m *mockPanelAPI) GetServer(ctx context.Context, serverID int64) (*client.ServerAttributes, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.ServerAttributes), args.Error(1)
}

func (m *mockPanelAPI) DeleteServer(ctx context.Context, serverID int64) error {
	args := m.Called(ctx, serverID)
	return args.Error(0)
}

func (m *mockPanelAPI) SuspendServer(ctx context.Context, serverID int64) error {
	args := m.Called(ctx, serverID)
	return args.Error(0)
}

func (m *mockPanelAPI) UnsuspendServer(ctx context.Context, serverID int64) error {
	args := m.Called(ctx, serverID)
	return args.Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Notify(ctx context.Context, accountID, template string, data map[string]any) error {
	args := m.Called(ctx, accountID, template, data)
	return args.Error(0)
}

// decimalEq matches a decimal.Decimal argument by numeric value, since
// equal values can differ in internal exponent.
func decimalEq(want decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}
