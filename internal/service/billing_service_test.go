package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hostara/billing-service/internal/models"
)

type billingFixture struct {
	servers  *mockServerStore
	accounts *mockAccountStore
	logs     *mockEventLogger
	panel    *mockPanelAPI
	gateway  *mockGateway
	svc      *BillingService
}

func newBillingFixture() *billingFixture {
	f := &billingFixture{
		servers:  new(mockServerStore),
		accounts: new(mockAccountStore),
		logs:     new(mockEventLogger),
		panel:    new(mockPanelAPI),
		gateway:  new(mockGateway),
	}
	f.svc = NewBillingService(f.servers, f.accounts, f.logs, f.panel, f.gateway)
	return f
}

func billableServer(id, accountID string, monthly string) *models.Server {
	return &models.Server{
		ID:            id,
		AccountID:     accountID,
		PanelServerID: 42,
		Name:          "mc-" + id,
		Status:        models.StatusActive,
		Price:         decimal.RequireFromString(monthly),
	}
}

func TestChargeServer_Charges(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")

	// 720.00 / 720 hours => 1.00 per tick
	f.accounts.On("DebitIfSufficient", mock.Anything, "acc-1", decimalEq(decimal.NewFromInt(1))).
		Return(true, nil)
	f.logs.On("LogCharge", mock.Anything, "srv-1", "acc-1", decimalEq(decimal.NewFromInt(1)), mock.Anything).
		Return(nil)

	charged, err := f.svc.ChargeServer(context.Background(), srv, NewNotifiedSet())

	require.NoError(t, err)
	assert.True(t, charged)
	assert.False(t, srv.Suspended)
	f.servers.AssertNotCalled(t, "SetSuspended", mock.Anything, mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.accounts.AssertExpectations(t)
	f.logs.AssertExpectations(t)
}

func TestChargeServer_InsufficientFundsSuspends(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")

	f.accounts.On("DebitIfSufficient", mock.Anything, "acc-1", mock.Anything).Return(false, nil)
	f.servers.On("SetSuspended", mock.Anything, "srv-1", true).Return(nil)
	f.panel.On("SuspendServer", mock.Anything, int64(42)).Return(nil)
	f.logs.On("LogEvent", mock.Anything, "srv-1", "acc-1", models.EventSuspend, mock.Anything).Return(nil)
	f.gateway.On("Notify", mock.Anything, "acc-1", models.TemplateServersSuspended, mock.Anything).Return(nil)

	charged, err := f.svc.ChargeServer(context.Background(), srv, NewNotifiedSet())

	require.NoError(t, err)
	assert.False(t, charged)
	assert.True(t, srv.Suspended)
	f.logs.AssertNotCalled(t, "LogCharge", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.servers.AssertExpectations(t)
	f.panel.AssertExpectations(t)
	f.gateway.AssertNumberOfCalls(t, "Notify", 1)
}

func TestChargeServer_SkipsSuspended(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")
	srv.Suspended = true

	charged, err := f.svc.ChargeServer(context.Background(), srv, NewNotifiedSet())

	require.NoError(t, err)
	assert.False(t, charged)
	f.accounts.AssertNotCalled(t, "DebitIfSufficient", mock.Anything, mock.Anything, mock.Anything)
	f.servers.AssertNotCalled(t, "SetSuspended", mock.Anything, mock.Anything, mock.Anything)
}

func TestChargeServer_DebitErrorDoesNotSuspend(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")

	f.accounts.On("DebitIfSufficient", mock.Anything, "acc-1", mock.Anything).
		Return(false, errors.New("connection reset"))

	charged, err := f.svc.ChargeServer(context.Background(), srv, NewNotifiedSet())

	require.Error(t, err)
	assert.False(t, charged)
	f.servers.AssertNotCalled(t, "SetSuspended", mock.Anything, mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuspend_Idempotent(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")
	srv.Suspended = true

	f.servers.On("SetSuspended", mock.Anything, "srv-1", true).Return(nil)
	f.gateway.On("Notify", mock.Anything, "acc-1", models.TemplateServersSuspended, mock.Anything).Return(nil)

	err := f.svc.Suspend(context.Background(), srv, NewNotifiedSet(), true)

	require.NoError(t, err)
	// Already suspended: the flag is re-persisted but the panel is not
	// poked again and no new suspend event is written.
	f.servers.AssertNumberOfCalls(t, "SetSuspended", 1)
	f.panel.AssertNotCalled(t, "SuspendServer", mock.Anything, mock.Anything)
	f.logs.AssertNotCalled(t, "LogEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuspend_NotificationFailureKeepsSuspension(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")

	f.servers.On("SetSuspended", mock.Anything, "srv-1", true).Return(nil)
	f.panel.On("SuspendServer", mock.Anything, int64(42)).Return(nil)
	f.logs.On("LogEvent", mock.Anything, "srv-1", "acc-1", models.EventSuspend, mock.Anything).Return(nil)
	f.gateway.On("Notify", mock.Anything, "acc-1", models.TemplateServersSuspended, mock.Anything).
		Return(errors.New("nats down"))

	err := f.svc.Suspend(context.Background(), srv, NewNotifiedSet(), true)

	require.NoError(t, err)
	assert.True(t, srv.Suspended)
}

func TestSuspend_PanelFailureKeepsSuspension(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")

	f.servers.On("SetSuspended", mock.Anything, "srv-1", true).Return(nil)
	f.panel.On("SuspendServer", mock.Anything, int64(42)).Return(errors.New("panel unreachable"))
	f.logs.On("LogEvent", mock.Anything, "srv-1", "acc-1", models.EventSuspend, mock.Anything).Return(nil)
	f.gateway.On("Notify", mock.Anything, "acc-1", models.TemplateServersSuspended, mock.Anything).Return(nil)

	err := f.svc.Suspend(context.Background(), srv, NewNotifiedSet(), true)

	require.NoError(t, err)
	assert.True(t, srv.Suspended)
}

func TestSuspend_PersistFailureSurfaces(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")

	f.servers.On("SetSuspended", mock.Anything, "srv-1", true).Return(errors.New("db down"))

	err := f.svc.Suspend(context.Background(), srv, NewNotifiedSet(), true)

	require.Error(t, err)
	assert.False(t, srv.Suspended)
	f.gateway.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSuspend_OneNotificationPerAccountPerBatch(t *testing.T) {
	f := newBillingFixture()
	first := billableServer("srv-1", "acc-1", "720.00")
	second := billableServer("srv-2", "acc-1", "360.00")

	f.servers.On("SetSuspended", mock.Anything, mock.Anything, true).Return(nil)
	f.panel.On("SuspendServer", mock.Anything, mock.Anything).Return(nil)
	f.logs.On("LogEvent", mock.Anything, mock.Anything, "acc-1", models.EventSuspend, mock.Anything).Return(nil)
	f.gateway.On("Notify", mock.Anything, "acc-1", models.TemplateServersSuspended, mock.Anything).Return(nil)

	batch := NewNotifiedSet()
	require.NoError(t, f.svc.Suspend(context.Background(), first, batch, true))
	require.NoError(t, f.svc.Suspend(context.Background(), second, batch, true))

	f.gateway.AssertNumberOfCalls(t, "Notify", 1)
	assert.Equal(t, 1, batch.Len())
}

func TestUnsuspend(t *testing.T) {
	f := newBillingFixture()
	srv := billableServer("srv-1", "acc-1", "720.00")
	srv.Suspended = true

	f.servers.On("SetSuspended", mock.Anything, "srv-1", false).Return(nil)
	f.panel.On("UnsuspendServer", mock.Anything, int64(42)).Return(nil)
	f.logs.On("LogEvent", mock.Anything, "srv-1", "acc-1", models.EventUnsuspend, mock.Anything).Return(nil)

	err := f.svc.Unsuspend(context.Background(), srv)

	require.NoError(t, err)
	assert.False(t, srv.Suspended)
	f.gateway.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunSweep_MixedOutcomes(t *testing.T) {
	f := newBillingFixture()
	paying := billableServer("srv-1", "acc-rich", "720.00")
	broke := billableServer("srv-2", "acc-poor", "720.00")

	f.servers.On("ListBillable", mock.Anything).Return([]*models.Server{paying, broke}, nil)

	f.accounts.On("DebitIfSufficient", mock.Anything, "acc-rich", mock.Anything).Return(true, nil)
	f.logs.On("LogCharge", mock.Anything, "srv-1", "acc-rich", mock.Anything, mock.Anything).Return(nil)

	f.accounts.On("DebitIfSufficient", mock.Anything, "acc-poor", mock.Anything).Return(false, nil)
	f.servers.On("SetSuspended", mock.Anything, "srv-2", true).Return(nil)
	f.panel.On("SuspendServer", mock.Anything, int64(42)).Return(nil)
	f.logs.On("LogEvent", mock.Anything, "srv-2", "acc-poor", models.EventSuspend, mock.Anything).Return(nil)
	f.gateway.On("Notify", mock.Anything, "acc-poor", models.TemplateServersSuspended, mock.Anything).Return(nil)

	result, err := f.svc.RunSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Charged)
	assert.Equal(t, 1, result.Suspended)
	assert.Equal(t, 0, result.Failed)
}

func TestRunSweep_ContinuesPastFailingRecord(t *testing.T) {
	f := newBillingFixture()
	failing := billableServer("srv-1", "acc-1", "720.00")
	healthy := billableServer("srv-2", "acc-2", "720.00")

	f.servers.On("ListBillable", mock.Anything).Return([]*models.Server{failing, healthy}, nil)
	f.accounts.On("DebitIfSufficient", mock.Anything, "acc-1", mock.Anything).
		Return(false, errors.New("deadlock detected"))
	f.accounts.On("DebitIfSufficient", mock.Anything, "acc-2", mock.Anything).Return(true, nil)
	f.logs.On("LogCharge", mock.Anything, "srv-2", "acc-2", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.RunSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Charged)
	assert.Equal(t, 1, result.Failed)
}

func TestRunSweep_ListFailure(t *testing.T) {
	f := newBillingFixture()
	f.servers.On("ListBillable", mock.Anything).Return(nil, errors.New("db down"))

	result, err := f.svc.RunSweep(context.Background())

	require.Error(t, err)
	assert.Nil(t, result)
}

// fakeAccountStore holds real balances so charge outcomes can be
// asserted end to end instead of via canned debit answers.
type fakeAccountStore struct {
	balances map[string]decimal.Decimal
}

func (f *fakeAccountStore) Create(_ context.Context, acc *models.Account) error {
	f.balances[acc.ID] = acc.Credits
	return nil
}

func (f *fakeAccountStore) GetByID(_ context.Context, id string) (*models.Account, error) {
	credits, ok := f.balances[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &models.Account{ID: id, Credits: credits}, nil
}

func (f *fakeAccountStore) DebitIfSufficient(_ context.Context, id string, amount decimal.Decimal) (bool, error) {
	balance := f.balances[id]
	if balance.LessThan(amount) {
		return false, nil
	}
	f.balances[id] = balance.Sub(amount)
	return true, nil
}

func (f *fakeAccountStore) Credit(_ context.Context, id string, amount decimal.Decimal) error {
	f.balances[id] = f.balances[id].Add(amount)
	return nil
}

func TestRunSweep_BalancesEndToEnd(t *testing.T) {
	servers := new(mockServerStore)
	logs := new(mockEventLogger)
	panel := new(mockPanelAPI)
	gateway := new(mockGateway)
	accounts := &fakeAccountStore{balances: map[string]decimal.Decimal{
		"acc-rich": decimal.RequireFromString("10.00"),
		"acc-poor": decimal.RequireFromString("0.50"),
	}}
	svc := NewBillingService(servers, accounts, logs, panel, gateway)

	// Monthly 720.00 => 1.00 per hourly tick for both servers.
	rich := billableServer("srv-1", "acc-rich", "720.00")
	poor := billableServer("srv-2", "acc-poor", "720.00")

	servers.On("ListBillable", mock.Anything).Return([]*models.Server{rich, poor}, nil)
	servers.On("SetSuspended", mock.Anything, "srv-2", true).Return(nil)
	panel.On("SuspendServer", mock.Anything, int64(42)).Return(nil)
	logs.On("LogCharge", mock.Anything, "srv-1", "acc-rich", mock.Anything, mock.Anything).Return(nil)
	logs.On("LogEvent", mock.Anything, "srv-2", "acc-poor", models.EventSuspend, mock.Anything).Return(nil)
	gateway.On("Notify", mock.Anything, "acc-poor", models.TemplateServersSuspended, mock.Anything).Return(nil)

	result, err := svc.RunSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Charged)
	assert.Equal(t, 1, result.Suspended)
	// The paying account is down exactly one hourly rate; the broke
	// account keeps its partial balance untouched.
	assert.True(t, accounts.balances["acc-rich"].Equal(decimal.RequireFromString("9.00")),
		"got %s", accounts.balances["acc-rich"])
	assert.True(t, accounts.balances["acc-poor"].Equal(decimal.RequireFromString("0.50")),
		"got %s", accounts.balances["acc-poor"])
	assert.True(t, poor.Suspended)
	assert.False(t, rich.Suspended)
}
