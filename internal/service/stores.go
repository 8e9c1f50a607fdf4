package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hostara/billing-service/internal/models"
)

// ServerStore is the persistence surface the services need for server
// records; satisfied by *repository.ServerRepository.
type ServerStore interface {
	Create(ctx context.Context, srv *models.Server) error
	GetByID(ctx context.Context, id string) (*models.Server, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.Server, error)
	ListBillable(ctx context.Context) ([]*models.Server, error)
	SetSuspended(ctx context.Context, id string, suspended bool) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// AccountStore is the persistence surface for accounts; satisfied by
// *repository.AccountRepository. DebitIfSufficient must be atomic with a
// balance floor check.
type AccountStore interface {
	Create(ctx context.Context, acc *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	DebitIfSufficient(ctx context.Context, id string, amount decimal.Decimal) (bool, error)
	Credit(ctx context.Context, id string, amount decimal.Decimal) error
}

// EventLogger records billing and lifecycle events; satisfied by
// *repository.BillingLogRepository.
type EventLogger interface {
	LogEvent(ctx context.Context, serverID, accountID, event, message string) error
	LogCharge(ctx context.Context, serverID, accountID string, amount decimal.Decimal, message string) error
	GetByServerID(ctx context.Context, serverID string, limit int) ([]*models.BillingLog, error)
}
