package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hostara/billing-service/internal/models"
)

type BillingLogRepository struct {
	pool *pgxpool.Pool
}

func NewBillingLogRepository(pool *pgxpool.Pool) *BillingLogRepository {
	return &BillingLogRepository{pool: pool}
}

// Create creates a new billing log entry
func (r *BillingLogRepository) Create(ctx context.Context, entry *models.BillingLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO billing.billing_logs (id, server_id, account_id, event, amount, message)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.ServerID, entry.AccountID, entry.Event, entry.Amount, entry.Message,
	)
	if err != nil {
		return fmt.Errorf("insert billing log: %w", err)
	}

	return nil
}

// GetByServerID retrieves log entries for a server
func (r *BillingLogRepository) GetByServerID(ctx context.Context, serverID string, limit int) ([]*models.BillingLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, server_id, account_id, event, amount, message, created_at
		FROM billing.billing_logs
		WHERE server_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("query billing logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.BillingLog
	for rows.Next() {
		entry := &models.BillingLog{}
		err := rows.Scan(
			&entry.ID, &entry.ServerID, &entry.AccountID, &entry.Event,
			&entry.Amount, &entry.Message, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan billing log: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// LogEvent is a helper to record an event without an amount
func (r *BillingLogRepository) LogEvent(ctx context.Context, serverID, accountID, event, message string) error {
	return r.Create(ctx, &models.BillingLog{
		ServerID:  serverID,
		AccountID: accountID,
		Event:     event,
		Message:   message,
	})
}

// LogCharge is a helper to record a charge with its amount
func (r *BillingLogRepository) LogCharge(ctx context.Context, serverID, accountID string, amount decimal.Decimal, message string) error {
	return r.Create(ctx, &models.BillingLog{
		ServerID:  serverID,
		AccountID: accountID,
		Event:     models.EventCharge,
		Amount:    &amount,
		Message:   message,
	})
}
