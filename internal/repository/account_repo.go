package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hostara/billing-service/internal/models"
)

var ErrNotFound = errors.New("not found")

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, acc *models.Account) error {
	query := `
		INSERT INTO billing.accounts (id, email, name, credits)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, acc.ID, acc.Email, acc.Name, acc.Credits)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, email, name, credits, created_at, updated_at
		FROM billing.accounts
		WHERE id = $1
	`

	acc := &models.Account{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&acc.ID, &acc.Email, &acc.Name, &acc.Credits, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return acc, nil
}

// DebitIfSufficient atomically subtracts amount from the account's credits
// if and only if the balance covers it. The floor check lives in the UPDATE
// predicate, so two concurrent charges against the same account can never
// both succeed on funds that only cover one of them. Returns false when
// the balance was insufficient.
func (r *AccountRepository) DebitIfSufficient(ctx context.Context, id string, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE billing.accounts
		SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND credits >= $2
	`

	tag, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return false, fmt.Errorf("debit account: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Credit atomically adds amount to the account's credits
func (r *AccountRepository) Credit(ctx context.Context, id string, amount decimal.Decimal) error {
	query := `
		UPDATE billing.accounts
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
