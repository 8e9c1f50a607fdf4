package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostara/billing-service/internal/models"
)

type TemplateRepository struct {
	pool *pgxpool.Pool
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// GetByName retrieves a notification template by name
func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	query := `
		SELECT name, subject, disabled, created_at, updated_at
		FROM billing.notification_templates
		WHERE name = $1
	`

	tpl := &models.NotificationTemplate{}
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&tpl.Name, &tpl.Subject, &tpl.Disabled, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return tpl, nil
}

// SetDisabled toggles the per-template disabled flag
func (r *TemplateRepository) SetDisabled(ctx context.Context, name string, disabled bool) error {
	query := `UPDATE billing.notification_templates SET disabled = $1, updated_at = now() WHERE name = $2`
	tag, err := r.pool.Exec(ctx, query, disabled, name)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
