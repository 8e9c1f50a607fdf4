package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostara/billing-service/internal/models"
)

// ErrDuplicatePanelServer means a local record already mirrors that panel
// server; exactly one row may exist per panel server ID.
var ErrDuplicatePanelServer = errors.New("panel server already registered")

const serverColumns = `id, account_id, panel_server_id, identifier, name, description,
	   status, suspended, memory_mb, cpu, swap_mb, disk_mb, io, threads,
	   databases, backups, allocations, node_id, allocation_id, nest_id, egg_id,
	   price, created_at, updated_at`

type ServerRepository struct {
	pool *pgxpool.Pool
}

func NewServerRepository(pool *pgxpool.Pool) *ServerRepository {
	return &ServerRepository{pool: pool}
}

// Create persists a new server record in a single statement: either every
// mapped field is written or none are.
func (r *ServerRepository) Create(ctx context.Context, srv *models.Server) error {
	query := `
		INSERT INTO billing.servers (
			id, account_id, panel_server_id, identifier, name, description,
			status, suspended, memory_mb, cpu, swap_mb, disk_mb, io, threads,
			databases, backups, allocations, node_id, allocation_id, nest_id, egg_id, price
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
	`

	_, err := r.pool.Exec(ctx, query,
		srv.ID, srv.AccountID, srv.PanelServerID, srv.Identifier, srv.Name, srv.Description,
		srv.Status, srv.Suspended, srv.MemoryMB, srv.CPU, srv.SwapMB, srv.DiskMB, srv.IO, srv.Threads,
		srv.Databases, srv.Backups, srv.Allocations, srv.NodeID, srv.AllocationID, srv.NestID, srv.EggID,
		srv.Price,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePanelServer
		}
		return fmt.Errorf("insert server: %w", err)
	}

	return nil
}

// GetByID retrieves a server by ID
func (r *ServerRepository) GetByID(ctx context.Context, id string) (*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM billing.servers WHERE id = $1`
	return r.scanServer(r.pool.QueryRow(ctx, query, id))
}

// GetByPanelID retrieves a server by its panel server ID
func (r *ServerRepository) GetByPanelID(ctx context.Context, panelServerID int64) (*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM billing.servers WHERE panel_server_id = $1`
	return r.scanServer(r.pool.QueryRow(ctx, query, panelServerID))
}

// ListByAccount retrieves all servers owned by an account
func (r *ServerRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.Server, error) {
	query := `
		SELECT ` + serverColumns + `
		FROM billing.servers
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query servers: %w", err)
	}
	defer rows.Close()

	return r.scanServers(rows)
}

// ListBillable retrieves all servers eligible for the billing sweep:
// everything not currently suspended.
func (r *ServerRepository) ListBillable(ctx context.Context) ([]*models.Server, error) {
	query := `
		SELECT ` + serverColumns + `
		FROM billing.servers
		WHERE suspended = false
		ORDER BY account_id, created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query billable servers: %w", err)
	}
	defer rows.Close()

	return r.scanServers(rows)
}

// SetSuspended updates only the suspended flag. The write is idempotent:
// setting the flag to its current value is a harmless no-op.
func (r *ServerRepository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	query := `UPDATE billing.servers SET suspended = $1, updated_at = now() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, query, suspended, id)
	if err != nil {
		return fmt.Errorf("update suspended: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus updates the status string mirrored from the panel
func (r *ServerRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE billing.servers SET status = $1, updated_at = now() WHERE id = $2`
	_, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Delete removes the local record. Callers must have reconciled the panel
// side first; this only touches our row.
func (r *ServerRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM billing.servers WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete server: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ServerRepository) scanServer(row pgx.Row) (*models.Server, error) {
	srv := &models.Server{}
	err := row.Scan(
		&srv.ID, &srv.AccountID, &srv.PanelServerID, &srv.Identifier, &srv.Name, &srv.Description,
		&srv.Status, &srv.Suspended, &srv.MemoryMB, &srv.CPU, &srv.SwapMB, &srv.DiskMB, &srv.IO, &srv.Threads,
		&srv.Databases, &srv.Backups, &srv.Allocations, &srv.NodeID, &srv.AllocationID, &srv.NestID, &srv.EggID,
		&srv.Price, &srv.CreatedAt, &srv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan server: %w", err)
	}
	return srv, nil
}

func (r *ServerRepository) scanServers(rows pgx.Rows) ([]*models.Server, error) {
	var servers []*models.Server
	for rows.Next() {
		srv := &models.Server{}
		err := rows.Scan(
			&srv.ID, &srv.AccountID, &srv.PanelServerID, &srv.Identifier, &srv.Name, &srv.Description,
			&srv.Status, &srv.Suspended, &srv.MemoryMB, &srv.CPU, &srv.SwapMB, &srv.DiskMB, &srv.IO, &srv.Threads,
			&srv.Databases, &srv.Backups, &srv.Allocations, &srv.NodeID, &srv.AllocationID, &srv.NestID, &srv.EggID,
			&srv.Price, &srv.CreatedAt, &srv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan server row: %w", err)
		}
		servers = append(servers, srv)
	}
	return servers, rows.Err()
}
