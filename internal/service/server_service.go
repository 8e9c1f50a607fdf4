package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostara/billing-service/internal/client"
	"github.com/hostara/billing-service/internal/models"
)

// ServerService handles server lifecycle: provisioning on the panel,
// mirroring the result locally, and two-phase deletion that keeps local
// and panel state from diverging.
type ServerService struct {
	servers  ServerStore
	accounts AccountStore
	logs     EventLogger
	panel    client.PanelAPI
	billing  *BillingService
}

// NewServerService creates a new server service
func NewServerService(
	servers ServerStore,
	accounts AccountStore,
	logs EventLogger,
	panel client.PanelAPI,
	billing *BillingService,
) *ServerService {
	return &ServerService{
		servers:  servers,
		accounts: accounts,
		logs:     logs,
		panel:    panel,
		billing:  billing,
	}
}

// Create provisions a server on the panel and mirrors it locally. The
// local record only comes into existence from a successful panel create;
// if the local insert then fails, the fresh panel server is torn down
// again so neither side leaks.
func (s *ServerService) Create(ctx context.Context, req *models.CreateServerRequest) (*models.Server, error) {
	log.Printf("[Server] Creating server for account=%s, name=%s, tier=%s", req.AccountID, req.Name, req.PlanTier)

	if _, err := s.accounts.GetByID(ctx, req.AccountID); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	price, err := resolvePrice(req)
	if err != nil {
		return nil, err
	}
	limits, features := planLimits(req.PlanTier)

	attrs, err := s.panel.CreateServer(ctx, &client.CreateServerRequest{
		Name:        req.Name,
		Description: req.Description,
		EggID:       req.EggID,
		NestID:      req.NestID,
		NodeID:      req.NodeID,
		Allocation:  req.AllocationID,
		Limits:      limits,
		Features:    features,
	})
	if err != nil {
		return nil, fmt.Errorf("create panel server: %w", err)
	}

	srv := serverFromAttributes(attrs, req.AccountID, price)

	if err := s.servers.Create(ctx, srv); err != nil {
		log.Printf("[Server] Local insert for panel server %d failed, rolling back panel create: %v", attrs.ID, err)
		if delErr := s.panel.DeleteServer(ctx, attrs.ID); delErr != nil {
			log.Printf("[Server] Warning: rollback delete of panel server %d failed: %v", attrs.ID, delErr)
		}
		return nil, fmt.Errorf("persist server record: %w", err)
	}

	s.logs.LogEvent(ctx, srv.ID, srv.AccountID, models.EventCreate,
		fmt.Sprintf("Server %d created on panel (price %s/month)", srv.PanelServerID, srv.Price))

	log.Printf("[Server] Server %s created (panel id %d)", srv.ID, srv.PanelServerID)
	return srv, nil
}

// Delete reconciles deletion in two explicit phases: tear down the panel
// server first, then remove the local record. A panel 404 means the
// remote side is already consistent and local deletion proceeds; any
// other panel error aborts so both sides stay intact.
func (s *ServerService) Delete(ctx context.Context, serverID string) error {
	srv, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return fmt.Errorf("get server: %w", err)
	}

	if err := s.panel.DeleteServer(ctx, srv.PanelServerID); err != nil {
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
			return fmt.Errorf("delete panel server %d: %w", srv.PanelServerID, err)
		}
		log.Printf("[Server] Panel server %d already absent, removing local record", srv.PanelServerID)
	}

	if err := s.servers.Delete(ctx, serverID); err != nil {
		return fmt.Errorf("delete server record: %w", err)
	}

	s.logs.LogEvent(ctx, srv.ID, srv.AccountID, models.EventDelete,
		fmt.Sprintf("Server %d deleted", srv.PanelServerID))

	log.Printf("[Server] Server %s deleted (panel id %d)", srv.ID, srv.PanelServerID)
	return nil
}

// SyncStatus refreshes the locally mirrored status string from the panel
func (s *ServerService) SyncStatus(ctx context.Context, serverID string) (*models.Server, error) {
	srv, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}

	attrs, err := s.panel.GetServer(ctx, srv.PanelServerID)
	if err != nil {
		return nil, fmt.Errorf("fetch panel server %d: %w", srv.PanelServerID, err)
	}

	if attrs.Status != srv.Status {
		if err := s.servers.UpdateStatus(ctx, serverID, attrs.Status); err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		srv.Status = attrs.Status
	}

	return srv, nil
}

// Get retrieves a single server record
func (s *ServerService) Get(ctx context.Context, serverID string) (*models.Server, error) {
	return s.servers.GetByID(ctx, serverID)
}

// ListByAccount retrieves all servers owned by an account
func (s *ServerService) ListByAccount(ctx context.Context, accountID string) ([]*models.Server, error) {
	return s.servers.ListByAccount(ctx, accountID)
}

// Unsuspend lifts a suspension on a server
func (s *ServerService) Unsuspend(ctx context.Context, serverID string) (*models.Server, error) {
	srv, err := s.servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}

	if err := s.billing.Unsuspend(ctx, srv); err != nil {
		return nil, err
	}
	return srv, nil
}

// Logs retrieves recent billing log entries for a server
func (s *ServerService) Logs(ctx context.Context, serverID string, limit int) ([]*models.BillingLog, error) {
	return s.logs.GetByServerID(ctx, serverID, limit)
}

// serverFromAttributes maps the panel's nested response envelope into the
// flat local record, attaching the computed monthly price.
func serverFromAttributes(attrs *client.ServerAttributes, accountID string, price decimal.Decimal) *models.Server {
	return &models.Server{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		PanelServerID: attrs.ID,
		Identifier:    attrs.Identifier,
		Name:          attrs.Name,
		Description:   attrs.Description,
		Status:        attrs.Status,
		Suspended:     attrs.Suspended,
		MemoryMB:      attrs.Limits.MemoryMB,
		CPU:           attrs.Limits.CPU,
		SwapMB:        attrs.Limits.SwapMB,
		DiskMB:        attrs.Limits.DiskMB,
		IO:            attrs.Limits.IO,
		Threads:       attrs.Limits.Threads,
		Databases:     attrs.Features.Databases,
		Backups:       attrs.Features.Backups,
		Allocations:   attrs.Features.Allocations,
		NodeID:        attrs.Node,
		AllocationID:  attrs.Allocation,
		NestID:        attrs.Nest,
		EggID:         attrs.Egg,
		Price:         price,
	}
}

// resolvePrice picks the explicit monthly price when the request carries
// one, otherwise the plan tier default.
func resolvePrice(req *models.CreateServerRequest) (decimal.Decimal, error) {
	if req.PriceMonthly != "" {
		price, err := decimal.NewFromString(req.PriceMonthly)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid price_monthly %q: %w", req.PriceMonthly, err)
		}
		if price.IsNegative() {
			return decimal.Zero, fmt.Errorf("price_monthly must not be negative")
		}
		return price, nil
	}
	return planPrice(req.PlanTier), nil
}

// planPrice returns the monthly price in credits for a plan tier
func planPrice(planTier string) decimal.Decimal {
	switch planTier {
	case "premium":
		return decimal.NewFromInt(30)
	case "standard":
		return decimal.NewFromInt(15)
	case "basic":
		return decimal.NewFromInt(5)
	default:
		return decimal.NewFromInt(5)
	}
}

// planLimits returns the panel resource and feature limits for a plan tier
func planLimits(planTier string) (client.Limits, client.FeatureLimits) {
	switch planTier {
	case "premium":
		return client.Limits{MemoryMB: 8192, SwapMB: 0, DiskMB: 40960, IO: 500, CPU: 400},
			client.FeatureLimits{Databases: 4, Backups: 4, Allocations: 2}
	case "standard":
		return client.Limits{MemoryMB: 4096, SwapMB: 0, DiskMB: 20480, IO: 500, CPU: 200},
			client.FeatureLimits{Databases: 2, Backups: 2, Allocations: 1}
	default:
		// basic
		return client.Limits{MemoryMB: 2048, SwapMB: 0, DiskMB: 10240, IO: 500, CPU: 100},
			client.FeatureLimits{Databases: 1, Backups: 1, Allocations: 1}
	}
}
