package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hostara/billing-service/internal/client"
	"github.com/hostara/billing-service/internal/models"
	"github.com/hostara/billing-service/internal/notify"
)

// BillingService runs the credit-metered billing loop: it charges every
// billable server its hourly rate and suspends servers whose owners
// cannot cover it. Suspension notifications are deduplicated per account
// within one sweep.
type BillingService struct {
	servers  ServerStore
	accounts AccountStore
	logs     EventLogger
	panel    client.PanelAPI
	gateway  notify.Gateway
}

// NewBillingService creates a new billing service
func NewBillingService(
	servers ServerStore,
	accounts AccountStore,
	logs EventLogger,
	panel client.PanelAPI,
	gateway notify.Gateway,
) *BillingService {
	return &BillingService{
		servers:  servers,
		accounts: accounts,
		logs:     logs,
		panel:    panel,
		gateway:  gateway,
	}
}

// SweepResult summarizes one pass over the billable servers.
type SweepResult struct {
	Processed int
	Charged   int
	Suspended int
	Failed    int
}

// ChargeServer bills one server for one tick. Exactly one of two things
// happens: the owner's balance is debited by the hourly rate, or the
// server is suspended. A suspended server is never charged; re-invoking
// for an already-processed record is safe.
func (s *BillingService) ChargeServer(ctx context.Context, srv *models.Server, batch *NotifiedSet) (bool, error) {
	if srv.Suspended {
		return false, nil
	}

	hourly := srv.PricePerHour()

	ok, err := s.accounts.DebitIfSufficient(ctx, srv.AccountID, hourly)
	if err != nil {
		return false, fmt.Errorf("debit account %s: %w", srv.AccountID, err)
	}

	if ok {
		s.logs.LogCharge(ctx, srv.ID, srv.AccountID, hourly,
			fmt.Sprintf("Hourly charge of %s (monthly price %s)", hourly, srv.Price))
		return true, nil
	}

	if err := s.Suspend(ctx, srv, batch, true); err != nil {
		return false, fmt.Errorf("suspend server %s: %w", srv.ID, err)
	}

	return false, nil
}

// Suspend marks the server suspended and persists the flag. Idempotent:
// suspending an already-suspended server keeps the same persisted state.
// When notify is set, the owning account gets a "servers-suspended"
// notification at most once per batch; delivery failure never rolls back
// the state change.
func (s *BillingService) Suspend(ctx context.Context, srv *models.Server, batch *NotifiedSet, notifyOwner bool) error {
	wasSuspended := srv.Suspended

	if err := s.servers.SetSuspended(ctx, srv.ID, true); err != nil {
		return fmt.Errorf("persist suspension: %w", err)
	}
	srv.Suspended = true

	if !wasSuspended {
		// The panel owns the runtime: ask it to stop the instance too.
		// Local state is the billing source of truth, so a panel failure
		// is logged and the suspension stands.
		if err := s.panel.SuspendServer(ctx, srv.PanelServerID); err != nil {
			log.Printf("[Billing] Warning: panel suspend for server %d failed: %v", srv.PanelServerID, err)
		}
		s.logs.LogEvent(ctx, srv.ID, srv.AccountID, models.EventSuspend, "Suspended for insufficient credits")
	}

	if notifyOwner && batch.MarkNotified(srv.AccountID) {
		err := s.gateway.Notify(ctx, srv.AccountID, models.TemplateServersSuspended, map[string]any{
			"server_id":   srv.ID,
			"server_name": srv.Name,
		})
		if err != nil {
			log.Printf("[Billing] Warning: suspension notification for account %s failed: %v", srv.AccountID, err)
		}
	}

	return nil
}

// Unsuspend lifts a suspension unconditionally. No notification is sent.
func (s *BillingService) Unsuspend(ctx context.Context, srv *models.Server) error {
	if err := s.servers.SetSuspended(ctx, srv.ID, false); err != nil {
		return fmt.Errorf("persist unsuspension: %w", err)
	}
	srv.Suspended = false

	if err := s.panel.UnsuspendServer(ctx, srv.PanelServerID); err != nil {
		log.Printf("[Billing] Warning: panel unsuspend for server %d failed: %v", srv.PanelServerID, err)
	}

	s.logs.LogEvent(ctx, srv.ID, srv.AccountID, models.EventUnsuspend, "Suspension lifted")
	return nil
}

// RunSweep performs one billing tick over every billable server. A
// failing record is logged and counted but never aborts the rest of the
// sweep. The notification dedup set lives and dies with this call.
func (s *BillingService) RunSweep(ctx context.Context) (*SweepResult, error) {
	servers, err := s.servers.ListBillable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list billable servers: %w", err)
	}

	batch := NewNotifiedSet()
	result := &SweepResult{}

	for _, srv := range servers {
		result.Processed++

		charged, err := s.ChargeServer(ctx, srv, batch)
		if err != nil {
			result.Failed++
			log.Printf("[Billing] Sweep: charging server %s failed: %v", srv.ID, err)
			continue
		}

		if charged {
			result.Charged++
		} else {
			result.Suspended++
		}
	}

	log.Printf("[Billing] Sweep done: processed=%d charged=%d suspended=%d failed=%d notified=%d",
		result.Processed, result.Charged, result.Suspended, result.Failed, batch.Len())

	return result, nil
}

// StartSweeper runs RunSweep every interval until ctx is cancelled.
func (s *BillingService) StartSweeper(ctx context.Context, interval time.Duration) {
	log.Printf("[Billing] Sweeper started (interval: %v)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Billing] Sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunSweep(ctx); err != nil {
				log.Printf("[Billing] Sweep failed: %v", err)
			}
		}
	}
}
