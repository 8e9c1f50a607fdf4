package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hostara/billing-service/internal/models"
	"github.com/hostara/billing-service/internal/notify"
)

// AccountService handles billable account registration and credit top-ups
type AccountService struct {
	accounts AccountStore
	gateway  notify.Gateway
}

// NewAccountService creates a new account service
func NewAccountService(accounts AccountStore, gateway notify.Gateway) *AccountService {
	return &AccountService{
		accounts: accounts,
		gateway:  gateway,
	}
}

// Create registers a new account, optionally seeded with credits, and
// queues the one-time welcome notification. The account exists regardless
// of whether the notification could be queued.
func (s *AccountService) Create(ctx context.Context, req *models.CreateAccountRequest) (*models.Account, error) {
	credits := decimal.Zero
	if req.InitialCredits != "" {
		parsed, err := decimal.NewFromString(req.InitialCredits)
		if err != nil {
			return nil, fmt.Errorf("invalid initial_credits %q: %w", req.InitialCredits, err)
		}
		if parsed.IsNegative() {
			return nil, fmt.Errorf("initial_credits must not be negative")
		}
		credits = parsed
	}

	acc := &models.Account{
		ID:      uuid.New().String(),
		Email:   req.Email,
		Name:    req.Name,
		Credits: credits,
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.gateway.Notify(ctx, acc.ID, models.TemplateWelcomeMessage, map[string]any{
		"email": acc.Email,
		"name":  acc.Name,
	}); err != nil {
		log.Printf("[Account] Warning: welcome notification for %s failed: %v", acc.ID, err)
	}

	log.Printf("[Account] Account %s created (credits: %s)", acc.ID, acc.Credits)
	return acc, nil
}

// Credit tops up an account balance by a positive amount
func (s *AccountService) Credit(ctx context.Context, accountID, amount string) (*models.Account, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if !parsed.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	if err := s.accounts.Credit(ctx, accountID, parsed); err != nil {
		return nil, fmt.Errorf("credit account: %w", err)
	}

	return s.accounts.GetByID(ctx, accountID)
}

// Get retrieves an account
func (s *AccountService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}
