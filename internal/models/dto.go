package models

// ==================== Internal API DTOs ====================

// CreateAccountRequest is sent by the shop/portal to register a billable account
type CreateAccountRequest struct {
	Email          string `json:"email" binding:"required"`
	Name           string `json:"name"`
	InitialCredits string `json:"initial_credits"` // decimal string, optional
}

// CreateAccountResponse is returned after creating an account
type CreateAccountResponse struct {
	AccountID string `json:"account_id"`
	Credits   string `json:"credits"`
}

// CreditRequest tops up an account balance
type CreditRequest struct {
	Amount string `json:"amount" binding:"required"` // decimal string, > 0
}

// BalanceResponse reports an account's current credits
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Credits   string `json:"credits"`
}

// CreateServerRequest is sent to provision a server on the panel for an account
type CreateServerRequest struct {
	AccountID   string `json:"account_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	PlanTier     string `json:"plan_tier"`               // basic, standard, premium
	PriceMonthly string `json:"price_monthly,omitempty"` // decimal string, overrides the tier price

	NodeID       int64 `json:"node_id"`
	AllocationID int64 `json:"allocation_id"`
	NestID       int64 `json:"nest_id"`
	EggID        int64 `json:"egg_id" binding:"required"`
}

// ServerResponse is the detailed server view with derived prices
type ServerResponse struct {
	ServerID      string `json:"server_id"`
	AccountID     string `json:"account_id"`
	PanelServerID int64  `json:"panel_server_id"`
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	Suspended     bool   `json:"suspended"`

	MemoryMB    int `json:"memory_mb"`
	CPU         int `json:"cpu"`
	SwapMB      int `json:"swap_mb"`
	DiskMB      int `json:"disk_mb"`
	IO          int `json:"io"`
	Threads     int `json:"threads,omitempty"`
	Databases   int `json:"databases"`
	Backups     int `json:"backups"`
	Allocations int `json:"allocations"`

	NodeID       int64 `json:"node_id"`
	AllocationID int64 `json:"allocation_id"`
	NestID       int64 `json:"nest_id"`
	EggID        int64 `json:"egg_id"`

	PriceMonthly string `json:"price_monthly"`
	PricePerDay  string `json:"price_per_day"`
	PricePerHour string `json:"price_per_hour"`

	CreatedAt string `json:"created_at"`
}

// SweepResponse summarizes one billing sweep run
type SweepResponse struct {
	Processed int    `json:"processed"`
	Charged   int    `json:"charged"`
	Suspended int    `json:"suspended"`
	Failed    int    `json:"failed"`
	Message   string `json:"message"`
}

// BillingLogEntry is the API view of one billing log row
type BillingLogEntry struct {
	ID        string `json:"id"`
	ServerID  string `json:"server_id"`
	AccountID string `json:"account_id"`
	Event     string `json:"event"`
	Amount    string `json:"amount,omitempty"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}
