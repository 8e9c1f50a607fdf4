package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Server status constants (mirrored from the panel)
const (
	StatusInstalling = "installing"
	StatusActive     = "active"
	StatusSuspended  = "suspended"
	StatusFailed     = "failed"
)

// Billing event constants for the billing log
const (
	EventCharge    = "charge"
	EventSuspend   = "suspend"
	EventUnsuspend = "unsuspend"
	EventCreate    = "create"
	EventDelete    = "delete"
)

// Hours used to break a monthly price down into hourly and daily rates.
const (
	hoursPerMonth = 720
	daysPerMonth  = 30
)

// Server is the local mirror of a server instance provisioned on the
// remote panel. PanelServerID is the panel's handle and is immutable
// once set; exactly one row exists per panel server (enforced by a
// unique constraint).
type Server struct {
	ID        string
	AccountID string

	// Panel reference
	PanelServerID int64
	Identifier    string

	Name        string
	Description string
	Status      string
	Suspended   bool

	// Resource limits
	MemoryMB int
	CPU      int
	SwapMB   int
	DiskMB   int
	IO       int
	Threads  int

	// Feature limits
	Databases   int
	Backups     int
	Allocations int

	// Panel catalog references
	NodeID       int64
	AllocationID int64
	NestID       int64
	EggID        int64

	// Monthly price in credits
	Price decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricePerHour derives the hourly rate from the stored monthly price.
// Derived on read so it can never go stale.
func (s *Server) PricePerHour() decimal.Decimal {
	return s.Price.Div(decimal.NewFromInt(hoursPerMonth)).Round(2)
}

// PricePerDay derives the daily rate from the stored monthly price.
func (s *Server) PricePerDay() decimal.Decimal {
	return s.Price.Div(decimal.NewFromInt(daysPerMonth)).Round(2)
}

// BillingLog is an append-only record of a billing or lifecycle event
// for a server.
type BillingLog struct {
	ID        string
	ServerID  string
	AccountID string
	Event     string
	Amount    *decimal.Decimal
	Message   string
	CreatedAt time.Time
}
