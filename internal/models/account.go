package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the billable entity owning credits and zero or more servers.
// Credits are only ever mutated through the repository's atomic
// debit/credit statements.
type Account struct {
	ID      string
	Email   string
	Name    string
	Credits decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationTemplate is a named message template consulted by the
// notification gateway before sending. A disabled template suppresses
// sends silently; a missing one is a hard error for that send.
type NotificationTemplate struct {
	Name      string
	Subject   string
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Template names the core sends.
const (
	TemplateWelcomeMessage   = "welcome-message"
	TemplateServersSuspended = "servers-suspended"
)
