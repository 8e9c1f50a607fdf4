package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hostara/billing-service/internal/models"
	"github.com/hostara/billing-service/internal/repository"
)

// ErrTemplateNotFound means a send referenced a template that does not
// exist. Fatal for that send only.
var ErrTemplateNotFound = errors.New("notification template not found")

// Gateway accepts a templated notification request and hands it to the
// delivery side asynchronously. Fire-and-forget from the caller's view:
// a nil return means queued, not delivered.
type Gateway interface {
	Notify(ctx context.Context, accountID, template string, data map[string]any) error
}

// TemplateStore looks up template metadata; satisfied by
// *repository.TemplateRepository.
type TemplateStore interface {
	GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error)
}

// Publisher publishes a message to a subject; satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// message is the payload handed to the delivery worker.
type message struct {
	AccountID string         `json:"account_id"`
	Template  string         `json:"template"`
	Subject   string         `json:"subject"`
	Data      map[string]any `json:"data,omitempty"`
	QueuedAt  time.Time      `json:"queued_at"`
}

// NATSGateway publishes notification requests to a NATS subject where an
// external mailer consumes them. It owns the two configuration gates:
// the global mail-enabled switch and the per-template disabled flag.
type NATSGateway struct {
	pub         Publisher
	templates   TemplateStore
	subject     string
	mailEnabled bool
}

var _ Gateway = (*NATSGateway)(nil)

// NewNATSGateway creates a gateway publishing to subject
func NewNATSGateway(pub Publisher, templates TemplateStore, subject string, mailEnabled bool) *NATSGateway {
	return &NATSGateway{
		pub:         pub,
		templates:   templates,
		subject:     subject,
		mailEnabled: mailEnabled,
	}
}

// Notify queues one templated notification for accountID. Sends are
// skipped silently when mail is globally disabled or the template is
// disabled; a missing template is an error.
func (g *NATSGateway) Notify(ctx context.Context, accountID, template string, data map[string]any) error {
	if !g.mailEnabled {
		log.Printf("[Notify] Mail disabled, skipping %q for account %s", template, accountID)
		return nil
	}

	tpl, err := g.templates.GetByName(ctx, template)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, template)
		}
		return fmt.Errorf("load template %q: %w", template, err)
	}
	if tpl.Disabled {
		log.Printf("[Notify] Template %q disabled, skipping for account %s", template, accountID)
		return nil
	}

	payload, err := json.Marshal(message{
		AccountID: accountID,
		Template:  template,
		Subject:   tpl.Subject,
		Data:      data,
		QueuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := g.pub.Publish(g.subject, payload); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	log.Printf("[Notify] Queued %q for account %s", template, accountID)
	return nil
}
