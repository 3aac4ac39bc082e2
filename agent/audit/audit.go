// Package audit records every tool dispatch outside the request path.
package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	qstashx "github.com/tanpawarit/Chative-Banking-Assistant/pkg/qstash"
)

// Config is loaded with the AUDIT_ prefix.
type Config struct {
	Enabled     bool   `envconfig:"ENABLED" default:"false"`
	Destination string `envconfig:"DESTINATION"`
}

func (c Config) Validate() error {
	if c.Enabled && strings.TrimSpace(c.Destination) == "" {
		return fmt.Errorf("%w: AUDIT_DESTINATION is required when auditing is enabled", contractx.ErrValidation)
	}
	return nil
}

// Noop drops events.
type Noop struct{}

func (Noop) Record(context.Context, contractx.AuditEvent) error { return nil }

// Logger writes events to the structured log only.
type Logger struct{}

func (Logger) Record(ctx context.Context, ev contractx.AuditEvent) error {
	log.Ctx(ctx).Info().
		Str("component", "audit").
		Str("conversation_id", ev.ConversationID).
		Str("role", string(ev.Role)).
		Str("tool", string(ev.Tool)).
		Str("outcome", ev.Outcome).
		Str("reference_id", ev.ReferenceID).
		Str("error", ev.Error).
		Msg("tool dispatched")
	return nil
}

type publisher interface {
	Publish(ctx context.Context, destination string, payload any, opts qstashx.PublishOptions) (string, error)
}

// QStash publishes each event to a QStash destination.
type QStash struct {
	client      publisher
	destination string
}

func NewQStash(client *qstashx.Client, destination string) *QStash {
	return &QStash{client: client, destination: strings.TrimSpace(destination)}
}

func (q *QStash) Record(ctx context.Context, ev contractx.AuditEvent) error {
	dedup := fmt.Sprintf("%s-%s-%d", ev.ConversationID, ev.Tool, ev.At.UnixNano())
	id, err := q.client.Publish(ctx, q.destination, ev, qstashx.PublishOptions{DeduplicationID: dedup})
	if err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	log.Ctx(ctx).Debug().Str("component", "audit").Str("message_id", id).Msg("audit event published")
	return nil
}
