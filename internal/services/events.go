package services

import (
	"context"
	"encoding/json"
	"fmt"

	"catapi/internal/models"

	"go.uber.org/zap"
)

// EventPublisher sends domain events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, any) error { return nil }

// publish sends an event best-effort; failures are logged, never returned.
func publish(ctx context.Context, p EventPublisher, name, id, owner string) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, models.NewEvent(name, id, owner)); err != nil {
		zap.L().Warn("failed to publish event",
			zap.String("event", name),
			zap.String("id", id),
			zap.Error(err))
	}
}

// LogEvent decodes an event delivered from the queue and logs it.
func LogEvent(body []byte) error {
	var ev models.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Name == "" || ev.ID == "" {
		return fmt.Errorf("incomplete event %q: %w", body, ErrInvalidInput)
	}
	zap.L().Info("event received",
		zap.String("event", ev.Name),
		zap.String("id", ev.ID),
		zap.String("owner", ev.Owner),
		zap.Time("occurred_at", ev.OccurredAt))
	return nil
}
