// Package notify publishes order lifecycle events for the email worker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
)

// Publisher is satisfied by *messaging.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

// KafkaNotifier publishes one event per lifecycle change, keyed by order ID.
type KafkaNotifier struct {
	created Publisher
	changed Publisher
	now     func() time.Time
}

func NewKafkaNotifier(created, changed Publisher) *KafkaNotifier {
	return &KafkaNotifier{
		created: created,
		changed: changed,
		now:     time.Now,
	}
}

func (n *KafkaNotifier) OrderCreated(ctx context.Context, order *domain.Order, reservation *domain.Reservation) error {
	event := domain.NewOrderCreatedEvent(order, reservation)
	if err := n.created.Publish(ctx, order.ID, event); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotification, err)
	}
	return nil
}

func (n *KafkaNotifier) StatusChanged(ctx context.Context, order *domain.Order) error {
	event := domain.OrderStatusChangedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TokenNumber: order.TokenNumber,
		Status:      order.Status,
		Timestamp:   n.now().UTC(),
	}
	if err := n.changed.Publish(ctx, order.ID, event); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotification, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return errors.Join(n.created.Close(), n.changed.Close())
}

// Nop drops every notification. It is used when no broker is configured.
type Nop struct{}

func (Nop) OrderCreated(context.Context, *domain.Order, *domain.Reservation) error { return nil }

func (Nop) StatusChanged(context.Context, *domain.Order) error { return nil }
