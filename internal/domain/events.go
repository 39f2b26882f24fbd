package domain

import "time"

type OrderCreatedEvent struct {
	OrderID      string       `json:"order_id"`
	UserID       string       `json:"user_id"`
	TokenNumber  string       `json:"token_number"`
	Items        []OrderItem  `json:"items"`
	TotalAmount  int64        `json:"total_amount"`
	DeliveryType DeliveryType `json:"delivery_type"`
	TableNumber  *int         `json:"table_number,omitempty"`
	SlotStart    *time.Time   `json:"slot_start,omitempty"`
	TableSecured bool         `json:"table_secured"`
	Timestamp    time.Time    `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	TokenNumber string      `json:"token_number"`
	Status      OrderStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewOrderCreatedEvent builds the event for a freshly stored order.
// reservation may be nil.
func NewOrderCreatedEvent(order *Order, reservation *Reservation) OrderCreatedEvent {
	event := OrderCreatedEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		TokenNumber:  order.TokenNumber,
		Items:        order.Items,
		TotalAmount:  order.TotalAmount,
		DeliveryType: order.DeliveryType,
		Timestamp:    order.CreatedAt,
	}
	if reservation != nil {
		table := reservation.TableNumber
		slot := reservation.SlotStart
		event.TableNumber = &table
		event.SlotStart = &slot
		event.TableSecured = true
	}
	return event
}
