package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPreparing      OrderStatus = "Preparing"
	OrderStatusReady          OrderStatus = "Ready"
	OrderStatusOutForDelivery OrderStatus = "OutForDelivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.TrimSpace(s)); st {
	case OrderStatusPreparing, OrderStatusReady, OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	default:
		return "", Invalid("unknown order status %q", s)
	}
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled:
		return true
	case OrderStatusPreparing, OrderStatusReady, OrderStatusOutForDelivery:
		return false
	default:
		return false
	}
}

type DeliveryType string

const (
	DeliveryPickup       DeliveryType = "Pickup"
	DeliveryDelivery     DeliveryType = "Delivery"
	DeliveryReserveTable DeliveryType = "ReserveTable"
	DeliveryFoodCourt    DeliveryType = "FoodCourt"
	DeliveryClassroom    DeliveryType = "Classroom"
)

func ParseDeliveryType(s string) (DeliveryType, error) {
	switch dt := DeliveryType(strings.TrimSpace(s)); dt {
	case DeliveryPickup, DeliveryDelivery, DeliveryReserveTable, DeliveryFoodCourt, DeliveryClassroom:
		return dt, nil
	default:
		return "", Invalid("unknown delivery type %q", s)
	}
}

// RequiresTable reports whether orders of this type may carry a table reservation.
func (d DeliveryType) RequiresTable() bool {
	return d == DeliveryReserveTable
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentOnline PaymentMethod = "ONLINE"
)

// NormalizePaymentMethod maps free-form input onto the two supported methods.
// Anything that is not ONLINE is treated as cash.
func NormalizePaymentMethod(s string) PaymentMethod {
	if strings.EqualFold(strings.TrimSpace(s), string(PaymentOnline)) {
		return PaymentOnline
	}
	return PaymentCash
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

// InitialPaymentStatus is the payment status an order starts with.
func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	switch m {
	case PaymentOnline:
		return PaymentPaid
	case PaymentCash:
		return PaymentPending
	default:
		return PaymentPending
	}
}

// OrderItem is a snapshot of the product at order time. It is never
// re-priced from the catalog.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// DeliveryDetails is the per-delivery-type payload supplied by the patron.
type DeliveryDetails struct {
	Address     string     `json:"address,omitempty"`
	Classroom   string     `json:"classroom,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	TableNumber *int       `json:"table_number,omitempty"`
	SlotStart   *time.Time `json:"slot_start,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     int64           `json:"total_amount"`
	DeliveryType    DeliveryType    `json:"delivery_type"`
	DeliveryDetails DeliveryDetails `json:"delivery_details"`
	Status          OrderStatus     `json:"order_status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	TokenNumber     string          `json:"token_number"`
	Reservation     *Reservation    `json:"reservation,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Transition moves the order to next. Terminal orders reject every
// transition with ErrConflict.
func (o *Order) Transition(next OrderStatus) error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order %s is %s", ErrConflict, o.ID, o.Status)
	}
	o.Status = next
	return nil
}

func TotalOf(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}
