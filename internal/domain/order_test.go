package domain

import (
	"errors"
	"testing"
)

func TestOrder_Transition(t *testing.T) {
	t.Run("moves through the fulfilment states", func(t *testing.T) {
		order := &Order{ID: "o-1", Status: OrderStatusPreparing}
		for _, next := range []OrderStatus{OrderStatusReady, OrderStatusOutForDelivery, OrderStatusDelivered} {
			if err := order.Transition(next); err != nil {
				t.Fatalf("transition to %s: unexpected error: %v", next, err)
			}
			if order.Status != next {
				t.Errorf("expected status %s, got %s", next, order.Status)
			}
		}
	})

	t.Run("delivered orders cannot go back to preparing", func(t *testing.T) {
		order := &Order{ID: "o-2", Status: OrderStatusPreparing}
		if err := order.Transition(OrderStatusDelivered); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		err := order.Transition(OrderStatusPreparing)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		if order.Status != OrderStatusDelivered {
			t.Errorf("expected status to remain Delivered, got %s", order.Status)
		}
	})

	t.Run("cancelled is reachable from any non-terminal state and is terminal", func(t *testing.T) {
		for _, from := range []OrderStatus{OrderStatusPreparing, OrderStatusReady, OrderStatusOutForDelivery} {
			order := &Order{ID: "o-3", Status: from}
			if err := order.Transition(OrderStatusCancelled); err != nil {
				t.Fatalf("from %s: unexpected error: %v", from, err)
			}
			if err := order.Transition(OrderStatusReady); !errors.Is(err, ErrConflict) {
				t.Errorf("from cancelled: expected ErrConflict, got %v", err)
			}
		}
	})
}

func TestParseOrderStatus(t *testing.T) {
	if st, err := ParseOrderStatus(" Ready "); err != nil || st != OrderStatusReady {
		t.Errorf("expected Ready, got %q (%v)", st, err)
	}
	if _, err := ParseOrderStatus("Shipped"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestParseDeliveryType(t *testing.T) {
	tests := []struct {
		in      string
		want    DeliveryType
		wantErr bool
	}{
		{in: "Pickup", want: DeliveryPickup},
		{in: "ReserveTable", want: DeliveryReserveTable},
		{in: "Classroom", want: DeliveryClassroom},
		{in: "Drone", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDeliveryType(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("%q: expected ErrValidation, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: expected %s, got %s (%v)", tt.in, tt.want, got, err)
		}
	}
}

func TestNormalizePaymentMethod(t *testing.T) {
	tests := []struct {
		in         string
		wantMethod PaymentMethod
		wantStatus PaymentStatus
	}{
		{in: "ONLINE", wantMethod: PaymentOnline, wantStatus: PaymentPaid},
		{in: " online ", wantMethod: PaymentOnline, wantStatus: PaymentPaid},
		{in: "CASH", wantMethod: PaymentCash, wantStatus: PaymentPending},
		{in: "card", wantMethod: PaymentCash, wantStatus: PaymentPending},
		{in: "", wantMethod: PaymentCash, wantStatus: PaymentPending},
	}
	for _, tt := range tests {
		method := NormalizePaymentMethod(tt.in)
		if method != tt.wantMethod {
			t.Errorf("%q: expected method %s, got %s", tt.in, tt.wantMethod, method)
		}
		if status := method.InitialPaymentStatus(); status != tt.wantStatus {
			t.Errorf("%q: expected status %s, got %s", tt.in, tt.wantStatus, status)
		}
	}
}

func TestTotalOf(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p1", Price: 1999, Quantity: 3},
		{ProductID: "p2", Price: 1, Quantity: 7},
		{ProductID: "p3", Price: 250, Quantity: 1},
	}
	if got := TotalOf(items); got != 1999*3+7+250 {
		t.Errorf("expected total %d, got %d", 1999*3+7+250, got)
	}
}

func TestStorageErrorsAreConflicts(t *testing.T) {
	for _, err := range []error{ErrTableTaken, ErrReservationExists, ErrDuplicateToken, ErrTokenExhausted} {
		if !errors.Is(err, ErrConflict) {
			t.Errorf("expected %v to match ErrConflict", err)
		}
	}
}
