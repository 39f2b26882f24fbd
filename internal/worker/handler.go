package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joao-fontenele/canteen/internal/domain"
)

const defaultMailDomain = "canteen.example.com"

type NotificationHandler struct {
	emailServiceURL string
	mailDomain      string
	location        *time.Location
	httpClient      *http.Client
	logger          *slog.Logger
}

type Option func(*NotificationHandler)

// WithMailDomain sets the domain appended to user IDs to form recipients.
func WithMailDomain(mailDomain string) Option {
	return func(h *NotificationHandler) {
		h.mailDomain = mailDomain
	}
}

// WithLocation sets the zone slot times are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(h *NotificationHandler) {
		h.location = loc
	}
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger, opts ...Option) *NotificationHandler {
	h := &NotificationHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		mailDomain:      defaultMailDomain,
		location:        time.Local,
		httpClient:      client,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *NotificationHandler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "user_id", event.UserID)

	if err := h.sendEmail(ctx, h.confirmation(event)); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.Info("confirmation email sent", "order_id", event.OrderID, "token", event.TokenNumber)
	return nil
}

func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal status changed event: %w", err)
	}

	h.logger.Info("processing status changed event", "order_id", event.OrderID, "status", event.Status)

	msg := emailRequest{
		To:      h.recipient(event.UserID),
		Subject: fmt.Sprintf("Order %s is %s", event.TokenNumber, statusText(event.Status)),
		Body:    statusBody(event),
	}
	if err := h.sendEmail(ctx, msg); err != nil {
		h.logger.Error("failed to send status email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send status email: %w", err)
	}

	return nil
}

func (h *NotificationHandler) confirmation(event domain.OrderCreatedEvent) emailRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order. Your token is %s.\n\n", event.TokenNumber)
	for _, item := range event.Items {
		fmt.Fprintf(&b, "%d x %s  %s\n", item.Quantity, item.Name, formatAmount(item.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", formatAmount(event.TotalAmount))

	if event.DeliveryType.RequiresTable() {
		switch {
		case event.TableSecured && event.TableNumber != nil && event.SlotStart != nil:
			fmt.Fprintf(&b, "Table %d is reserved for you at %s.\n",
				*event.TableNumber, event.SlotStart.In(h.location).Format("15:04"))
		default:
			b.WriteString("We could not reserve a table for the selected time. Your food will still be prepared.\n")
		}
	}

	return emailRequest{
		To:      h.recipient(event.UserID),
		Subject: "Order confirmed: " + event.TokenNumber,
		Body:    b.String(),
	}
}

func (h *NotificationHandler) recipient(userID string) string {
	if strings.Contains(userID, "@") {
		return userID
	}
	return userID + "@" + h.mailDomain
}

func statusText(s domain.OrderStatus) string {
	switch s {
	case domain.OrderStatusPreparing:
		return "being prepared"
	case domain.OrderStatusReady:
		return "ready for pickup"
	case domain.OrderStatusOutForDelivery:
		return "out for delivery"
	case domain.OrderStatusDelivered:
		return "delivered"
	case domain.OrderStatusCancelled:
		return "cancelled"
	default:
		return strings.ToLower(string(s))
	}
}

func statusBody(event domain.OrderStatusChangedEvent) string {
	if event.Status == domain.OrderStatusCancelled {
		return fmt.Sprintf("Your order %s has been cancelled.", event.TokenNumber)
	}
	return fmt.Sprintf("Your order %s is now %s.", event.TokenNumber, statusText(event.Status))
}

// formatAmount renders minor units as a decimal amount.
func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body emailRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
