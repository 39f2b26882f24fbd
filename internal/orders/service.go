package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/canteen/internal/domain"
)

var tracer = otel.Tracer("orders")

const (
	DefaultNotifyTimeout = 3 * time.Second
	maxInsertAttempts    = 5
)

const (
	noteNoTable           = "no table available for the selected slot"
	noteReservationFailed = "reservation failed"
	noteNoSlot            = "no slot selected"
)

type ProductStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

type OrderStore interface {
	TokenChecker
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	// UpdateStatus is a compare-and-set on the current status. It returns
	// nil when the order is missing or no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)
}

// TableBooker is satisfied by *reservations.Service.
type TableBooker interface {
	ValidateSlot(start time.Time) (domain.Slot, error)
	ValidateTable(table int) error
	CreateForOrder(ctx context.Context, userID, orderID string, slotStart time.Time, requestedTable *int) (*domain.Reservation, error)
	ForOrder(ctx context.Context, orderID string) (*domain.Reservation, error)
}

type Notifier interface {
	OrderCreated(ctx context.Context, order *domain.Order, reservation *domain.Reservation) error
	StatusChanged(ctx context.Context, order *domain.Order) error
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderInput struct {
	Items           []ItemInput            `json:"items"`
	DeliveryType    string                 `json:"delivery_type"`
	DeliveryDetails domain.DeliveryDetails `json:"delivery_details"`
	PaymentMethod   string                 `json:"payment_method"`
}

type CreateOrderResult struct {
	Order           *domain.Order       `json:"order"`
	Reservation     *domain.Reservation `json:"reservation,omitempty"`
	TableSecured    bool                `json:"table_secured"`
	ReservationNote string              `json:"reservation_note,omitempty"`
}

type Service struct {
	products      ProductStore
	orders        OrderStore
	tables        TableBooker
	notifier      Notifier
	tokens        *TokenGenerator
	notifyTimeout time.Duration
	now           func() time.Time
	metrics       *serviceMetrics
	logger        *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.notifyTimeout = d
	}
}

func WithTokenGenerator(g *TokenGenerator) Option {
	return func(s *Service) {
		s.tokens = g
	}
}

func NewService(products ProductStore, orders OrderStore, tables TableBooker, notifier Notifier, logger *slog.Logger, opts ...Option) (*Service, error) {
	m, err := newServiceMetrics()
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	s := &Service{
		products:      products,
		orders:        orders,
		tables:        tables,
		notifier:      notifier,
		notifyTimeout: DefaultNotifyTimeout,
		now:           time.Now,
		metrics:       m,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		s.tokens = NewTokenGenerator(orders)
	}
	return s, nil
}

// maxLineQuantity bounds a folded line so totals cannot overflow.
const maxLineQuantity = math.MaxInt32

type line struct {
	productID string
	quantity  int
}

// validate checks everything that can be checked without touching storage
// and folds repeated products into one line.
func (s *Service) validate(userID string, in CreateOrderInput) (domain.DeliveryType, []line, error) {
	if strings.TrimSpace(userID) == "" {
		return "", nil, domain.ErrUnauthenticated
	}
	if len(in.Items) == 0 {
		return "", nil, domain.Invalid("order must contain at least one item")
	}

	deliveryType, err := domain.ParseDeliveryType(in.DeliveryType)
	if err != nil {
		return "", nil, err
	}

	var lines []line
	index := make(map[string]int, len(in.Items))
	for _, item := range in.Items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			return "", nil, domain.Invalid("product_id is required")
		}
		if item.Quantity < 1 {
			return "", nil, domain.Invalid("quantity for product %s must be at least 1", id)
		}
		if item.Quantity > maxLineQuantity {
			return "", nil, domain.Invalid("quantity for product %s is too large", id)
		}
		if i, ok := index[id]; ok {
			if lines[i].quantity > maxLineQuantity-item.Quantity {
				return "", nil, domain.Invalid("quantity for product %s is too large", id)
			}
			lines[i].quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, line{productID: id, quantity: item.Quantity})
	}

	details := in.DeliveryDetails
	if deliveryType.RequiresTable() {
		if details.TableNumber != nil && details.SlotStart == nil {
			return "", nil, domain.Invalid("table_number requires slot_start")
		}
		if details.SlotStart != nil {
			if _, err := s.tables.ValidateSlot(*details.SlotStart); err != nil {
				return "", nil, err
			}
		}
		if details.TableNumber != nil {
			if err := s.tables.ValidateTable(*details.TableNumber); err != nil {
				return "", nil, err
			}
		}
	}

	return deliveryType, lines, nil
}

// CreateOrder validates the request, takes stock, stores the order with a
// fresh token, tries to book a table when asked, and notifies. A table that
// cannot be secured does not fail the order.
func (s *Service) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := tracer.Start(ctx, "orders.CreateOrder", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("delivery.type", in.DeliveryType),
		attribute.Int("items.count", len(in.Items)),
	))
	defer span.End()

	result, err := s.createOrder(ctx, userID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
		return nil, err
	}
	return result, nil
}

func (s *Service) createOrder(ctx context.Context, userID string, in CreateOrderInput) (*CreateOrderResult, error) {
	deliveryType, lines, err := s.validate(userID, in)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		product, err := s.products.GetByID(ctx, l.productID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", l.productID, err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, l.productID)
		}
		if product.Stock < l.quantity {
			return nil, fmt.Errorf("%w: %s has %d left, %d requested", domain.ErrInsufficientStock, product.Name, product.Stock, l.quantity)
		}
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  l.quantity,
		})
	}

	taken, err := s.takeStock(ctx, items)
	if err != nil {
		return nil, err
	}

	method := domain.NormalizePaymentMethod(in.PaymentMethod)
	now := s.now().UTC()
	order := &domain.Order{
		UserID:          userID,
		Items:           items,
		TotalAmount:     domain.TotalOf(items),
		DeliveryType:    deliveryType,
		DeliveryDetails: in.DeliveryDetails,
		Status:          domain.OrderStatusPreparing,
		PaymentMethod:   method,
		PaymentStatus:   method.InitialPaymentStatus(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.insert(ctx, order); err != nil {
		s.restoreStock(ctx, taken)
		return nil, err
	}

	s.metrics.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("delivery_type", string(order.DeliveryType)),
		attribute.String("payment_method", string(order.PaymentMethod)),
	))
	s.metrics.orderValue.Record(ctx, order.TotalAmount)

	result := &CreateOrderResult{Order: order}
	if deliveryType.RequiresTable() {
		s.reserveTable(ctx, order, result)
	}

	s.notifyCreated(ctx, order, result.Reservation)

	s.logger.Info("order created",
		"order_id", order.ID,
		"user_id", userID,
		"token", order.TokenNumber,
		"total", order.TotalAmount,
		"table_secured", result.TableSecured,
	)
	return result, nil
}

// takeStock decrements every line or none. Lines already taken are given
// back when a later one fails.
func (s *Service) takeStock(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	taken := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.restoreStock(ctx, taken)
			return nil, fmt.Errorf("take stock for %s: %w", item.ProductID, err)
		}
		taken = append(taken, item)
	}
	return taken, nil
}

func (s *Service) restoreStock(ctx context.Context, items []domain.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("failed to restore stock", "error", err, "product_id", item.ProductID, "quantity", item.Quantity)
			continue
		}
		s.metrics.compensations.Add(ctx, 1)
	}
}

// insert stores order with a fresh token, regenerating when the unique
// index reports a token collision.
func (s *Service) insert(ctx context.Context, order *domain.Order) error {
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		token, err := s.tokens.Next(ctx)
		if err != nil {
			return err
		}
		order.TokenNumber = token

		err = s.orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateToken) {
			return fmt.Errorf("store order: %w", err)
		}
		s.logger.Warn("token collision on insert, regenerating", "token", token, "attempt", attempt)
	}
	return fmt.Errorf("%w after %d inserts", domain.ErrTokenExhausted, maxInsertAttempts)
}

func (s *Service) reserveTable(ctx context.Context, order *domain.Order, result *CreateOrderResult) {
	details := order.DeliveryDetails
	if details.SlotStart == nil {
		result.ReservationNote = noteNoSlot
		return
	}

	reservation, err := s.tables.CreateForOrder(ctx, order.UserID, order.ID, *details.SlotStart, details.TableNumber)
	switch {
	case err == nil:
		result.Reservation = reservation
		result.TableSecured = true
		order.Reservation = reservation
		s.metrics.tables.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "secured")))
	case errors.Is(err, domain.ErrNoTableAvailable):
		result.ReservationNote = noteNoTable
		s.metrics.tables.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "no_table")))
		s.logger.Info("order placed without table", "order_id", order.ID, "slot", details.SlotStart.Format(time.RFC3339))
	default:
		result.ReservationNote = noteReservationFailed
		s.metrics.tables.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		s.logger.Error("failed to reserve table", "error", err, "order_id", order.ID)
	}
}

// notifyContext detaches from the caller so a client disconnect does not
// cut the publish short.
func (s *Service) notifyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
}

func (s *Service) notifyCreated(ctx context.Context, order *domain.Order, reservation *domain.Reservation) {
	nctx, cancel := s.notifyContext(ctx)
	defer cancel()

	if err := s.notifier.OrderCreated(nctx, order, reservation); err != nil {
		s.metrics.notifyErrors.Add(nctx, 1, metric.WithAttributes(attribute.String("event", "order_created")))
		s.logger.Error("failed to send order notification", "error", fmt.Errorf("%w: %w", domain.ErrNotification, err), "order_id", order.ID)
	}
}

func (s *Service) notifyStatusChanged(ctx context.Context, order *domain.Order) {
	nctx, cancel := s.notifyContext(ctx)
	defer cancel()

	if err := s.notifier.StatusChanged(nctx, order); err != nil {
		s.metrics.notifyErrors.Add(nctx, 1, metric.WithAttributes(attribute.String("event", "status_changed")))
		s.logger.Error("failed to send status notification", "error", fmt.Errorf("%w: %w", domain.ErrNotification, err), "order_id", order.ID)
	}
}

// UpdateStatus moves an order to status. Delivered and Cancelled orders are
// final, and a concurrent change between read and write is a conflict.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", status),
	))
	defer span.End()

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	current, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}

	from := current.Status
	if err := current.Transition(next); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, from, next)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: order %s changed concurrently", domain.ErrConflict, orderID)
	}

	s.logger.Info("order status updated", "order_id", orderID, "from", from, "to", next)
	s.notifyStatusChanged(ctx, updated)
	return updated, nil
}

// GetOrder returns the order with its reservation attached.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}

	if order.DeliveryType.RequiresTable() {
		reservation, err := s.tables.ForOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("load reservation for %s: %w", orderID, err)
		}
		order.Reservation = reservation
	}
	return order, nil
}

func (s *Service) MyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthenticated
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}
	return orders, nil
}

func (s *Service) AllOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrTokenExhausted):
		return "token_exhausted"
	case errors.Is(err, domain.ErrStorageTimeout):
		return "storage_timeout"
	default:
		return "internal"
	}
}
