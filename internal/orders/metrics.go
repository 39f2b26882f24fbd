package orders

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type serviceMetrics struct {
	created       metric.Int64Counter
	rejected      metric.Int64Counter
	tables        metric.Int64Counter
	compensations metric.Int64Counter
	notifyErrors  metric.Int64Counter
	orderValue    metric.Int64Histogram
}

func newServiceMetrics() (*serviceMetrics, error) {
	meter := otel.Meter("orders")

	created, err := meter.Int64Counter("canteen.orders.created",
		metric.WithDescription("Orders stored"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("canteen.orders.rejected",
		metric.WithDescription("Order attempts rejected before or during storage"),
	)
	if err != nil {
		return nil, err
	}

	tables, err := meter.Int64Counter("canteen.reservations.attempts",
		metric.WithDescription("Table reservation attempts made while placing orders"),
	)
	if err != nil {
		return nil, err
	}

	compensations, err := meter.Int64Counter("canteen.stock.compensations",
		metric.WithDescription("Stock increments issued to undo a failed order"),
	)
	if err != nil {
		return nil, err
	}

	notifyErrors, err := meter.Int64Counter("canteen.notifications.failed",
		metric.WithDescription("Notifications that could not be published"),
	)
	if err != nil {
		return nil, err
	}

	orderValue, err := meter.Int64Histogram("canteen.orders.value",
		metric.WithDescription("Order total in minor currency units"),
	)
	if err != nil {
		return nil, err
	}

	return &serviceMetrics{
		created:       created,
		rejected:      rejected,
		tables:        tables,
		compensations: compensations,
		notifyErrors:  notifyErrors,
		orderValue:    orderValue,
	}, nil
}
