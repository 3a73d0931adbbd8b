package telemetry

import (
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	OrdersPlaced     metric.Int64Counter
	OrderValue       metric.Float64Histogram
	CatalogCheckTime metric.Float64Histogram
	AnnounceFailures metric.Int64Counter
	EventsConsumed   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	placed, err := meter.Int64Counter("orders_placed_total",
		metric.WithDescription("Order placement attempts by outcome"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	value, err := meter.Float64Histogram("order_value",
		metric.WithDescription("Total of committed orders"),
		metric.WithUnit("{currency}"),
		metric.WithExplicitBucketBoundaries(5, 10, 20, 50, 100, 250, 500),
	)
	if err != nil {
		return nil, err
	}

	catalogTime, err := meter.Float64Histogram("catalog_check_duration_seconds",
		metric.WithDescription("Duration of catalog price validation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, err
	}

	announceFailures, err := meter.Int64Counter("announce_failures_total",
		metric.WithDescription("Committed orders whose placed event could not be published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	consumed, err := meter.Int64Counter("events_consumed_total",
		metric.WithDescription("Order events consumed from Kafka"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		OrdersPlaced:     placed,
		OrderValue:       value,
		CatalogCheckTime: catalogTime,
		AnnounceFailures: announceFailures,
		EventsConsumed:   consumed,
	}, nil
}
