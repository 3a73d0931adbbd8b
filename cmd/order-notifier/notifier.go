package main

import (
	"context"
	"encoding/json"
	"fmt"
	"food-orders/internal/models"
	"food-orders/internal/telemetry"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// notifier turns order.placed events into owner notifications. Delivery is
// mocked: the notification is logged and kept in the inbox.
type notifier struct {
	topic   string
	inbox   *inbox
	metrics *telemetry.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func newNotifier(topic string, box *inbox, metrics *telemetry.Metrics, log *zap.Logger, tracer trace.Tracer) *notifier {
	return &notifier{topic: topic, inbox: box, metrics: metrics, log: log, tracer: tracer, now: time.Now}
}

func (n *notifier) handle(ctx context.Context, key, value []byte) error {
	ctx, span := n.tracer.Start(ctx, "NotifyOrderPlaced",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	var event models.PlacedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		span.SetStatus(codes.Error, "failed to unmarshal event")
		n.metrics.EventsConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "malformed")))
		return fmt.Errorf("decode placed event: %w", err)
	}
	if event.OrderID == "" {
		n.metrics.EventsConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "malformed")))
		return fmt.Errorf("placed event without orderId (key %q)", key)
	}

	ownerID := baggage.FromContext(ctx).Member("owner_id").Value()
	if ownerID == "" {
		ownerID = "unknown_user"
	}

	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("order.owner_id", ownerID),
		attribute.String("order.status", string(event.Status)),
	)

	n.inbox.add(notification{
		OwnerID: ownerID,
		Payload: notificationPayload{
			Title:      "Event " + n.topic,
			Message:    event,
			RoutingKey: n.topic,
		},
		SentAt:    n.now().UTC(),
		Delivered: true,
		Transport: "mock",
	})

	n.metrics.EventsConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "notified")))
	span.SetStatus(codes.Ok, "")
	n.log.Info("notification sent",
		zap.String("order_id", event.OrderID),
		zap.String("owner_id", ownerID),
		zap.String("status", string(event.Status)),
		zap.Stringer("total", event.Total),
		zap.String("transport", "mock"),
	)
	return nil
}
