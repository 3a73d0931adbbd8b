package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"food-orders/internal/catalog"
	"food-orders/internal/models"
	"food-orders/internal/store"
	"food-orders/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/google/uuid"
)

type PriceValidator interface {
	Validate(ctx context.Context, req models.OrderRequest) catalog.Verdict
}

// Publisher delivers a payload to a topic. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type UseCase struct {
	validator PriceValidator
	store     store.Store
	publisher Publisher
	topic     string
	metrics   *telemetry.Metrics
	log       *zap.Logger
	tracer    trace.Tracer

	now   func() time.Time
	newID func() string
}

func NewUseCase(
	validator PriceValidator,
	orders store.Store,
	publisher Publisher,
	topic string,
	metrics *telemetry.Metrics,
	log *zap.Logger,
	tracer trace.Tracer,
) *UseCase {
	return &UseCase{
		validator: validator,
		store:     orders,
		publisher: publisher,
		topic:     topic,
		metrics:   metrics,
		log:       log,
		tracer:    tracer,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// PlaceOrder validates prices against the catalog, persists the order and
// then announces it. The announcement is best-effort: once the order is
// stored it is returned even if publishing fails.
func (uc *UseCase) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "PlaceOrder",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("order.owner_id", req.OwnerID),
			attribute.String("order.restaurant_id", req.RestaurantID),
			attribute.Int("order.items_count", len(req.Items)),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		uc.countPlacement(ctx, "invalid")
		return nil, err
	}

	if err := uc.validatePrices(ctx, req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Past validation the placement runs to a terminal state even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)

	order := &models.Order{
		ID:           uc.newID(),
		OwnerID:      req.OwnerID,
		RestaurantID: req.RestaurantID,
		Items:        slices.Clone(req.Items),
		Total:        req.ComputedTotal(),
		Status:       models.StatusCreated,
		CreatedAt:    uc.now(),
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	if err := uc.persist(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.countPlacement(ctx, "storage_error")
		return nil, err
	}

	uc.announce(ctx, order)

	total, _ := order.Total.Float64()
	uc.countPlacement(ctx, "created")
	uc.metrics.OrderValue.Record(ctx, total)

	span.SetStatus(codes.Ok, "")
	uc.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("owner_id", order.OwnerID),
		zap.String("restaurant_id", order.RestaurantID),
		zap.Stringer("total", order.Total),
	)

	return order, nil
}

func (uc *UseCase) validatePrices(ctx context.Context, req models.OrderRequest) error {
	ctx, span := uc.tracer.Start(ctx, "ValidatePrices")
	defer span.End()

	start := time.Now()
	verdict := uc.validator.Validate(ctx, req)
	outcome := metric.WithAttributes(attribute.String("outcome", verdict.Outcome.String()))
	uc.metrics.CatalogCheckTime.Record(ctx, time.Since(start).Seconds(), outcome)
	span.SetAttributes(attribute.String("catalog.outcome", verdict.Outcome.String()))

	switch verdict.Outcome {
	case catalog.Match:
		span.SetStatus(codes.Ok, "")
		return nil
	case catalog.Mismatch:
		span.SetStatus(codes.Error, verdict.Reason)
		uc.countPlacement(ctx, "price_mismatch")
		uc.log.Warn("order rejected by catalog",
			zap.String("restaurant_id", req.RestaurantID),
			zap.String("owner_id", req.OwnerID),
			zap.String("reason", verdict.Reason),
		)
		return fmt.Errorf("%w: %s", ErrPriceMismatch, verdict.Reason)
	default:
		span.SetStatus(codes.Error, verdict.Reason)
		uc.countPlacement(ctx, "catalog_unavailable")
		uc.log.Error("catalog unavailable",
			zap.String("restaurant_id", req.RestaurantID),
			zap.String("reason", verdict.Reason),
		)
		return fmt.Errorf("%w: %s", ErrCatalogUnavailable, verdict.Reason)
	}
}

func (uc *UseCase) persist(ctx context.Context, order *models.Order) error {
	ctx, span := uc.tracer.Start(ctx, "PersistOrder",
		trace.WithAttributes(attribute.String("order.id", order.ID)),
	)
	defer span.End()

	if err := uc.store.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.log.Error("failed to persist order", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// announce never fails the placement; errors are logged and counted.
func (uc *UseCase) announce(ctx context.Context, order *models.Order) {
	ctx, span := uc.tracer.Start(ctx, "AnnounceOrder",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("messaging.destination.name", uc.topic),
		),
	)
	defer span.End()

	event := models.PlacedEvent{
		OrderID: order.ID,
		Status:  order.Status,
		Total:   order.Total,
	}
	if err := uc.publisher.Publish(ctx, uc.topic, order.ID, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.metrics.AnnounceFailures.Add(ctx, 1)
		uc.log.Warn("order committed but placed event was not published",
			zap.String("order_id", order.ID),
			zap.String("topic", uc.topic),
			zap.Error(err),
		)
		return
	}
	span.SetStatus(codes.Ok, "")
}

func (uc *UseCase) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := uc.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		span.SetStatus(codes.Error, "not found")
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	span.SetStatus(codes.Ok, "")
	return order, nil
}

// ListOwnerOrders returns the owner's orders, newest first.
func (uc *UseCase) ListOwnerOrders(ctx context.Context, ownerID string) ([]models.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "ListOwnerOrders", trace.WithAttributes(attribute.String("order.owner_id", ownerID)))
	defer span.End()

	orders, err := uc.store.FindByOwner(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	span.SetAttributes(attribute.Int("order.count", len(orders)))
	span.SetStatus(codes.Ok, "")
	return orders, nil
}

func (uc *UseCase) countPlacement(ctx context.Context, outcome string) {
	uc.metrics.OrdersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
