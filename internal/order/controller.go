package order

import (
	"errors"

	"food-orders/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Controller struct {
	useCase *UseCase
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewController(useCase *UseCase, log *zap.Logger, tracer trace.Tracer) *Controller {
	return &Controller{useCase: useCase, log: log, tracer: tracer}
}

func (ct *Controller) Register(r fiber.Router) {
	r.Get("/health", ct.Health)
	r.Post("/order", ct.Create)
	r.Get("/orders/:ownerId", ct.ListByOwner)
	r.Get("/order/:orderId", ct.Get)
}

func errorBody(code string) fiber.Map {
	return fiber.Map{"error": code}
}

func (ct *Controller) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

func (ct *Controller) Create(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.CreateOrder",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req models.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		span.SetStatus(codes.Error, "invalid body")
		ct.log.Warn("invalid order body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid_request"))
	}

	if req.OwnerID != "" {
		if member, err := baggage.NewMember("owner_id", req.OwnerID); err == nil {
			if bag, err := baggage.New(member); err == nil {
				ctx = baggage.ContextWithBaggage(ctx, bag)
			}
		}
	}

	order, err := ct.useCase.PlaceOrder(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		switch {
		case errors.Is(err, ErrInvalidRequest):
			ct.log.Warn("invalid order request", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid_request"))
		case errors.Is(err, ErrPriceMismatch):
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("price_mismatch"))
		case errors.Is(err, ErrCatalogUnavailable):
			return c.Status(fiber.StatusBadGateway).JSON(errorBody("catalog_unavailable"))
		default:
			span.RecordError(err)
			ct.log.Error("failed to place order", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(errorBody("server_error"))
		}
	}

	span.SetStatus(codes.Ok, "")
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (ct *Controller) ListByOwner(c *fiber.Ctx) error {
	ownerID := c.Params("ownerId")

	orders, err := ct.useCase.ListOwnerOrders(c.UserContext(), ownerID)
	if err != nil {
		ct.log.Error("failed to list orders", zap.String("owner_id", ownerID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("server_error"))
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(orders)
}

func (ct *Controller) Get(c *fiber.Ctx) error {
	orderID := c.Params("orderId")

	order, err := ct.useCase.GetOrder(c.UserContext(), orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("order_not_found"))
	}
	if err != nil {
		ct.log.Error("failed to load order", zap.String("order_id", orderID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("server_error"))
	}
	return c.JSON(order)
}

// ErrorHandler is the fiber fallback for errors no handler turned into a
// response, including recovered panics.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			return c.Status(fe.Code).JSON(errorBody(fe.Message))
		}
		log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("server_error"))
	}
}
