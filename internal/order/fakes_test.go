package order

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"food-orders/internal/catalog"
	"food-orders/internal/models"
	"food-orders/internal/store"
	"food-orders/internal/telemetry"

	"github.com/shopspring/decimal"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var errBrokerDown = errors.New("broker down")

type published struct {
	topic string
	key   string
	event models.PlacedEvent
}

type recordingPublisher struct {
	mu    sync.Mutex
	fail  bool
	sent  []published
	calls int
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail {
		return errBrokerDown
	}
	p.sent = append(p.sent, published{topic: topic, key: key, event: value.(models.PlacedEvent)})
	return nil
}

func (p *recordingPublisher) snapshot() ([]published, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.sent...), p.calls
}

// failingStore rejects writes but serves reads from the wrapped store.
type failingStore struct {
	store.Store
	saves int
}

func (s *failingStore) Save(context.Context, *models.Order) error {
	s.saves++
	return errors.New("connection refused")
}

// orderingStore records whether anything was published before Save ran.
type orderingStore struct {
	store.Store
	pub             *recordingPublisher
	publishedBefore int
}

func (s *orderingStore) Save(ctx context.Context, o *models.Order) error {
	_, calls := s.pub.snapshot()
	s.publishedBefore = calls
	return s.Store.Save(ctx, o)
}

type countingValidator struct {
	mu         sync.Mutex
	verdict    catalog.Verdict
	calls      int
	onValidate func()
}

func (v *countingValidator) Validate(context.Context, models.OrderRequest) catalog.Verdict {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.onValidate != nil {
		v.onValidate()
	}
	return v.verdict
}

// cancelAwarePublisher notes whether it was handed a cancelled context.
type cancelAwarePublisher struct {
	sawCancelled bool
}

func (p *cancelAwarePublisher) Publish(ctx context.Context, _, _ string, _ any) error {
	if ctx.Err() != nil {
		p.sawCancelled = true
		return ctx.Err()
	}
	return nil
}

func testMetrics(t *testing.T) *telemetry.Metrics {
	t.Helper()
	m, err := telemetry.NewMetrics(metricnoop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	return m
}

func newTestUseCase(t *testing.T, v PriceValidator, s store.Store, p Publisher) *UseCase {
	t.Helper()
	return NewUseCase(v, s, p, "order.placed", testMetrics(t), zap.NewNop(), tracenoop.NewTracerProvider().Tracer("test"))
}

// catalogServer serves a single restaurant "r1" with the given menu body.
func catalogServer(t *testing.T, menu string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/restaurants/r1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(menu))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func catalogValidator(baseURL string) *catalog.Validator {
	client := catalog.NewClient(baseURL, &http.Client{Timeout: 2 * time.Second}, tracenoop.NewTracerProvider().Tracer("test"))
	return catalog.NewValidator(client)
}

func pizzaRequest(price string, qty int) models.OrderRequest {
	return models.OrderRequest{
		OwnerID:      "u1",
		RestaurantID: "r1",
		Items: []models.LineItem{
			{Name: "Pizza", UnitPrice: decimal.RequireFromString(price), Quantity: qty},
		},
	}
}
