// Package catalog checks order prices against the restaurant service's
// current menu.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const maxBodyBytes = 1 << 20

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrUnavailable        = errors.New("catalog unavailable")
)

// Snapshot is a restaurant's menu as fetched for a single validation.
// It is never cached.
type Snapshot struct {
	RestaurantID string
	PriceByName  map[string]decimal.Decimal
}

type menuItem struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

type restaurantResponse struct {
	Menu []menuItem `json:"menu"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

func NewClient(baseURL string, httpClient *http.Client, tracer trace.Tracer) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tracer:     tracer,
	}
}

// Snapshot performs a single GET of the restaurant document. A 404 yields
// ErrRestaurantNotFound; transport errors, other non-200 statuses and
// malformed payloads yield ErrUnavailable.
func (c *Client) Snapshot(ctx context.Context, restaurantID string) (*Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.Snapshot",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("catalog.restaurant_id", restaurantID)),
	)
	defer span.End()

	endpoint := c.baseURL + "/api/restaurants/" + url.PathEscape(restaurantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, c.fail(span, fmt.Errorf("%w: %s", ErrRestaurantNotFound, restaurantID))
	case resp.StatusCode != http.StatusOK:
		return nil, c.fail(span, fmt.Errorf("%w: restaurant service returned %d", ErrUnavailable, resp.StatusCode))
	}

	var body restaurantResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, c.fail(span, fmt.Errorf("%w: decode menu: %v", ErrUnavailable, err))
	}
	if body.Menu == nil {
		return nil, c.fail(span, fmt.Errorf("%w: response has no menu", ErrUnavailable))
	}

	snap := &Snapshot{
		RestaurantID: restaurantID,
		PriceByName:  make(map[string]decimal.Decimal, len(body.Menu)),
	}
	for _, mi := range body.Menu {
		if mi.Name == "" || mi.Price == nil {
			return nil, c.fail(span, fmt.Errorf("%w: menu entry without name or price", ErrUnavailable))
		}
		snap.PriceByName[mi.Name] = *mi.Price
	}

	span.SetAttributes(attribute.Int("catalog.menu_size", len(snap.PriceByName)))
	span.SetStatus(codes.Ok, "")
	return snap, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
