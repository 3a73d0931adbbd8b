package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("invalid order request")

type OrderStatus string

const StatusCreated OrderStatus = "CREATED"

type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is UnitPrice x Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// MarshalJSON writes the unit price as a JSON number.
func (li LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string      `json:"name"`
		UnitPrice json.Number `json:"unitPrice"`
		Quantity  int         `json:"quantity"`
	}{li.Name, money(li.UnitPrice), li.Quantity})
}

// UnmarshalJSON also accepts the legacy "price" and "qty" keys sent by the
// web frontend. The canonical keys win when both are present.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name      string           `json:"name"`
		UnitPrice *decimal.Decimal `json:"unitPrice"`
		Price     *decimal.Decimal `json:"price"`
		Quantity  *int             `json:"quantity"`
		Qty       *int             `json:"qty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*li = LineItem{Name: wire.Name}
	switch {
	case wire.UnitPrice != nil:
		li.UnitPrice = *wire.UnitPrice
	case wire.Price != nil:
		li.UnitPrice = *wire.Price
	}
	switch {
	case wire.Quantity != nil:
		li.Quantity = *wire.Quantity
	case wire.Qty != nil:
		li.Quantity = *wire.Qty
	}
	return nil
}

type OrderRequest struct {
	OwnerID      string     `json:"ownerId"`
	RestaurantID string     `json:"restaurantId"`
	Items        []LineItem `json:"items"`
}

// UnmarshalJSON also accepts the legacy "userId" key.
func (r *OrderRequest) UnmarshalJSON(data []byte) error {
	type plain OrderRequest
	var wire struct {
		plain
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = OrderRequest(wire.plain)
	if r.OwnerID == "" {
		r.OwnerID = wire.UserID
	}
	return nil
}

// ComputedTotal sums the line totals as stated by the client.
func (r OrderRequest) ComputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range r.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Validate performs the structural checks that must pass before any
// external call is made.
func (r OrderRequest) Validate() error {
	if r.RestaurantID == "" {
		return fmt.Errorf("%w: restaurantId is required", ErrInvalidRequest)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", ErrInvalidRequest)
	}
	for i, it := range r.Items {
		switch {
		case it.Name == "":
			return fmt.Errorf("%w: item %d has no name", ErrInvalidRequest, i)
		case it.UnitPrice.IsNegative():
			return fmt.Errorf("%w: item %q has a negative unit price", ErrInvalidRequest, it.Name)
		case it.Quantity <= 0:
			return fmt.Errorf("%w: item %q must have a positive quantity", ErrInvalidRequest, it.Name)
		}
	}
	return nil
}

type Order struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	RestaurantID string          `json:"restaurantId"`
	Items        []LineItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// MarshalJSON writes the total as a JSON number.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		Total json.Number `json:"total"`
	}{plain(o), money(o.Total)})
}

// PlacedEvent is the payload announced after an order is committed.
type PlacedEvent struct {
	OrderID string          `json:"orderId"`
	Status  OrderStatus     `json:"status"`
	Total   decimal.Decimal `json:"total"`
}

// MarshalJSON writes the total as a JSON number.
func (e PlacedEvent) MarshalJSON() ([]byte, error) {
	type plain PlacedEvent
	return json.Marshal(struct {
		plain
		Total json.Number `json:"total"`
	}{plain(e), money(e.Total)})
}

// money renders d as an unquoted JSON number without touching the
// package-wide decimal.MarshalJSONWithoutQuotes switch.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
