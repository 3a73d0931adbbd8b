package catalog

import (
	"context"
	"errors"
	"fmt"

	"food-orders/internal/models"

	"github.com/shopspring/decimal"
)

type Outcome int

const (
	Match Outcome = iota
	Mismatch
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Verdict is the result of checking a request against the catalog. Reason
// is empty on Match.
type Verdict struct {
	Outcome Outcome
	Reason  string
}

type Validator struct {
	client *Client
}

func NewValidator(client *Client) *Validator {
	return &Validator{client: client}
}

// Validate fetches a fresh snapshot and compares the request against it.
// The fetch is attempted exactly once.
func (v *Validator) Validate(ctx context.Context, req models.OrderRequest) Verdict {
	snap, err := v.client.Snapshot(ctx, req.RestaurantID)
	if err != nil {
		if errors.Is(err, ErrRestaurantNotFound) {
			return Verdict{Outcome: Mismatch, Reason: err.Error()}
		}
		return Verdict{Outcome: Unavailable, Reason: err.Error()}
	}
	return Compare(snap, req)
}

// Compare requires every item to exist in the snapshot at exactly the
// stated price, and the total rebuilt from catalog prices to equal the
// request's computed total.
func Compare(snap *Snapshot, req models.OrderRequest) Verdict {
	expected := decimal.Zero
	for _, it := range req.Items {
		price, ok := snap.PriceByName[it.Name]
		if !ok {
			return Verdict{Outcome: Mismatch, Reason: fmt.Sprintf("item %q is not on the menu", it.Name)}
		}
		if !price.Equal(it.UnitPrice) {
			return Verdict{Outcome: Mismatch, Reason: fmt.Sprintf("item %q costs %s, request says %s", it.Name, price, it.UnitPrice)}
		}
		expected = expected.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	if total := req.ComputedTotal(); !expected.Equal(total) {
		return Verdict{Outcome: Mismatch, Reason: fmt.Sprintf("total %s does not match catalog total %s", total, expected)}
	}
	return Verdict{Outcome: Match}
}
