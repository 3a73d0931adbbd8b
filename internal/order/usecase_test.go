package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"food-orders/internal/catalog"
	"food-orders/internal/models"
	"food-orders/internal/store"

	"github.com/shopspring/decimal"
)

func TestPlaceOrder_Success(t *testing.T) {
	srv := catalogServer(t, `{"menu":[{"name":"Pizza","price":9.50},{"name":"Soda","price":1.25}]}`)
	orders := store.NewMemory()
	pub := &recordingPublisher{}
	uc := newTestUseCase(t, catalogValidator(srv.URL), orders, pub)

	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	req := pizzaRequest("9.50", 2)
	req.Items = append(req.Items, models.LineItem{Name: "Soda", UnitPrice: decimal.RequireFromString("1.25"), Quantity: 3})

	order, err := uc.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if want := decimal.RequireFromString("22.75"); !order.Total.Equal(want) {
		t.Errorf("expected total %s, got %s", want, order.Total)
	}
	if order.Status != models.StatusCreated || order.ID == "" || !order.CreatedAt.Equal(fixed) {
		t.Errorf("unexpected order: %+v", order)
	}
	if order.OwnerID != "u1" || order.RestaurantID != "r1" || len(order.Items) != 2 {
		t.Errorf("request fields not copied: %+v", order)
	}

	stored, err := orders.FindByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("stored order: %v", err)
	}
	if !stored.Total.Equal(order.Total) {
		t.Errorf("stored total %s differs from returned %s", stored.Total, order.Total)
	}

	sent, calls := pub.snapshot()
	if calls != 1 || len(sent) != 1 {
		t.Fatalf("expected exactly one announcement, got %d", calls)
	}
	if sent[0].topic != "order.placed" || sent[0].key != order.ID {
		t.Errorf("unexpected announcement destination %+v", sent[0])
	}
	if ev := sent[0].event; ev.OrderID != order.ID || ev.Status != models.StatusCreated || !ev.Total.Equal(order.Total) {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestPlaceOrder_ItemsAreCopied(t *testing.T) {
	orders := store.NewMemory()
	uc := newTestUseCase(t, &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Match}}, orders, &recordingPublisher{})

	req := pizzaRequest("9.50", 1)
	order, err := uc.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	req.Items[0].Name = "changed"

	if order.Items[0].Name != "Pizza" {
		t.Fatal("order shares the request's item slice")
	}
}

func TestPlaceOrder_StructuralRejectionMakesNoCalls(t *testing.T) {
	tests := map[string]models.OrderRequest{
		"missing restaurant": {OwnerID: "u1", Items: pizzaRequest("9.50", 1).Items},
		"empty items":        {OwnerID: "u1", RestaurantID: "r1", Items: []models.LineItem{}},
		"nil items":          {OwnerID: "u1", RestaurantID: "r1"},
		"zero qty":           pizzaRequest("9.50", 0),
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			v := &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Match}}
			orders := &failingStore{Store: store.NewMemory()}
			pub := &recordingPublisher{}
			uc := newTestUseCase(t, v, orders, pub)

			_, err := uc.PlaceOrder(context.Background(), req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if v.calls != 0 || orders.saves != 0 {
				t.Fatalf("expected no external calls, validator=%d store=%d", v.calls, orders.saves)
			}
			if _, calls := pub.snapshot(); calls != 0 {
				t.Fatalf("expected no announcements, got %d", calls)
			}
		})
	}
}

func TestPlaceOrder_PriceMismatch(t *testing.T) {
	srv := catalogServer(t, `{"menu":[{"name":"Pizza","price":9.99}]}`)
	orders := store.NewMemory()
	pub := &recordingPublisher{}
	uc := newTestUseCase(t, catalogValidator(srv.URL), orders, pub)

	_, err := uc.PlaceOrder(context.Background(), pizzaRequest("9.50", 2))
	if !errors.Is(err, ErrPriceMismatch) {
		t.Fatalf("expected ErrPriceMismatch, got %v", err)
	}

	list, _ := orders.FindByOwner(context.Background(), "u1")
	if len(list) != 0 {
		t.Fatalf("expected nothing persisted, got %d orders", len(list))
	}
	if _, calls := pub.snapshot(); calls != 0 {
		t.Fatalf("expected no announcements, got %d", calls)
	}
}

func TestPlaceOrder_AnySingleItemMismatchRejects(t *testing.T) {
	srv := catalogServer(t, `{"menu":[{"name":"Pizza","price":9.50},{"name":"Soda","price":1.25},{"name":"Salad","price":7}]}`)

	stated := []string{"9.50", "1.25", "7.00"}
	for i := range stated {
		t.Run(fmt.Sprintf("item %d off by a cent", i), func(t *testing.T) {
			prices := append([]string(nil), stated...)
			prices[i] = decimal.RequireFromString(prices[i]).Add(decimal.New(1, -2)).String()

			req := models.OrderRequest{OwnerID: "u1", RestaurantID: "r1", Items: []models.LineItem{
				{Name: "Pizza", UnitPrice: decimal.RequireFromString(prices[0]), Quantity: 1},
				{Name: "Soda", UnitPrice: decimal.RequireFromString(prices[1]), Quantity: 2},
				{Name: "Salad", UnitPrice: decimal.RequireFromString(prices[2]), Quantity: 1},
			}}

			orders := store.NewMemory()
			uc := newTestUseCase(t, catalogValidator(srv.URL), orders, &recordingPublisher{})
			if _, err := uc.PlaceOrder(context.Background(), req); !errors.Is(err, ErrPriceMismatch) {
				t.Fatalf("expected ErrPriceMismatch, got %v", err)
			}
			if list, _ := orders.FindByOwner(context.Background(), "u1"); len(list) != 0 {
				t.Fatalf("expected nothing persisted, got %d", len(list))
			}
		})
	}
}

func TestPlaceOrder_CatalogUnavailable(t *testing.T) {
	v := &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Unavailable, Reason: "timeout"}}
	orders := &failingStore{Store: store.NewMemory()}
	uc := newTestUseCase(t, v, orders, &recordingPublisher{})

	_, err := uc.PlaceOrder(context.Background(), pizzaRequest("9.50", 1))
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
	if errors.Is(err, ErrPriceMismatch) {
		t.Fatal("unavailable catalog must not be reported as a price mismatch")
	}
	if orders.saves != 0 {
		t.Fatalf("expected no store writes, got %d", orders.saves)
	}
}

func TestPlaceOrder_StorageFailure(t *testing.T) {
	v := &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Match}}
	orders := &failingStore{Store: store.NewMemory()}
	pub := &recordingPublisher{}
	uc := newTestUseCase(t, v, orders, pub)
	uc.newID = func() string { return "attempted-id" }

	_, err := uc.PlaceOrder(context.Background(), pizzaRequest("9.50", 1))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if _, calls := pub.snapshot(); calls != 0 {
		t.Fatalf("expected no announcement after failed write, got %d", calls)
	}
	if _, err := uc.GetOrder(context.Background(), "attempted-id"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected attempted order to be absent, got %v", err)
	}
}

func TestPlaceOrder_AnnounceFailureIsAbsorbed(t *testing.T) {
	v := &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Match}}
	orders := store.NewMemory()
	pub := &recordingPublisher{fail: true}
	uc := newTestUseCase(t, v, orders, pub)

	order, err := uc.PlaceOrder(context.Background(), pizzaRequest("9.50", 2))
	if err != nil {
		t.Fatalf("expected success despite announce failure, got %v", err)
	}
	if _, calls := pub.snapshot(); calls != 1 {
		t.Fatalf("expected one announce attempt, got %d", calls)
	}

	got, err := uc.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.ID != order.ID {
		t.Fatalf("expected %s, got %s", order.ID, got.ID)
	}
}

func TestPlaceOrder_PersistBeforeAnnounce(t *testing.T) {
	pub := &recordingPublisher{}
	orders := &orderingStore{Store: store.NewMemory(), pub: pub}
	uc := newTestUseCase(t, &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Match}}, orders, pub)

	if _, err := uc.PlaceOrder(context.Background(), pizzaRequest("9.50", 1)); err != nil {
		t.Fatalf("place order: %v", err)
	}
	if orders.publishedBefore != 0 {
		t.Fatalf("announcement happened before the store write")
	}
	if _, calls := pub.snapshot(); calls != 1 {
		t.Fatalf("expected one announcement, got %d", calls)
	}
}

func TestPlaceOrder_CancelledCallerStillCommits(t *testing.T) {
	v := &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Match}}
	orders := store.NewMemory()
	pub := &cancelAwarePublisher{}
	uc := newTestUseCase(t, v, orders, pub)

	ctx, cancel := context.WithCancel(context.Background())
	v.onValidate = cancel

	order, err := uc.PlaceOrder(ctx, pizzaRequest("9.50", 1))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if pub.sawCancelled {
		t.Fatal("announce ran with a cancelled context")
	}
	if _, err := orders.FindByID(context.Background(), order.ID); err != nil {
		t.Fatalf("order not committed: %v", err)
	}
}

func TestPlaceOrder_ConcurrentPlacementsAreIndependent(t *testing.T) {
	srv := catalogServer(t, `{"menu":[{"name":"Pizza","price":9.50}]}`)
	orders := store.NewMemory()
	pub := &recordingPublisher{}
	uc := newTestUseCase(t, catalogValidator(srv.URL), orders, pub)

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			o, err := uc.PlaceOrder(context.Background(), pizzaRequest("9.50", qty))
			if err != nil {
				t.Errorf("place order: %v", err)
				return
			}
			ids <- o.ID
		}(i + 1)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate order id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d orders, got %d", n, len(seen))
	}
	if _, calls := pub.snapshot(); calls != n {
		t.Fatalf("expected %d announcements, got %d", n, calls)
	}
}

func TestListOwnerOrders_NewestFirst(t *testing.T) {
	orders := store.NewMemory()
	uc := newTestUseCase(t, &countingValidator{verdict: catalog.Verdict{Outcome: catalog.Match}}, orders, &recordingPublisher{})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var placed []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		uc.now = func() time.Time { return at }
		o, err := uc.PlaceOrder(context.Background(), pizzaRequest("9.50", 1))
		if err != nil {
			t.Fatalf("place order: %v", err)
		}
		placed = append(placed, o.ID)
	}

	list, err := uc.ListOwnerOrders(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != placed[2] || list[2].ID != placed[0] {
		t.Fatalf("expected newest first, got %v", list)
	}
}
