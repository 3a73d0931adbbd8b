package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"food-orders/internal/models"
	"food-orders/internal/telemetry"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var owners = []string{"alice", "bob", "carol", "dave", "eve"}

type menuEntry struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:  "load-gen",
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:     zapcore.InfoLevel,
	})
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer tel.Shutdown(context.Background())
	log := tel.Logger

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down load-gen...")
		cancel()
	}()

	interval := 2 * time.Second
	if v := os.Getenv("INTERVAL_MS"); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil {
			interval = ms
		}
	}

	orderAPI := getEnv("ORDER_API_ADDR", "http://localhost:8080")
	catalogURL := strings.TrimRight(getEnv("CATALOG_BASE_URL", "http://localhost:3001"), "/")
	restaurants := strings.Split(getEnv("RESTAURANT_IDS", "r1"), ",")
	mismatchRate := 0.1

	client := &http.Client{Timeout: 5 * time.Second}

	log.Info("load-gen started",
		zap.String("target", orderAPI),
		zap.String("catalog", catalogURL),
		zap.Strings("restaurants", restaurants),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			restaurantID := strings.TrimSpace(restaurants[rand.IntN(len(restaurants))])
			menu, err := fetchMenu(ctx, client, catalogURL, restaurantID)
			if err != nil {
				log.Warn("menu fetch failed", zap.String("restaurant_id", restaurantID), zap.Error(err))
				continue
			}
			req := buildRequest(owners[rand.IntN(len(owners))], restaurantID, menu, rand.Float64() < mismatchRate)
			placeOrder(ctx, client, orderAPI, req, log)
		}
	}
}

func fetchMenu(ctx context.Context, client *http.Client, catalogURL, restaurantID string) ([]menuEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL+"/api/restaurants/"+restaurantID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	var body struct {
		Menu []menuEntry `json:"menu"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Menu) == 0 {
		return nil, fmt.Errorf("restaurant %s has an empty menu", restaurantID)
	}
	return body.Menu, nil
}

// buildRequest picks up to three menu entries. With skew set, the first
// price is nudged by a cent so the order is rejected.
func buildRequest(ownerID, restaurantID string, menu []menuEntry, skew bool) models.OrderRequest {
	n := 1 + rand.IntN(min(3, len(menu)))
	picked := rand.Perm(len(menu))[:n]

	req := models.OrderRequest{OwnerID: ownerID, RestaurantID: restaurantID}
	for _, i := range picked {
		req.Items = append(req.Items, models.LineItem{
			Name:      menu[i].Name,
			UnitPrice: menu[i].Price,
			Quantity:  1 + rand.IntN(3),
		})
	}
	if skew {
		req.Items[0].UnitPrice = req.Items[0].UnitPrice.Add(decimal.New(1, -2))
	}
	return req
}

func placeOrder(ctx context.Context, client *http.Client, addr string, order models.OrderRequest, log *zap.Logger) {
	body, _ := json.Marshal(order)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/order", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	status := "ok"
	if resp.StatusCode == http.StatusBadRequest {
		status = "rejected"
	} else if resp.StatusCode >= 500 {
		status = "error"
	}

	log.Info("order sent",
		zap.String("owner_id", order.OwnerID),
		zap.String("restaurant_id", order.RestaurantID),
		zap.Stringer("total", order.ComputedTotal()),
		zap.Int("items", len(order.Items)),
		zap.String("status", status),
		zap.Int("http_status", resp.StatusCode),
	)
}
