package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"food-orders/internal/models"
)

// Memory keeps orders in process. Used when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]models.Order
	byOwner map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]models.Order),
		byOwner: make(map[string][]string),
	}
}

func (m *Memory) Save(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	m.byID[order.ID] = cloneOrder(*order)
	m.byOwner[order.OwnerID] = append(m.byOwner[order.OwnerID], order.ID)
	return nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *Memory) FindByOwner(_ context.Context, ownerID string) ([]models.Order, error) {
	m.mu.RLock()
	ids := m.byOwner[ownerID]
	out := make([]models.Order, 0, len(ids))
	// newest insert first so equal timestamps keep a stable, recent-first order
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, cloneOrder(m.byID[ids[i]]))
	}
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
