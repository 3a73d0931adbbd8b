// Package store persists placed orders. Orders are append-only: there is no
// update or delete.
package store

import (
	"context"
	"errors"

	"food-orders/internal/models"
)

var ErrNotFound = errors.New("order not found")

// Store must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	// FindByOwner returns the owner's orders, newest first.
	FindByOwner(ctx context.Context, ownerID string) ([]models.Order, error)
}
