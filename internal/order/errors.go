package order

import (
	"errors"

	"food-orders/internal/models"
)

var (
	// ErrInvalidRequest marks structural failures; no external call was made.
	ErrInvalidRequest = models.ErrInvalidRequest
	// ErrPriceMismatch means the catalog disagreed with the request.
	ErrPriceMismatch = errors.New("price mismatch")
	// ErrCatalogUnavailable means the catalog could not give an answer.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrStorage            = errors.New("order storage failed")
	ErrOrderNotFound      = errors.New("order not found")
)
