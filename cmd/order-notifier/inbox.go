package main

import (
	"slices"
	"sync"
	"time"

	"food-orders/internal/models"
)

type notificationPayload struct {
	Title      string             `json:"title"`
	Message    models.PlacedEvent `json:"message"`
	RoutingKey string             `json:"routingKey"`
}

type notification struct {
	OwnerID   string              `json:"ownerId"`
	Payload   notificationPayload `json:"payload"`
	SentAt    time.Time           `json:"sentAt"`
	Delivered bool                `json:"delivered"`
	Transport string              `json:"transport"`
}

// inbox keeps every delivered notification in memory, grouped by owner.
type inbox struct {
	mu      sync.RWMutex
	owners  []string
	byOwner map[string][]notification
}

func newInbox() *inbox {
	return &inbox{byOwner: make(map[string][]notification)}
}

func (b *inbox) add(n notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.byOwner[n.OwnerID]; !seen {
		b.owners = append(b.owners, n.OwnerID)
	}
	b.byOwner[n.OwnerID] = append(b.byOwner[n.OwnerID], n)
}

// forOwner returns a copy of the owner's notifications, oldest first.
func (b *inbox) forOwner(ownerID string) []notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.byOwner[ownerID])
}

// all flattens the inbox, owners in first-seen order.
func (b *inbox) all() []notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []notification{}
	for _, owner := range b.owners {
		out = append(out, b.byOwner[owner]...)
	}
	return out
}
