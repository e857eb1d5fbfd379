// Package kitchen serves the kitchen read projection and hosts the polling
// display client that consumes it.
package kitchen

import (
	"context"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/storage"
)

// DefaultMaxAgeHours is the lookback window when the caller gives none.
const DefaultMaxAgeHours = 4

var (
	kitchenStatuses = []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing}
	readyStatuses   = []models.OrderStatus{models.StatusReady}
)

// Feed is a pure read over the order store. It keeps no state between calls.
type Feed struct {
	store         storage.KitchenStore
	logger        *logger.Logger
	defaultMaxAge int
	now           func() time.Time
}

// NewFeed creates a kitchen feed. defaultMaxAgeHours <= 0 falls back to DefaultMaxAgeHours.
func NewFeed(store storage.KitchenStore, log *logger.Logger, defaultMaxAgeHours int) *Feed {
	if defaultMaxAgeHours <= 0 {
		defaultMaxAgeHours = DefaultMaxAgeHours
	}
	return &Feed{
		store:         store,
		logger:        log,
		defaultMaxAge: defaultMaxAgeHours,
		now:           time.Now,
	}
}

// GetKitchenOrders returns confirmed and preparing orders created within the
// last maxAgeHours, oldest first.
func (f *Feed) GetKitchenOrders(ctx context.Context, maxAgeHours int) ([]models.OrderWithItems, error) {
	return f.query(ctx, "kitchen_orders", kitchenStatuses, maxAgeHours)
}

// GetReadyOrders returns orders awaiting pickup or serving, oldest first.
func (f *Feed) GetReadyOrders(ctx context.Context, maxAgeHours int) ([]models.OrderWithItems, error) {
	return f.query(ctx, "ready_orders", readyStatuses, maxAgeHours)
}

func (f *Feed) query(ctx context.Context, op string, statuses []models.OrderStatus, maxAgeHours int) ([]models.OrderWithItems, error) {
	if maxAgeHours <= 0 {
		maxAgeHours = f.defaultMaxAge
	}
	since := f.now().Add(-time.Duration(maxAgeHours) * time.Hour)

	orders, err := f.store.OrdersByStatus(ctx, statuses, since)
	if err != nil {
		return nil, &models.RepositoryError{Op: op, Err: err}
	}

	f.logger.Debug(op, "Kitchen feed queried", logger.RequestID(ctx), map[string]interface{}{
		"count":         len(orders),
		"max_age_hours": maxAgeHours,
	})
	return orders, nil
}
