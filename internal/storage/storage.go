// Package storage defines the persistence contracts the fulfillment service
// and kitchen feed depend on. Implementations live in the postgres and memory
// subpackages and are chosen at process start.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
)

// ErrStatusChanged is returned by a status compare-and-swap whose expected
// "from" status no longer matches the stored one.
var ErrStatusChanged = errors.New("order status changed concurrently")

// OrderTx is a unit of work scoped to one locked order. Writes become visible
// only if the WithOrder callback returns nil.
type OrderTx interface {
	// Order is the locked snapshot; UpdateTotals and UpdateStatus keep it current.
	Order() *models.Order
	LineItems(ctx context.Context) ([]models.OrderLineItem, error)
	Payments(ctx context.Context) ([]models.Payment, error)
	InsertLineItems(ctx context.Context, items []models.OrderLineItem) error
	UpdateTotals(ctx context.Context, subtotal, serviceCharge, total decimal.Decimal) error
	InsertPayment(ctx context.Context, payment *models.Payment) error
	// UpdateStatus moves the order from its snapshot status to next and
	// appends a status log entry. Returns ErrStatusChanged on a lost race.
	UpdateStatus(ctx context.Context, next models.OrderStatus, changedBy, notes string) error
}

// OrderRepository is the durable store of orders, line items, payments and
// status history.
type OrderRepository interface {
	// CreateOrder assigns the next per-tenant order number atomically and
	// stores the order with its initial status log entry.
	CreateOrder(ctx context.Context, order *models.Order, changedBy string) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error)
	StatusHistory(ctx context.Context, id uuid.UUID) ([]models.StatusLogEntry, error)
	WithOrder(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx OrderTx) error) error
	// CompareAndSwapStatus applies from -> to only if the stored status is
	// still from. Returns ErrStatusChanged otherwise.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, changedBy, notes string) (*models.Order, error)
	Ping(ctx context.Context) error
}

// KitchenStore is the read side used by the kitchen feed.
type KitchenStore interface {
	// OrdersByStatus returns orders in any of statuses created at or after
	// since, oldest first, with their line items.
	OrdersByStatus(ctx context.Context, statuses []models.OrderStatus, since time.Time) ([]models.OrderWithItems, error)
}

// MenuCatalog is the read-only menu lookup used for server-side pricing.
type MenuCatalog interface {
	MenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	// Modifiers returns modifiers in the order of ids; any missing id is ErrNotFound.
	Modifiers(ctx context.Context, ids []uuid.UUID) ([]models.Modifier, error)
}
