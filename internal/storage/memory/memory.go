// Package memory is an in-process implementation of the storage contracts.
// It backs the memory storage driver and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/storage"
)

// Fault points accepted by InjectFault.
const (
	OpCreateOrder     = "create_order"
	OpInsertLineItems = "insert_line_items"
	OpUpdateTotals    = "update_totals"
	OpInsertPayment   = "insert_payment"
	OpUpdateStatus    = "update_status"
	OpRead            = "read"
)

type Store struct {
	mu       sync.RWMutex
	orders   map[uuid.UUID]*models.Order
	items    map[uuid.UUID][]models.OrderLineItem
	payments map[uuid.UUID][]models.Payment
	history  map[uuid.UUID][]models.StatusLogEntry
	counters map[string]int64
	menu     map[uuid.UUID]*models.MenuItem
	mods     map[uuid.UUID]models.Modifier
	faults   map[string]error

	// per-order locks serialize writers of the same order only
	lockMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
}

var (
	_ storage.OrderRepository = (*Store)(nil)
	_ storage.KitchenStore    = (*Store)(nil)
	_ storage.MenuCatalog     = (*Store)(nil)
)

func New() *Store {
	return &Store{
		orders:   make(map[uuid.UUID]*models.Order),
		items:    make(map[uuid.UUID][]models.OrderLineItem),
		payments: make(map[uuid.UUID][]models.Payment),
		history:  make(map[uuid.UUID][]models.StatusLogEntry),
		counters: make(map[string]int64),
		menu:     make(map[uuid.UUID]*models.MenuItem),
		mods:     make(map[uuid.UUID]models.Modifier),
		faults:   make(map[string]error),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// InjectFault makes the next call at op fail with err.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) takeFault(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.faults[op]
	delete(s.faults, op)
	return err
}

func (s *Store) orderLock(id uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order, changedBy string) error {
	if err := s.takeFault(OpCreateOrder); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[order.TenantID]++
	order.OrderNumber = s.counters[order.TenantID]
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	stored := *order
	s.orders[order.ID] = &stored
	s.history[order.ID] = append(s.history[order.ID], logEntry(order.Status, changedBy, "order created", order.CreatedAt))
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := s.takeFault(OpRead); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	out := *o
	return &out, nil
}

func (s *Store) GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return &models.OrderDetails{
		Order:    *order,
		Items:    copyItems(s.items[id]),
		Payments: append([]models.Payment(nil), s.payments[id]...),
	}, nil
}

func (s *Store) StatusHistory(ctx context.Context, id uuid.UUID) ([]models.StatusLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.orders[id]; !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return append([]models.StatusLogEntry(nil), s.history[id]...), nil
}

func (s *Store) WithOrder(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx storage.OrderTx) error) error {
	l := s.orderLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	o, ok := s.orders[id]
	var snapshot models.Order
	if ok {
		snapshot = *o
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}

	tx := &orderTx{store: s, order: &snapshot}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	committed := *tx.order
	s.orders[id] = &committed
	s.items[id] = append(s.items[id], tx.items...)
	s.payments[id] = append(s.payments[id], tx.payments...)
	s.history[id] = append(s.history[id], tx.history...)
	return nil
}

func (s *Store) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, changedBy, notes string) (*models.Order, error) {
	if err := s.takeFault(OpUpdateStatus); err != nil {
		return nil, err
	}

	l := s.orderLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	if o.Status != from {
		return nil, storage.ErrStatusChanged
	}

	now := time.Now().UTC()
	o.Status = to
	o.UpdatedAt = now
	s.history[id] = append(s.history[id], logEntry(to, changedBy, notes, now))

	out := *o
	return &out, nil
}

func (s *Store) OrdersByStatus(ctx context.Context, statuses []models.OrderStatus, since time.Time) ([]models.OrderWithItems, error) {
	if err := s.takeFault(OpRead); err != nil {
		return nil, err
	}

	want := make(map[models.OrderStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.OrderWithItems, 0)
	for id, o := range s.orders {
		if !want[o.Status] || o.CreatedAt.Before(since) {
			continue
		}
		result = append(result, models.OrderWithItems{Order: *o, Items: copyItems(s.items[id])})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].OrderNumber < result[j].OrderNumber
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.takeFault(OpRead)
}

// AddMenuItem registers or replaces a menu item and its sizes.
func (s *Store) AddMenuItem(item models.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.Sizes = append([]models.ItemSize(nil), item.Sizes...)
	s.menu[item.ID] = &item
}

// AddModifier registers or replaces a modifier.
func (s *Store) AddModifier(mod models.Modifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mods[mod.ID] = mod
}

func (s *Store) MenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.menu[id]
	if !ok {
		return nil, fmt.Errorf("menu item %s: %w", id, models.ErrNotFound)
	}
	out := *item
	out.Sizes = append([]models.ItemSize(nil), item.Sizes...)
	return &out, nil
}

func (s *Store) Modifiers(ctx context.Context, ids []uuid.UUID) ([]models.Modifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Modifier, 0, len(ids))
	for _, id := range ids {
		mod, ok := s.mods[id]
		if !ok {
			return nil, fmt.Errorf("modifier %s: %w", id, models.ErrNotFound)
		}
		out = append(out, mod)
	}
	return out, nil
}

type orderTx struct {
	store    *Store
	order    *models.Order
	items    []models.OrderLineItem
	payments []models.Payment
	history  []models.StatusLogEntry
}

func (tx *orderTx) Order() *models.Order {
	return tx.order
}

func (tx *orderTx) LineItems(ctx context.Context) ([]models.OrderLineItem, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	committed := copyItems(tx.store.items[tx.order.ID])
	return append(committed, copyItems(tx.items)...), nil
}

func (tx *orderTx) Payments(ctx context.Context) ([]models.Payment, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	committed := append([]models.Payment(nil), tx.store.payments[tx.order.ID]...)
	return append(committed, tx.payments...), nil
}

func (tx *orderTx) InsertLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if err := tx.store.takeFault(OpInsertLineItems); err != nil {
		return err
	}
	tx.items = append(tx.items, copyItems(items)...)
	return nil
}

func (tx *orderTx) UpdateTotals(ctx context.Context, subtotal, serviceCharge, total decimal.Decimal) error {
	if err := tx.store.takeFault(OpUpdateTotals); err != nil {
		return err
	}
	tx.order.Subtotal = subtotal
	tx.order.ServiceCharge = serviceCharge
	tx.order.Total = total
	tx.order.UpdatedAt = time.Now().UTC()
	return nil
}

func (tx *orderTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if err := tx.store.takeFault(OpInsertPayment); err != nil {
		return err
	}
	tx.payments = append(tx.payments, *payment)
	return nil
}

func (tx *orderTx) UpdateStatus(ctx context.Context, next models.OrderStatus, changedBy, notes string) error {
	if err := tx.store.takeFault(OpUpdateStatus); err != nil {
		return err
	}
	now := time.Now().UTC()
	tx.order.Status = next
	tx.order.UpdatedAt = now
	tx.history = append(tx.history, logEntry(next, changedBy, notes, now))
	return nil
}

func logEntry(status models.OrderStatus, changedBy, notes string, at time.Time) models.StatusLogEntry {
	entry := models.StatusLogEntry{Status: status, ChangedBy: changedBy, ChangedAt: at}
	if notes != "" {
		entry.Notes = &notes
	}
	return entry
}

func copyItems(items []models.OrderLineItem) []models.OrderLineItem {
	out := make([]models.OrderLineItem, len(items))
	for i, item := range items {
		item.Modifiers = append([]models.LineModifier(nil), item.Modifiers...)
		out[i] = item
	}
	return out
}
