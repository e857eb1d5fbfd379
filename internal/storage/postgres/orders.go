// Package postgres implements the storage contracts on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/storage"
)

// queryer is satisfied by *database.DB, *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Store struct {
	db *database.DB
}

var (
	_ storage.OrderRepository = (*Store)(nil)
	_ storage.KitchenStore    = (*Store)(nil)
	_ storage.MenuCatalog     = (*Store)(nil)
)

func New(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order, changedBy string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, database.NextOrderNumberSQL, order.TenantID).Scan(&order.OrderNumber); err != nil {
		return fmt.Errorf("failed to assign order number: %w", err)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	_, err = tx.Exec(ctx, database.InsertOrderSQL,
		order.ID,
		order.TenantID,
		order.OrderNumber,
		string(order.Type),
		string(order.Source),
		order.TableNumber,
		order.CustomerName,
		database.Numeric(order.Subtotal),
		database.Numeric(order.ServiceChargeRate),
		database.Numeric(order.ServiceCharge),
		database.Numeric(order.Total),
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := insertStatusLog(ctx, tx, order.ID, order.Status, changedBy, "order created"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRow(ctx, database.GetOrderSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return order, err
}

func (s *Store) GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := listLineItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	payments, err := listPayments(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	return &models.OrderDetails{Order: *order, Items: items, Payments: payments}, nil
}

func (s *Store) StatusHistory(ctx context.Context, id uuid.UUID) ([]models.StatusLogEntry, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, database.OrderExistsSQL, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check order existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}

	rows, err := s.db.Query(ctx, database.GetOrderStatusHistorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var history []models.StatusLogEntry
	for rows.Next() {
		var entry models.StatusLogEntry
		var status string
		if err := rows.Scan(&status, &entry.ChangedBy, &entry.ChangedAt, &entry.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan order history row: %w", err)
		}
		entry.Status = models.OrderStatus(status)
		history = append(history, entry)
	}
	return history, rows.Err()
}

// WithOrder locks the order row with SELECT ... FOR UPDATE for the duration of fn.
func (s *Store) WithOrder(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx storage.OrderTx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, database.GetOrderForUpdateSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := fn(ctx, &orderTx{tx: tx, order: order}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, changedBy, notes string) (*models.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, database.CompareAndSwapStatusSQL, string(to), id, string(from)))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, database.OrderExistsSQL, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
		}
		return nil, storage.ErrStatusChanged
	}
	if err != nil {
		return nil, err
	}

	if err := insertStatusLog(ctx, tx, id, to, changedBy, notes); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, nil
}

func (s *Store) OrdersByStatus(ctx context.Context, statuses []models.OrderStatus, since time.Time) ([]models.OrderWithItems, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := s.db.Query(ctx, database.ListOrdersByStatusSQL, names, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	result := make([]models.OrderWithItems, 0)
	index := make(map[uuid.UUID]int)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[order.ID] = len(result)
		ids = append(ids, order.ID)
		result = append(result, models.OrderWithItems{Order: *order, Items: []models.OrderLineItem{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if len(ids) == 0 {
		return result, nil
	}

	itemRows, err := s.db.Query(ctx, database.ListOrderItemsForOrdersSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanLineItem(itemRows)
		if err != nil {
			return nil, err
		}
		i := index[item.OrderID]
		result[i].Items = append(result[i].Items, *item)
	}
	return result, itemRows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type orderTx struct {
	tx    pgx.Tx
	order *models.Order
}

func (t *orderTx) Order() *models.Order {
	return t.order
}

func (t *orderTx) LineItems(ctx context.Context) ([]models.OrderLineItem, error) {
	return listLineItems(ctx, t.tx, t.order.ID)
}

func (t *orderTx) Payments(ctx context.Context) ([]models.Payment, error) {
	return listPayments(ctx, t.tx, t.order.ID)
}

func (t *orderTx) InsertLineItems(ctx context.Context, items []models.OrderLineItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		mods, err := json.Marshal(toModifierRows(item.Modifiers))
		if err != nil {
			return fmt.Errorf("failed to encode modifiers: %w", err)
		}
		batch.Queue(database.InsertOrderItemSQL,
			item.ID,
			item.OrderID,
			item.ItemID,
			item.ItemName,
			item.SizeID,
			item.SizeName,
			mods,
			item.Quantity,
			database.Numeric(item.UnitPrice),
			database.Numeric(item.TotalPrice),
			item.CreatedAt,
		)
	}

	results := t.tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return results.Close()
}

func (t *orderTx) UpdateTotals(ctx context.Context, subtotal, serviceCharge, total decimal.Decimal) error {
	var updatedAt time.Time
	err := t.tx.QueryRow(ctx, database.UpdateOrderTotalsSQL,
		database.Numeric(subtotal),
		database.Numeric(serviceCharge),
		database.Numeric(total),
		t.order.ID,
	).Scan(&updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order totals: %w", err)
	}

	t.order.Subtotal = subtotal
	t.order.ServiceCharge = serviceCharge
	t.order.Total = total
	t.order.UpdatedAt = updatedAt
	return nil
}

func (t *orderTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	_, err := t.tx.Exec(ctx, database.InsertPaymentSQL,
		payment.ID,
		payment.OrderID,
		string(payment.Method),
		database.Numeric(payment.Amount),
		string(payment.Status),
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (t *orderTx) UpdateStatus(ctx context.Context, next models.OrderStatus, changedBy, notes string) error {
	order, err := scanOrder(t.tx.QueryRow(ctx, database.CompareAndSwapStatusSQL, string(next), t.order.ID, string(t.order.Status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrStatusChanged
	}
	if err != nil {
		return err
	}

	if err := insertStatusLog(ctx, t.tx, t.order.ID, next, changedBy, notes); err != nil {
		return err
	}

	*t.order = *order
	return nil
}

func insertStatusLog(ctx context.Context, q queryer, orderID uuid.UUID, status models.OrderStatus, changedBy, notes string) error {
	var notesArg *string
	if notes != "" {
		notesArg = &notes
	}
	if _, err := q.Exec(ctx, database.InsertOrderStatusLogSQL, orderID, string(status), changedBy, notesArg); err != nil {
		return fmt.Errorf("failed to insert status log: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o                             models.Order
		orderType, source, status     string
		subtotal, rate, charge, total pgtype.Numeric
	)

	err := row.Scan(
		&o.ID,
		&o.TenantID,
		&o.OrderNumber,
		&orderType,
		&source,
		&o.TableNumber,
		&o.CustomerName,
		&subtotal,
		&rate,
		&charge,
		&total,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	o.Type = models.OrderType(orderType)
	o.Source = models.OrderSource(source)
	o.Status = models.OrderStatus(status)

	for _, f := range []struct {
		dst *decimal.Decimal
		src pgtype.Numeric
	}{
		{&o.Subtotal, subtotal},
		{&o.ServiceChargeRate, rate},
		{&o.ServiceCharge, charge},
		{&o.Total, total},
	} {
		if *f.dst, err = database.Decimal(f.src); err != nil {
			return nil, fmt.Errorf("failed to decode order amount: %w", err)
		}
	}

	return &o, nil
}

func listLineItems(ctx context.Context, q queryer, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	rows, err := q.Query(ctx, database.ListOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make([]models.OrderLineItem, 0)
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanLineItem(row pgx.Row) (*models.OrderLineItem, error) {
	var (
		item                     models.OrderLineItem
		itemName, sizeName, mods []byte
		unitPrice, totalPrice    pgtype.Numeric
	)

	err := row.Scan(
		&item.ID,
		&item.OrderID,
		&item.ItemID,
		&itemName,
		&item.SizeID,
		&sizeName,
		&mods,
		&item.Quantity,
		&unitPrice,
		&totalPrice,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order item: %w", err)
	}

	if err := json.Unmarshal(itemName, &item.ItemName); err != nil {
		return nil, fmt.Errorf("failed to decode item name: %w", err)
	}
	if sizeName != nil {
		var name models.LocalizedText
		if err := json.Unmarshal(sizeName, &name); err != nil {
			return nil, fmt.Errorf("failed to decode size name: %w", err)
		}
		item.SizeName = &name
	}

	var modRows []modifierRow
	if err := json.Unmarshal(mods, &modRows); err != nil {
		return nil, fmt.Errorf("failed to decode modifiers: %w", err)
	}
	if item.Modifiers, err = fromModifierRows(modRows); err != nil {
		return nil, err
	}

	if item.UnitPrice, err = database.Decimal(unitPrice); err != nil {
		return nil, err
	}
	if item.TotalPrice, err = database.Decimal(totalPrice); err != nil {
		return nil, err
	}
	return &item, nil
}

func listPayments(ctx context.Context, q queryer, orderID uuid.UUID) ([]models.Payment, error) {
	rows, err := q.Query(ctx, database.ListPaymentsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var (
			p              models.Payment
			method, status string
			amount         pgtype.Numeric
		)
		if err := rows.Scan(&p.ID, &p.OrderID, &method, &amount, &status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Method = models.PaymentMethod(method)
		p.Status = models.PaymentStatus(status)
		if p.Amount, err = database.Decimal(amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// modifierRow is the JSONB shape of a line modifier.
type modifierRow struct {
	ModifierID uuid.UUID            `json:"modifier_id"`
	Name       models.LocalizedText `json:"name"`
	Price      string               `json:"price"`
}

func toModifierRows(mods []models.LineModifier) []modifierRow {
	rows := make([]modifierRow, len(mods))
	for i, m := range mods {
		rows[i] = modifierRow{ModifierID: m.ModifierID, Name: m.Name, Price: m.Price.String()}
	}
	return rows
}

func fromModifierRows(rows []modifierRow) ([]models.LineModifier, error) {
	mods := make([]models.LineModifier, len(rows))
	for i, r := range rows {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to decode modifier price: %w", err)
		}
		mods[i] = models.LineModifier{ModifierID: r.ModifierID, Name: r.Name, Price: price}
	}
	return mods, nil
}
