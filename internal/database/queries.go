package database

const CreateMigrationsTableSQL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id SERIAL PRIMARY KEY,
		migration_name VARCHAR(255) NOT NULL UNIQUE,
		applied_at TIMESTAMPTZ DEFAULT NOW()
	)`

// Order queries
const (
	orderColumns = `id, tenant_id, order_number, type, source, table_number, customer_name,
		subtotal, service_charge_rate, service_charge, total, status, created_at, updated_at`

	// NextOrderNumberSQL increments the tenant counter atomically; concurrent
	// callers queue on the counter row.
	NextOrderNumberSQL = `
		INSERT INTO order_counters (tenant_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET last_number = order_counters.last_number + 1
		RETURNING last_number`

	InsertOrderSQL = `
		INSERT INTO orders (id, tenant_id, order_number, type, source, table_number, customer_name,
			subtotal, service_charge_rate, service_charge, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	GetOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	GetOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	UpdateOrderTotalsSQL = `
		UPDATE orders SET subtotal = $1, service_charge = $2, total = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	// CompareAndSwapStatusSQL only matches while the stored status is still $3
	CompareAndSwapStatusSQL = `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + orderColumns

	OrderExistsSQL = `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`

	ListOrdersByStatusSQL = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ANY($1) AND created_at >= $2
		ORDER BY created_at ASC, order_number ASC`
)

// Line item queries
const (
	orderItemColumns = `id, order_id, item_id, item_name, size_id, size_name, modifiers,
		quantity, unit_price, total_price, created_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (id, order_id, item_id, item_name, size_id, size_name, modifiers,
			quantity, unit_price, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ListOrderItemsSQL = `
		SELECT ` + orderItemColumns + `
		FROM order_items WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`

	ListOrderItemsForOrdersSQL = `
		SELECT ` + orderItemColumns + `
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY created_at ASC, id ASC`
)

// Payment queries
const (
	InsertPaymentSQL = `
		INSERT INTO payments (id, order_id, method, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ListPaymentsSQL = `
		SELECT id, order_id, method, amount, status, created_at
		FROM payments WHERE order_id = $1
		ORDER BY created_at ASC`
)

// Status log queries
const (
	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC`
)

// Menu queries
const (
	GetMenuItemSQL = `
		SELECT id, name, base_price, has_sizes, active
		FROM menu_items WHERE id = $1`

	ListItemSizesSQL = `
		SELECT id, item_id, name, price
		FROM item_sizes WHERE item_id = $1
		ORDER BY price ASC`

	ListModifiersByIDsSQL = `
		SELECT id, item_id, name, price, active
		FROM modifiers WHERE id = ANY($1)`
)
