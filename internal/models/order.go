package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType represents the type of an order
type OrderType string

const (
	DineIn   OrderType = "dine-in"
	Takeaway OrderType = "takeaway"
	Delivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case DineIn, Takeaway, Delivery:
		return true
	}
	return false
}

// OrderSource is the channel an order arrived through
type OrderSource string

const (
	SourcePOS     OrderSource = "pos"
	SourceTalabat OrderSource = "talabat"
	SourceSnoonu  OrderSource = "snoonu"
)

func (s OrderSource) Valid() bool {
	switch s {
	case SourcePOS, SourceTalabat, SourceSnoonu:
		return true
	}
	return false
}

// PaymentMethod represents how a payment was tendered
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodCredit PaymentMethod = "credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodCredit:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Order is the aggregate root for one customer order. Subtotal, ServiceCharge
// and Total are derived from the committed line items.
type Order struct {
	ID                uuid.UUID
	TenantID          string
	OrderNumber       int64
	Type              OrderType
	Source            OrderSource
	TableNumber       *int
	CustomerName      *string
	Subtotal          decimal.Decimal
	ServiceChargeRate decimal.Decimal
	ServiceCharge     decimal.Decimal
	Total             decimal.Decimal
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LineModifier is the priced snapshot of a modifier on a line item.
type LineModifier struct {
	ModifierID uuid.UUID
	Name       LocalizedText
	Price      decimal.Decimal
}

// OrderLineItem is one priced entry on an order. Line items are append-only.
type OrderLineItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	ItemName   LocalizedText
	SizeID     *uuid.UUID
	SizeName   *LocalizedText
	Modifiers  []LineModifier
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Method    PaymentMethod
	Amount    decimal.Decimal
	Status    PaymentStatus
	CreatedAt time.Time
}

// OrderWithItems is the denormalized read model served to the kitchen.
type OrderWithItems struct {
	Order
	Items []OrderLineItem
}

// OrderDetails is an order with everything it owns.
type OrderDetails struct {
	Order
	Items    []OrderLineItem
	Payments []Payment
}

// StatusLogEntry is one row of an order's status history
type StatusLogEntry struct {
	Status    OrderStatus
	ChangedBy string
	ChangedAt time.Time
	Notes     *string
}
