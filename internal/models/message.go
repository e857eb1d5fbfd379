package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusUpdateMessage is published on every successful status transition
type StatusUpdateMessage struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	TenantID    string    `json:"tenant_id"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	ChangedBy   string    `json:"changed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewStatusUpdateMessage creates a StatusUpdateMessage for an order status change
func NewStatusUpdateMessage(order *Order, oldStatus OrderStatus, changedBy string) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TenantID:    order.TenantID,
		OldStatus:   string(oldStatus),
		NewStatus:   string(order.Status),
		ChangedBy:   changedBy,
		Timestamp:   time.Now().UTC(),
	}
}
