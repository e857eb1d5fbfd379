package order

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/pricing"
)

const (
	maxCustomerNameLen = 100
	maxLinesPerRequest = 50
	maxQuantity        = 99
	maxModifiersPerRow = 10
)

func validateCreateOrder(in *CreateOrderInput) error {
	if err := validateOrderType(in.Type); err != nil {
		return err
	}

	if !in.Source.Valid() {
		return models.NewValidationError("source", "invalid order source %q", in.Source)
	}

	if err := validateConditionalFields(in); err != nil {
		return err
	}

	return validateCustomerName(in)
}

func validateOrderType(orderType models.OrderType) error {
	if orderType == "" {
		return models.NewValidationError("type", "order type is required")
	}
	if !orderType.Valid() {
		return models.NewValidationError("type", "invalid order type %q", orderType)
	}
	return nil
}

// validateConditionalFields checks the fields whose presence depends on the order type.
func validateConditionalFields(in *CreateOrderInput) error {
	switch in.Type {
	case models.DineIn:
		if in.TableNumber == nil {
			return models.NewValidationError("tableNumber", "table number is required for dine-in orders")
		}
		if *in.TableNumber <= 0 {
			return models.NewValidationError("tableNumber", "table number must be positive")
		}
	default:
		if in.TableNumber != nil {
			return models.NewValidationError("tableNumber", "table number is only allowed for dine-in orders")
		}
	}
	return nil
}

func validateCustomerName(in *CreateOrderInput) error {
	if in.CustomerName == nil {
		return nil
	}

	name := strings.TrimSpace(*in.CustomerName)
	if name == "" {
		in.CustomerName = nil
		return nil
	}
	if len(name) > maxCustomerNameLen {
		return models.NewValidationError("customerName", "customer name must be at most %d characters", maxCustomerNameLen)
	}
	in.CustomerName = &name
	return nil
}

func validateSelections(selections []models.MenuSelection) error {
	if len(selections) == 0 {
		return models.NewValidationError("items", "at least one item is required")
	}
	if len(selections) > maxLinesPerRequest {
		return models.NewValidationError("items", "a maximum of %d items is allowed per request", maxLinesPerRequest)
	}

	for i, sel := range selections {
		if err := validateSelection(sel, i); err != nil {
			return err
		}
	}
	return nil
}

func validateSelection(sel models.MenuSelection, index int) error {
	if sel.ItemID == uuid.Nil {
		return models.NewValidationError(lineField(index, "item_id"), "item id is required")
	}
	if sel.Quantity <= 0 {
		return models.NewValidationError(lineField(index, "quantity"), "quantity must be a positive integer, got %d", sel.Quantity)
	}
	if sel.Quantity > maxQuantity {
		return models.NewValidationError(lineField(index, "quantity"), "quantity must be at most %d", maxQuantity)
	}
	if len(sel.ModifierIDs) > maxModifiersPerRow {
		return models.NewValidationError(lineField(index, "modifier_ids"), "a maximum of %d modifiers is allowed", maxModifiersPerRow)
	}
	return nil
}

func validatePayment(in *PaymentInput) error {
	if !in.Method.Valid() {
		return models.NewValidationError("method", "invalid payment method %q", in.Method)
	}

	switch in.Status {
	case models.PaymentCompleted, models.PaymentFailed:
	case models.PaymentPending, models.PaymentRefunded:
		return models.NewValidationError("status", "%s payments cannot be recorded against an open order", in.Status)
	default:
		return models.NewValidationError("status", "invalid payment status %q", in.Status)
	}

	if in.Amount.IsNegative() {
		return models.NewValidationError("amount", "amount must not be negative")
	}
	if !pricing.IsCurrency(in.Amount) {
		return models.NewValidationError("amount", "amount must have at most %d decimal places", pricing.CurrencyPlaces)
	}
	return nil
}

func lineField(index int, field string) string {
	return fmt.Sprintf("items[%d].%s", index, field)
}
