// Package pricing computes line-item and order totals from menu data.
// Every function is pure; all arithmetic uses decimal.Decimal.
package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
)

// CurrencyPlaces is the number of decimal places money is rounded to.
const CurrencyPlaces = 2

// Quote is the price of one selection.
type Quote struct {
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// Totals is the order-level aggregation of line totals.
type Totals struct {
	Subtotal      decimal.Decimal
	ServiceCharge decimal.Decimal
	Total         decimal.Decimal
}

// PriceSelection prices quantity units of item in the given size with the
// given modifiers. size must be set exactly when item.HasSizes is true.
func PriceSelection(item *models.MenuItem, size *models.ItemSize, modifiers []models.Modifier, quantity int) (Quote, error) {
	if item == nil {
		return Quote{}, models.NewValidationError("item_id", "item is required")
	}
	if !item.Active {
		return Quote{}, models.NewValidationError("item_id", "item %s is not active", item.ID)
	}
	if quantity <= 0 {
		return Quote{}, models.NewValidationError("quantity", "must be a positive integer, got %d", quantity)
	}

	var unit decimal.Decimal
	switch {
	case item.HasSizes && size == nil:
		return Quote{}, models.NewValidationError("size_id", "item %s requires a size", item.ID)
	case item.HasSizes:
		if _, ok := item.Size(size.ID); !ok || size.ItemID != item.ID {
			return Quote{}, models.NewValidationError("size_id", "size %s does not belong to item %s", size.ID, item.ID)
		}
		if !IsCurrency(size.Price) {
			return Quote{}, models.NewValidationError("size_id", "size %s price %s exceeds %d decimal places", size.ID, size.Price, CurrencyPlaces)
		}
		unit = size.Price
	case size != nil:
		return Quote{}, models.NewValidationError("size_id", "item %s has no sizes", item.ID)
	default:
		if !IsCurrency(item.BasePrice) {
			return Quote{}, models.NewValidationError("item_id", "item %s price %s exceeds %d decimal places", item.ID, item.BasePrice, CurrencyPlaces)
		}
		unit = item.BasePrice
	}

	seen := make(map[uuid.UUID]bool, len(modifiers))
	for _, mod := range modifiers {
		if mod.ItemID != item.ID {
			return Quote{}, models.NewValidationError("modifier_ids", "modifier %s does not belong to item %s", mod.ID, item.ID)
		}
		if !mod.Active {
			return Quote{}, models.NewValidationError("modifier_ids", "modifier %s is not active", mod.ID)
		}
		if !IsCurrency(mod.Price) {
			return Quote{}, models.NewValidationError("modifier_ids", "modifier %s price %s exceeds %d decimal places", mod.ID, mod.Price, CurrencyPlaces)
		}
		if seen[mod.ID] {
			return Quote{}, models.NewValidationError("modifier_ids", "modifier %s selected twice", mod.ID)
		}
		seen[mod.ID] = true
		unit = unit.Add(mod.Price)
	}

	if unit.IsNegative() {
		return Quote{}, models.NewValidationError("unit_price", "computed unit price %s is negative", unit)
	}

	return Quote{
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// IsCurrency reports whether d is representable in CurrencyPlaces decimals.
func IsCurrency(d decimal.Decimal) bool {
	return d.Equal(d.Round(CurrencyPlaces))
}

// ServiceCharge applies rate to subtotal, rounded to currency precision.
func ServiceCharge(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(CurrencyPlaces)
}

// OrderTotals sums line totals and applies the service charge rate.
func OrderTotals(lineTotals []decimal.Decimal, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, t := range lineTotals {
		subtotal = subtotal.Add(t)
	}
	charge := ServiceCharge(subtotal, rate)
	return Totals{
		Subtotal:      subtotal,
		ServiceCharge: charge,
		Total:         subtotal.Add(charge),
	}
}

// TotalsForItems is OrderTotals over committed line items.
func TotalsForItems(items []models.OrderLineItem, rate decimal.Decimal) Totals {
	lineTotals := make([]decimal.Decimal, len(items))
	for i, item := range items {
		lineTotals[i] = item.TotalPrice
	}
	return OrderTotals(lineTotals, rate)
}

// CartLine is a resolved selection: menu data already looked up.
type CartLine struct {
	Item      *models.MenuItem
	Size      *models.ItemSize
	Modifiers []models.Modifier
	Quantity  int
}

type CartQuote struct {
	Lines []Quote
	Totals
}

// PriceCart prices every line and aggregates them. Validation errors name the
// offending line as items[i].<field>.
func PriceCart(lines []CartLine, rate decimal.Decimal) (CartQuote, error) {
	quotes := make([]Quote, len(lines))
	lineTotals := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		q, err := PriceSelection(line.Item, line.Size, line.Modifiers, line.Quantity)
		if err != nil {
			return CartQuote{}, indexed(i, err)
		}
		quotes[i] = q
		lineTotals[i] = q.TotalPrice
	}
	return CartQuote{Lines: quotes, Totals: OrderTotals(lineTotals, rate)}, nil
}

func indexed(i int, err error) error {
	if v, ok := err.(*models.ValidationError); ok {
		return &models.ValidationError{Field: fmt.Sprintf("items[%d].%s", i, v.Field), Message: v.Message}
	}
	return err
}
