package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is the catalog view the pricing engine needs. Menu administration
// lives outside this service.
type MenuItem struct {
	ID        uuid.UUID
	Name      LocalizedText
	BasePrice decimal.Decimal
	HasSizes  bool
	Active    bool
	Sizes     []ItemSize
}

// Size returns the size with id if it belongs to the item.
func (m *MenuItem) Size(id uuid.UUID) (*ItemSize, bool) {
	for i := range m.Sizes {
		if m.Sizes[i].ID == id {
			return &m.Sizes[i], true
		}
	}
	return nil, false
}

type ItemSize struct {
	ID     uuid.UUID
	ItemID uuid.UUID
	Name   LocalizedText
	Price  decimal.Decimal
}

// Modifier is an additive surcharge option attached to a menu item.
type Modifier struct {
	ID     uuid.UUID
	ItemID uuid.UUID
	Name   LocalizedText
	Price  decimal.Decimal
	Active bool
}

// MenuSelection is one cart line as chosen at the POS terminal.
type MenuSelection struct {
	ItemID      uuid.UUID
	SizeID      *uuid.UUID
	ModifierIDs []uuid.UUID
	Quantity    int
}
