package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tab is a derived view over all non-archived orders sharing a target. It
// has no identity or storage of its own; it exists exactly as long as at
// least one open order references its key.
type Tab struct {
	CompanyID    uuid.UUID
	TargetType   string
	TargetNumber string
	Status       string
	History      []TabLine
	Total        decimal.Decimal
}

// TabLine is one consumed item in a tab's flattened history, re-tagged
// with the product name for display.
type TabLine struct {
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Price       decimal.Decimal
	Quantity    int32
	Status      string
}

// TabSummary is the reduced per-target row shown on the monitor board.
type TabSummary struct {
	TargetType   string
	TargetNumber string
	Status       string
	Total        decimal.Decimal
	CustomerName string
}

// CartItem is an ephemeral operator-side selection, never persisted until
// submitted as part of an order or a checkout.
type CartItem struct {
	ProductID           uuid.UUID
	Name                string
	Price               decimal.Decimal
	Quantity            int32
	RequiresPreparation bool
}

// Subtotal returns price * quantity for the cart line.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt32(c.Quantity))
}
