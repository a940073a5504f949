package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Target identifies where a tab applies: a table, room or appointment
// number within a company. Counter sales carry the synthetic COUNTER type
// and an empty number.
type Target struct {
	Type   string
	Number string
}

// Order is a single submission of line items against a target. Items are
// immutable after creation except for per-item status transitions; the
// event log is append-only.
type Order struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	OrderNumber  string
	TargetType   string
	TargetNumber string
	Status       string
	Source       string
	PlacedBy     uuid.UUID
	CustomerName string
	IsArchived   bool
	Items        []OrderItem
	Events       []OrderEvent
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem is one line of an order. Price is the unit price captured at
// order time, not a live catalog reference.
type OrderItem struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	ProductID           uuid.UUID
	Name                string
	Price               decimal.Decimal
	Quantity            int32
	RequiresPreparation bool
	Status              string
}

// Subtotal returns price * quantity for the line.
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt32(it.Quantity))
}

// OrderEvent is one entry of an order's append-only audit trail.
type OrderEvent struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	Status       string
	Message      string
	EmployeeName string
	CreatedAt    time.Time
}
