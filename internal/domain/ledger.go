package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the read-only slice of the external catalog the core needs.
type Product struct {
	ID                  uuid.UUID
	CompanyID           uuid.UUID
	Name                string
	Price               decimal.Decimal
	SKU                 string
	Barcode             string
	RequiresPreparation bool
}

// StockMovement is one append-only inventory adjustment. Current stock for
// a product is the sum of its deltas; nothing mutates a level in place.
type StockMovement struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	ProductID uuid.UUID
	Delta     int32
	Reason    string
	CreatedAt time.Time
}

// Transaction is one append-only money movement.
type Transaction struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Type        string
	Category    string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Status      string
	FinishedBy  string
}
