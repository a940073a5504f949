package postgres

import (
	"context"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// The catalog is owned elsewhere; the core only reads the columns it needs
// for checkout and barcode resolution.

const productColumns = `id, company_id, name, price, sku, barcode, requires_preparation`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	var price pgtype.Numeric
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &price, &p.SKU, &p.Barcode, &p.RequiresPreparation)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = numericToDecimal(price)
	return p, nil
}

type GetProductParams struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
}

type CreateProductParams struct {
	CompanyID           uuid.UUID
	Name                string
	Price               decimal.Decimal
	SKU                 string
	Barcode             string
	RequiresPreparation bool
}

// CreateProduct exists for seeding and tests; day-to-day catalog
// management happens in the back office system.
func (s *Store) CreateProduct(ctx context.Context, arg CreateProductParams) (domain.Product, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO products (company_id, name, price, sku, barcode, requires_preparation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		arg.CompanyID, arg.Name, decimalToNumeric(arg.Price), arg.SKU, arg.Barcode, arg.RequiresPreparation,
	)
	return scanProduct(row)
}

func (s *Store) GetProduct(ctx context.Context, arg GetProductParams) (domain.Product, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND company_id = $2`,
		arg.ID, arg.CompanyID,
	)
	return scanProduct(row)
}

type ResolveProductParams struct {
	CompanyID uuid.UUID
	Barcode   string
	SKU       string
}

// ResolveProduct matches by barcode or SKU, whichever is provided. Used by
// the external scan-buffer collaborator; raw keystroke parsing stays out.
func (s *Store) ResolveProduct(ctx context.Context, arg ResolveProductParams) (domain.Product, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE company_id = $1
		  AND (($2 <> '' AND barcode = $2) OR ($3 <> '' AND sku = $3))`,
		arg.CompanyID, arg.Barcode, arg.SKU,
	)
	return scanProduct(row)
}
