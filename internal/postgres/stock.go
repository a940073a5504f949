package postgres

import (
	"context"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/google/uuid"
)

type CreateStockMovementParams struct {
	CompanyID uuid.UUID
	ProductID uuid.UUID
	Delta     int32
	Reason    string
}

func (s *Store) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (domain.StockMovement, error) {
	var m domain.StockMovement
	err := s.db.QueryRow(ctx, `
		INSERT INTO stock_movements (company_id, product_id, delta, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_id, product_id, delta, reason, created_at`,
		arg.CompanyID, arg.ProductID, arg.Delta, arg.Reason,
	).Scan(&m.ID, &m.CompanyID, &m.ProductID, &m.Delta, &m.Reason, &m.CreatedAt)
	if err != nil {
		return domain.StockMovement{}, err
	}
	return m, nil
}

type ListStockMovementsParams struct {
	CompanyID uuid.UUID
	ProductID uuid.UUID // optional; uuid.Nil means all products
	Limit     int32
	Offset    int32
}

func (s *Store) ListStockMovements(ctx context.Context, arg ListStockMovementsParams) ([]domain.StockMovement, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, company_id, product_id, delta, reason, created_at
		FROM stock_movements
		WHERE company_id = $1 AND ($2::uuid = '00000000-0000-0000-0000-000000000000' OR product_id = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`,
		arg.CompanyID, arg.ProductID, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.ProductID, &m.Delta, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

type GetStockLevelParams struct {
	CompanyID uuid.UUID
	ProductID uuid.UUID
}

// GetStockLevel sums the ledger; there is no stored level to drift from.
func (s *Store) GetStockLevel(ctx context.Context, arg GetStockLevelParams) (int64, error) {
	var level int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0)
		FROM stock_movements
		WHERE company_id = $1 AND product_id = $2`,
		arg.CompanyID, arg.ProductID,
	).Scan(&level)
	return level, err
}
