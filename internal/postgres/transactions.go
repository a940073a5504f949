package postgres

import (
	"context"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type CreateTransactionParams struct {
	CompanyID   uuid.UUID
	Type        string
	Category    string
	Description string
	Amount      decimal.Decimal
	Status      string
	FinishedBy  string
}

func (s *Store) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (domain.Transaction, error) {
	var t domain.Transaction
	var amount pgtype.Numeric
	err := s.db.QueryRow(ctx, `
		INSERT INTO transactions (company_id, type, category, description, amount, status, finished_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, company_id, type, category, description, amount, date, status, finished_by`,
		arg.CompanyID, arg.Type, arg.Category, arg.Description,
		decimalToNumeric(arg.Amount), arg.Status, arg.FinishedBy,
	).Scan(&t.ID, &t.CompanyID, &t.Type, &t.Category, &t.Description, &amount, &t.Date, &t.Status, &t.FinishedBy)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Amount = numericToDecimal(amount)
	return t, nil
}

type ListTransactionsParams struct {
	CompanyID uuid.UUID
	Limit     int32
	Offset    int32
}

func (s *Store) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, company_id, type, category, description, amount, date, status, finished_by
		FROM transactions
		WHERE company_id = $1
		ORDER BY date DESC, id
		LIMIT $2 OFFSET $3`,
		arg.CompanyID, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var amount pgtype.Numeric
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.Type, &t.Category, &t.Description,
			&amount, &t.Date, &t.Status, &t.FinishedBy); err != nil {
			return nil, err
		}
		t.Amount = numericToDecimal(amount)
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
