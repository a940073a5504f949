package postgres

import (
	"context"
	"time"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, company_id, order_seq, order_number, target_type, target_number,
       status, source, placed_by, customer_name, is_archived, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var seq int32
	var placedBy pgtype.UUID
	err := row.Scan(
		&o.ID, &o.CompanyID, &seq, &o.OrderNumber, &o.TargetType, &o.TargetNumber,
		&o.Status, &o.Source, &placedBy, &o.CustomerName, &o.IsArchived, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	if placedBy.Valid {
		o.PlacedBy = placedBy.Bytes
	}
	return o, nil
}

// GetNextOrderNumber returns MAX(order_seq)+1 for the company. Two
// concurrent transactions can read the same value; the unique constraint
// on (company_id, order_seq) turns the race into a retryable conflict.
func (s *Store) GetNextOrderNumber(ctx context.Context, companyID uuid.UUID) (int32, error) {
	var next int32
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_seq), 0) + 1 FROM orders WHERE company_id = $1`,
		companyID,
	).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
	CompanyID    uuid.UUID
	OrderSeq     int32
	OrderNumber  string
	TargetType   string
	TargetNumber string
	Status       string
	Source       string
	PlacedBy     uuid.UUID
	CustomerName string
	IsArchived   bool
}

func (s *Store) CreateOrder(ctx context.Context, arg CreateOrderParams) (domain.Order, error) {
	var placedBy pgtype.UUID
	if arg.PlacedBy != uuid.Nil {
		placedBy = pgtype.UUID{Bytes: arg.PlacedBy, Valid: true}
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO orders (company_id, order_seq, order_number, target_type, target_number,
		                    status, source, placed_by, customer_name, is_archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+orderColumns,
		arg.CompanyID, arg.OrderSeq, arg.OrderNumber, arg.TargetType, arg.TargetNumber,
		arg.Status, arg.Source, placedBy, arg.CustomerName, arg.IsArchived,
	)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID             uuid.UUID
	ProductID           uuid.UUID
	Name                string
	Price               decimal.Decimal
	Quantity            int32
	RequiresPreparation bool
	Status              string
	Position            int32
}

func (s *Store) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (domain.OrderItem, error) {
	var it domain.OrderItem
	var price pgtype.Numeric
	err := s.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, name, price, quantity, requires_preparation, status, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, order_id, product_id, name, price, quantity, requires_preparation, status`,
		arg.OrderID, arg.ProductID, arg.Name, decimalToNumeric(arg.Price), arg.Quantity,
		arg.RequiresPreparation, arg.Status, arg.Position,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &price, &it.Quantity, &it.RequiresPreparation, &it.Status)
	if err != nil {
		return domain.OrderItem{}, err
	}
	it.Price = numericToDecimal(price)
	return it, nil
}

type CreateOrderEventParams struct {
	OrderID      uuid.UUID
	Status       string
	Message      string
	EmployeeName string
}

func (s *Store) CreateOrderEvent(ctx context.Context, arg CreateOrderEventParams) (domain.OrderEvent, error) {
	var ev domain.OrderEvent
	err := s.db.QueryRow(ctx, `
		INSERT INTO order_events (order_id, status, message, employee_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_id, status, message, employee_name, created_at`,
		arg.OrderID, arg.Status, arg.Message, arg.EmployeeName,
	).Scan(&ev.ID, &ev.OrderID, &ev.Status, &ev.Message, &ev.EmployeeName, &ev.CreatedAt)
	if err != nil {
		return domain.OrderEvent{}, err
	}
	return ev, nil
}

type GetOrderParams struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
}

func (s *Store) GetOrder(ctx context.Context, arg GetOrderParams) (domain.Order, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND company_id = $2`,
		arg.ID, arg.CompanyID,
	)
	return scanOrder(row)
}

type ListOrdersParams struct {
	CompanyID       uuid.UUID
	PlacedBy        uuid.UUID // optional; uuid.Nil means no filter
	IncludeArchived bool
	Limit           int32
	Offset          int32
}

// ListOrders returns orders for the company in insertion order, optionally
// restricted to the customer who placed them. Archived orders are included
// only when asked for (reporting / customer history views).
func (s *Store) ListOrders(ctx context.Context, arg ListOrdersParams) ([]domain.Order, error) {
	var placedBy pgtype.UUID
	if arg.PlacedBy != uuid.Nil {
		placedBy = pgtype.UUID{Bytes: arg.PlacedBy, Valid: true}
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE company_id = $1
		  AND ($2::uuid IS NULL OR placed_by = $2)
		  AND ($3::bool OR NOT is_archived)
		ORDER BY created_at, id
		LIMIT $4 OFFSET $5`,
		arg.CompanyID, placedBy, arg.IncludeArchived, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

type ListActiveOrdersByTargetParams struct {
	CompanyID    uuid.UUID
	TargetType   string
	TargetNumber string
}

// ListActiveOrdersByTarget returns the non-archived orders sharing a tab
// key, oldest first. The ordering defines the tab history's display order
// and must stay stable.
func (s *Store) ListActiveOrdersByTarget(ctx context.Context, arg ListActiveOrdersByTargetParams) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE company_id = $1 AND target_type = $2 AND target_number = $3 AND NOT is_archived
		ORDER BY created_at, id`,
		arg.CompanyID, arg.TargetType, arg.TargetNumber,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, product_id, name, price, quantity, requires_preparation, status
		FROM order_items
		WHERE order_id = $1
		ORDER BY position`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var price pgtype.Numeric
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &price,
			&it.Quantity, &it.RequiresPreparation, &it.Status); err != nil {
			return nil, err
		}
		it.Price = numericToDecimal(price)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) ListOrderEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, status, message, employee_name, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var ev domain.OrderEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.Status, &ev.Message, &ev.EmployeeName, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type ArchiveOrdersByTargetParams struct {
	CompanyID    uuid.UUID
	TargetType   string
	TargetNumber string
}

// ArchiveOrdersByTarget flags every open order on the key as archived and
// returns how many rows it touched. Zero is a valid result: archiving an
// empty tab is a no-op, not an error.
func (s *Store) ArchiveOrdersByTarget(ctx context.Context, arg ArchiveOrdersByTargetParams) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET is_archived = TRUE, updated_at = NOW()
		WHERE company_id = $1 AND target_type = $2 AND target_number = $3 AND NOT is_archived`,
		arg.CompanyID, arg.TargetType, arg.TargetNumber,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ActiveTargetRow struct {
	TargetType   string
	TargetNumber string
	Total        decimal.Decimal
	CustomerName string
	OpenedAt     time.Time
}

// ListActiveTargets reduces all open non-counter orders to one row per
// (type, number) key for the monitor board. Counter orders are excluded:
// they never form a tab.
func (s *Store) ListActiveTargets(ctx context.Context, companyID uuid.UUID) ([]ActiveTargetRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT o.target_type, o.target_number,
		       COALESCE(SUM(i.price * i.quantity), 0) AS total,
		       COALESCE((array_agg(o.customer_name ORDER BY o.created_at)
		                 FILTER (WHERE o.customer_name <> ''))[1], '') AS customer_name,
		       MIN(o.created_at) AS opened_at
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
		WHERE o.company_id = $1 AND NOT o.is_archived AND o.target_type <> 'COUNTER'
		GROUP BY o.target_type, o.target_number
		ORDER BY MIN(o.created_at)`,
		companyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ActiveTargetRow
	for rows.Next() {
		var row ActiveTargetRow
		var total pgtype.Numeric
		if err := rows.Scan(&row.TargetType, &row.TargetNumber, &total, &row.CustomerName, &row.OpenedAt); err != nil {
			return nil, err
		}
		row.Total = numericToDecimal(total)
		targets = append(targets, row)
	}
	return targets, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderStatus applies a transition only if the order is still in the
// status the caller observed; pgx.ErrNoRows signals a lost race.
func (s *Store) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (domain.Order, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $4
		RETURNING `+orderColumns,
		arg.ID, arg.CompanyID, arg.Status, arg.PrevStatus,
	)
	return scanOrder(row)
}

type UpdateOrderItemStatusParams struct {
	ItemID  uuid.UUID
	OrderID uuid.UUID
	Status  string
}

func (s *Store) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (domain.OrderItem, error) {
	var it domain.OrderItem
	var price pgtype.Numeric
	err := s.db.QueryRow(ctx, `
		UPDATE order_items
		SET status = $3
		WHERE id = $1 AND order_id = $2
		RETURNING id, order_id, product_id, name, price, quantity, requires_preparation, status`,
		arg.ItemID, arg.OrderID, arg.Status,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &price, &it.Quantity, &it.RequiresPreparation, &it.Status)
	if err != nil {
		return domain.OrderItem{}, err
	}
	it.Price = numericToDecimal(price)
	return it, nil
}
