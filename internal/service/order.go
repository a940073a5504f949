package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidProductID    = errors.New("invalid product_id")
	ErrProductNotFound     = errors.New("product not found in company")
	ErrInvalidSource       = errors.New("invalid source")
	ErrMissingTargetNumber = errors.New("target_number is required for non-counter orders")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *postgres.Store (pool- or tx-scoped).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, companyID uuid.UUID) (int32, error)
	GetProduct(ctx context.Context, arg postgres.GetProductParams) (domain.Product, error)
	CreateOrder(ctx context.Context, arg postgres.CreateOrderParams) (domain.Order, error)
	CreateOrderItem(ctx context.Context, arg postgres.CreateOrderItemParams) (domain.OrderItem, error)
	CreateOrderEvent(ctx context.Context, arg postgres.CreateOrderEventParams) (domain.OrderEvent, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), so the
// service can derive a store scoped to its own transaction.
type NewOrderStore func(db postgres.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order. Item
// prices are never taken from the caller; the catalog is authoritative.
type CreateOrderRequest struct {
	CompanyID    uuid.UUID
	TargetType   string
	TargetNumber string
	Source       string
	PlacedBy     uuid.UUID
	EmployeeName string
	CustomerName string
	Items        []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
}

// CreateOrderResult is the full created order with items and its first
// audit event.
type CreateOrderResult struct {
	Order domain.Order
	Items []domain.OrderItem
	Event domain.OrderEvent
}

// OrderService handles order intake: staff adding to a tab and customers
// placing public self-orders. It never archives or finalizes anything.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates, resolves catalog prices, and inserts an order
// atomically. Retries on order_seq unique violations (concurrent
// transactions reading the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateTarget(req.TargetType, req.TargetNumber); err != nil {
		return nil, err
	}
	if req.Source != enum.OrderSourceInternal && req.Source != enum.OrderSourcePublic {
		return nil, ErrInvalidSource
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func validateTarget(targetType, targetNumber string) error {
	if targetType == enum.TargetTypeCounter {
		return nil
	}
	if !isTabTarget(targetType) {
		return ErrInvalidTargetType
	}
	if targetNumber == "" {
		return ErrMissingTargetNumber
	}
	return nil
}

// isOrderNumberConflict checks for a unique constraint violation on
// (company_id, order_seq) — pgconn error code 23505.
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_company_id_order_seq_key"
	}
	return false
}

func formatOrderNumber(seq int32) string {
	return fmt.Sprintf("CMD-%06d", seq)
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextSeq, err := store.GetNextOrderNumber(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	// Resolve every item against the catalog before inserting anything.
	type resolvedItem struct {
		product  domain.Product
		quantity int32
	}
	resolved := make([]resolvedItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
		}
		product, err := store.GetProduct(ctx, postgres.GetProductParams{
			ID:        productID,
			CompanyID: req.CompanyID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get product: %w", i, err)
		}
		resolved = append(resolved, resolvedItem{product: product, quantity: item.Quantity})
	}

	order, err := store.CreateOrder(ctx, postgres.CreateOrderParams{
		CompanyID:    req.CompanyID,
		OrderSeq:     nextSeq,
		OrderNumber:  formatOrderNumber(nextSeq),
		TargetType:   req.TargetType,
		TargetNumber: req.TargetNumber,
		Status:       enum.OrderStatusPending,
		Source:       req.Source,
		PlacedBy:     req.PlacedBy,
		CustomerName: req.CustomerName,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(resolved))
	for pos, ri := range resolved {
		item, err := store.CreateOrderItem(ctx, postgres.CreateOrderItemParams{
			OrderID:             order.ID,
			ProductID:           ri.product.ID,
			Name:                ri.product.Name,
			Price:               ri.product.Price,
			Quantity:            ri.quantity,
			RequiresPreparation: ri.product.RequiresPreparation,
			Status:              enum.OrderItemStatusPending,
			Position:            int32(pos),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	message := enum.EventOrderCreatedPublic
	if req.Source == enum.OrderSourceInternal {
		message = enum.EventOrderCreatedInternal
	}
	event, err := store.CreateOrderEvent(ctx, postgres.CreateOrderEventParams{
		OrderID:      order.ID,
		Status:       enum.OrderStatusPending,
		Message:      message,
		EmployeeName: req.EmployeeName,
	})
	if err != nil {
		return nil, fmt.Errorf("create order event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items, Event: event}, nil
}
