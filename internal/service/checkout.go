package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Errors returned by the checkout service.
var (
	ErrEmptyCheckout        = errors.New("nothing to charge: cart and tab history are both empty")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	// ErrTransactionFailed wraps any failure inside the finalize
	// transaction. The whole checkout rolls back: no stock deduction
	// without a recorded sale and vice versa. Retryable by the operator.
	ErrTransactionFailed = errors.New("checkout transaction failed")
)

// CheckoutStore defines the DB methods the finalize transition needs.
// Satisfied by *postgres.Store (pool- or tx-scoped).
type CheckoutStore interface {
	GetNextOrderNumber(ctx context.Context, companyID uuid.UUID) (int32, error)
	GetProduct(ctx context.Context, arg postgres.GetProductParams) (domain.Product, error)
	ListActiveOrdersByTarget(ctx context.Context, arg postgres.ListActiveOrdersByTargetParams) ([]domain.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	ArchiveOrdersByTarget(ctx context.Context, arg postgres.ArchiveOrdersByTargetParams) (int64, error)
	CreateOrder(ctx context.Context, arg postgres.CreateOrderParams) (domain.Order, error)
	CreateOrderItem(ctx context.Context, arg postgres.CreateOrderItemParams) (domain.OrderItem, error)
	CreateOrderEvent(ctx context.Context, arg postgres.CreateOrderEventParams) (domain.OrderEvent, error)
	CreateStockMovement(ctx context.Context, arg postgres.CreateStockMovementParams) (domain.StockMovement, error)
	CreateTransaction(ctx context.Context, arg postgres.CreateTransactionParams) (domain.Transaction, error)
}

// NewCheckoutStore creates a CheckoutStore from a DBTX (pool or tx).
type NewCheckoutStore func(db postgres.DBTX) CheckoutStore

// FinalizeRequest is the validated input for closing a sale. Cart items
// are the operator's not-yet-submitted selection; for tab targets the
// open history is read inside the transaction and charged with them.
type FinalizeRequest struct {
	CompanyID     uuid.UUID
	TargetType    string
	TargetNumber  string
	PaymentMethod string
	CashierID     uuid.UUID
	CashierName   string
	CustomerName  string
	Cart          []CreateOrderItemRequest
}

// FinalizeResult reports everything the finalize transition produced.
type FinalizeResult struct {
	Order       domain.Order
	Items       []domain.OrderItem
	Transaction domain.Transaction
	Movements   []domain.StockMovement
	GrandTotal  decimal.Decimal
}

// CheckoutService drives the PAYMENT_SELECTED -> FINALIZED transition.
// Finalizes on the same tab key are serialized by an advisory per-key
// mutex, so two terminals closing the same table cannot both charge it:
// the loser re-reads an already-archived (empty) tab and is rejected.
type CheckoutService struct {
	pool     TxBeginner
	newStore NewCheckoutStore
	tabs     *TabService

	mu    sync.Mutex
	locks map[tabKey]*sync.Mutex
}

func NewCheckoutService(pool TxBeginner, newStore NewCheckoutStore, tabs *TabService) *CheckoutService {
	return &CheckoutService{
		pool:     pool,
		newStore: newStore,
		tabs:     tabs,
		locks:    make(map[tabKey]*sync.Mutex),
	}
}

func (s *CheckoutService) lockFor(key tabKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

func isValidPaymentMethod(m string) bool {
	switch m {
	case enum.PaymentMethodCash, enum.PaymentMethodCard,
		enum.PaymentMethodPix, enum.PaymentMethodTransfer:
		return true
	}
	return false
}

// Finalize confirms payment for a tab or counter sale: one stock movement
// per charged line, one income transaction, archival of the contributing
// orders, and one consolidated archived order — all in a single database
// transaction. Counter sales skip the tab lock and the archival entirely.
func (s *CheckoutService) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	if err := validateTarget(req.TargetType, req.TargetNumber); err != nil {
		return nil, err
	}
	if !isValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	isCounter := req.TargetType == enum.TargetTypeCounter
	if !isCounter {
		key := tabKey{req.CompanyID, req.TargetType, req.TargetNumber}
		lock := s.lockFor(key)
		lock.Lock()
		defer lock.Unlock()
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.finalizeTx(ctx, req, isCounter)
		if err == nil {
			if !isCounter {
				s.tabs.ClearReadyToPay(req.CompanyID, req.TargetType, req.TargetNumber)
			}
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

// chargedLine is one line the sale pays for, either fresh from the cart
// or consumed earlier from the tab history.
type chargedLine struct {
	productID   uuid.UUID
	name        string
	price       decimal.Decimal
	quantity    int32
	preparation bool
	reason      string
}

func (s *CheckoutService) finalizeTx(ctx context.Context, req FinalizeRequest, isCounter bool) (*FinalizeResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Read phase: resolve cart, snapshot tab history ---

	var lines []chargedLine
	for i, item := range req.Cart {
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
		lines = append(lines, chargedLine{
			productID:   product.ID,
			name:        product.Name,
			price:       product.Price,
			quantity:    item.Quantity,
			preparation: product.RequiresPreparation,
			reason:      enum.StockReasonSale,
		})
	}

	if !isCounter {
		orders, err := store.ListActiveOrdersByTarget(ctx, postgres.ListActiveOrdersByTargetParams{
			CompanyID:    req.CompanyID,
			TargetType:   req.TargetType,
			TargetNumber: req.TargetNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("list active orders: %w", err)
		}
		for _, o := range orders {
			items, err := store.ListOrderItemsByOrder(ctx, o.ID)
			if err != nil {
				return nil, fmt.Errorf("list items for order %s: %w", o.ID, err)
			}
			for _, it := range items {
				lines = append(lines, chargedLine{
					productID:   it.ProductID,
					name:        it.Name,
					price:       it.Price,
					quantity:    it.Quantity,
					preparation: it.RequiresPreparation,
					reason:      enum.StockReasonConsumption,
				})
			}
		}
	}

	if len(lines) == 0 {
		return nil, ErrEmptyCheckout
	}

	grandTotal := decimal.Zero
	for _, l := range lines {
		grandTotal = grandTotal.Add(l.price.Mul(decimal.NewFromInt32(l.quantity)))
	}
	grandTotal = grandTotal.Round(2)

	nextSeq, err := store.GetNextOrderNumber(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := formatOrderNumber(nextSeq)

	// --- Mutation phase: from here on every failure aborts the whole
	// checkout and surfaces as ErrTransactionFailed. ---

	movements := make([]domain.StockMovement, 0, len(lines))
	for _, l := range lines {
		m, err := store.CreateStockMovement(ctx, postgres.CreateStockMovementParams{
			CompanyID: req.CompanyID,
			ProductID: l.productID,
			Delta:     -l.quantity,
			Reason:    l.reason,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create stock movement: %w", ErrTransactionFailed, err)
		}
		movements = append(movements, m)
	}

	transaction, err := store.CreateTransaction(ctx, postgres.CreateTransactionParams{
		CompanyID:   req.CompanyID,
		Type:        enum.TransactionTypeIncome,
		Category:    enum.TransactionCategorySale,
		Description: fmt.Sprintf("Venda %s (%s)", orderNumber, req.PaymentMethod),
		Amount:      grandTotal,
		Status:      enum.TransactionStatusCompleted,
		FinishedBy:  req.CashierName,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create transaction: %w", ErrTransactionFailed, err)
	}

	// Archive before inserting the consolidated order, so the new order is
	// not folded back into the history it supersedes.
	if !isCounter {
		if _, err := store.ArchiveOrdersByTarget(ctx, postgres.ArchiveOrdersByTargetParams{
			CompanyID:    req.CompanyID,
			TargetType:   req.TargetType,
			TargetNumber: req.TargetNumber,
		}); err != nil {
			return nil, fmt.Errorf("%w: archive orders: %w", ErrTransactionFailed, err)
		}
	}

	order, err := store.CreateOrder(ctx, postgres.CreateOrderParams{
		CompanyID:    req.CompanyID,
		OrderSeq:     nextSeq,
		OrderNumber:  orderNumber,
		TargetType:   req.TargetType,
		TargetNumber: req.TargetNumber,
		Status:       enum.OrderStatusCompleted,
		Source:       enum.OrderSourceInternal,
		PlacedBy:     req.CashierID,
		CustomerName: req.CustomerName,
		IsArchived:   true, // a closed historical record, never an open tab
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create consolidated order: %w", ErrTransactionFailed, err)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for pos, l := range lines {
		item, err := store.CreateOrderItem(ctx, postgres.CreateOrderItemParams{
			OrderID:             order.ID,
			ProductID:           l.productID,
			Name:                l.name,
			Price:               l.price,
			Quantity:            l.quantity,
			RequiresPreparation: l.preparation,
			Status:              enum.OrderItemStatusDelivered,
			Position:            int32(pos),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create consolidated item: %w", ErrTransactionFailed, err)
		}
		items = append(items, item)
	}

	if _, err := store.CreateOrderEvent(ctx, postgres.CreateOrderEventParams{
		OrderID:      order.ID,
		Status:       enum.OrderStatusCompleted,
		Message:      enum.EventSaleFinalized,
		EmployeeName: req.CashierName,
	}); err != nil {
		return nil, fmt.Errorf("%w: create order event: %w", ErrTransactionFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit tx: %w", ErrTransactionFailed, err)
	}

	return &FinalizeResult{
		Order:       order,
		Items:       items,
		Transaction: transaction,
		Movements:   movements,
		GrandTotal:  grandTotal,
	}, nil
}
