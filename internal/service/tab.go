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
	"github.com/shopspring/decimal"
)

// Errors returned by the tab service.
var (
	ErrInvalidTargetType = errors.New("invalid target type")
	ErrEmptyTab          = errors.New("tab has no open orders")
)

// TabStore defines the DB methods needed to aggregate tabs.
// Satisfied by *postgres.Store; narrow interface for testability.
type TabStore interface {
	ListActiveOrdersByTarget(ctx context.Context, arg postgres.ListActiveOrdersByTargetParams) ([]domain.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	ListActiveTargets(ctx context.Context, companyID uuid.UUID) ([]postgres.ActiveTargetRow, error)
}

type tabKey struct {
	companyID    uuid.UUID
	targetType   string
	targetNumber string
}

// TabService computes tab views on demand. A tab is always recomputed from
// the order store's current snapshot; nothing is cached. The only state
// held here is the transient ready-to-pay flag set, which marks tabs whose
// checkout view an operator has opened. The flags live in process memory
// on purpose: they do not survive a restart and are not written anywhere.
type TabService struct {
	store TabStore

	mu         sync.Mutex
	readyToPay map[tabKey]bool
}

func NewTabService(store TabStore) *TabService {
	return &TabService{
		store:      store,
		readyToPay: make(map[tabKey]bool),
	}
}

// isTabTarget reports whether the type identifies a real tab key. Counter
// is a valid order target but never forms a tab.
func isTabTarget(targetType string) bool {
	switch targetType {
	case enum.TargetTypeTable, enum.TargetTypeRoom, enum.TargetTypeAppointment:
		return true
	}
	return false
}

// GetTab filters the order store for open orders on the key, flattens
// their items into one history and sums the total. A key with no open
// orders yields an empty AVAILABLE tab, never an error.
func (s *TabService) GetTab(ctx context.Context, companyID uuid.UUID, targetType, targetNumber string) (*domain.Tab, error) {
	if !isTabTarget(targetType) {
		return nil, ErrInvalidTargetType
	}

	orders, err := s.store.ListActiveOrdersByTarget(ctx, postgres.ListActiveOrdersByTargetParams{
		CompanyID:    companyID,
		TargetType:   targetType,
		TargetNumber: targetNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}

	tab := &domain.Tab{
		CompanyID:    companyID,
		TargetType:   targetType,
		TargetNumber: targetNumber,
		History:      []domain.TabLine{},
		Total:        decimal.Zero,
	}

	// Orders arrive in ascending creation order; item order within each
	// order is preserved. That concatenation order is the display order.
	for _, o := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list items for order %s: %w", o.ID, err)
		}
		for _, it := range items {
			tab.History = append(tab.History, domain.TabLine{
				OrderID:     o.ID,
				ProductID:   it.ProductID,
				ProductName: it.Name,
				Price:       it.Price,
				Quantity:    it.Quantity,
				Status:      it.Status,
			})
			tab.Total = tab.Total.Add(it.Subtotal())
		}
	}
	tab.Total = tab.Total.Round(2)

	key := tabKey{companyID, targetType, targetNumber}
	switch {
	case len(orders) == 0:
		tab.Status = enum.TabStatusAvailable
		// A tab that emptied out can no longer be ready to pay.
		s.clearReady(key)
	case s.isReady(key):
		tab.Status = enum.TabStatusReadyToPay
	default:
		tab.Status = enum.TabStatusOccupied
	}

	return tab, nil
}

// GetAllTabs reduces every open non-counter target to a summary row for
// the monitor board.
func (s *TabService) GetAllTabs(ctx context.Context, companyID uuid.UUID) ([]domain.TabSummary, error) {
	targets, err := s.store.ListActiveTargets(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list active targets: %w", err)
	}

	open := make(map[tabKey]bool, len(targets))
	summaries := make([]domain.TabSummary, len(targets))
	for i, t := range targets {
		key := tabKey{companyID, t.TargetType, t.TargetNumber}
		open[key] = true
		status := enum.TabStatusOccupied
		if s.isReady(key) {
			status = enum.TabStatusReadyToPay
		}
		summaries[i] = domain.TabSummary{
			TargetType:   t.TargetType,
			TargetNumber: t.TargetNumber,
			Status:       status,
			Total:        t.Total.Round(2),
			CustomerName: t.CustomerName,
		}
	}

	// Drop stale flags for keys that no longer have open orders.
	s.mu.Lock()
	for key := range s.readyToPay {
		if key.companyID == companyID && !open[key] {
			delete(s.readyToPay, key)
		}
	}
	s.mu.Unlock()

	return summaries, nil
}

// MarkReadyToPay flags an occupied tab as awaiting payment. Marking an
// empty tab is rejected so the monitor board cannot show a payable
// available table.
func (s *TabService) MarkReadyToPay(ctx context.Context, companyID uuid.UUID, targetType, targetNumber string) error {
	if !isTabTarget(targetType) {
		return ErrInvalidTargetType
	}

	orders, err := s.store.ListActiveOrdersByTarget(ctx, postgres.ListActiveOrdersByTargetParams{
		CompanyID:    companyID,
		TargetType:   targetType,
		TargetNumber: targetNumber,
	})
	if err != nil {
		return fmt.Errorf("list active orders: %w", err)
	}
	if len(orders) == 0 {
		return ErrEmptyTab
	}

	s.mu.Lock()
	s.readyToPay[tabKey{companyID, targetType, targetNumber}] = true
	s.mu.Unlock()
	return nil
}

// ClearReadyToPay removes the flag, if set. Called after a finalize and
// when a checkout dialog is abandoned.
func (s *TabService) ClearReadyToPay(companyID uuid.UUID, targetType, targetNumber string) {
	s.clearReady(tabKey{companyID, targetType, targetNumber})
}

func (s *TabService) isReady(key tabKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyToPay[key]
}

func (s *TabService) clearReady(key tabKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.readyToPay, key)
}
