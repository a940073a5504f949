package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type mockLedgerStore struct {
	createMovementFn   func(ctx context.Context, arg postgres.CreateStockMovementParams) (domain.StockMovement, error)
	listMovementsFn    func(ctx context.Context, arg postgres.ListStockMovementsParams) ([]domain.StockMovement, error)
	getStockLevelFn    func(ctx context.Context, arg postgres.GetStockLevelParams) (int64, error)
	listTransactionsFn func(ctx context.Context, arg postgres.ListTransactionsParams) ([]domain.Transaction, error)
}

func (m *mockLedgerStore) CreateStockMovement(ctx context.Context, arg postgres.CreateStockMovementParams) (domain.StockMovement, error) {
	return m.createMovementFn(ctx, arg)
}

func (m *mockLedgerStore) ListStockMovements(ctx context.Context, arg postgres.ListStockMovementsParams) ([]domain.StockMovement, error) {
	return m.listMovementsFn(ctx, arg)
}

func (m *mockLedgerStore) GetStockLevel(ctx context.Context, arg postgres.GetStockLevelParams) (int64, error) {
	return m.getStockLevelFn(ctx, arg)
}

func (m *mockLedgerStore) ListTransactions(ctx context.Context, arg postgres.ListTransactionsParams) ([]domain.Transaction, error) {
	return m.listTransactionsFn(ctx, arg)
}

func setupLedgerRouter(store *mockLedgerStore) *chi.Mux {
	h := handler.NewLedgerHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/companies/{cid}/stock", h.RegisterStockRoutes)
	r.Route("/companies/{cid}/transactions", h.RegisterTransactionRoutes)
	return r
}

func TestStockCreateMovement(t *testing.T) {
	companyID := uuid.New()
	productID := uuid.New()
	store := &mockLedgerStore{
		createMovementFn: func(ctx context.Context, arg postgres.CreateStockMovementParams) (domain.StockMovement, error) {
			if arg.Delta != 50 || arg.ProductID != productID {
				t.Errorf("movement params: %+v", arg)
			}
			return domain.StockMovement{
				ID:        uuid.New(),
				CompanyID: arg.CompanyID,
				ProductID: arg.ProductID,
				Delta:     arg.Delta,
				Reason:    arg.Reason,
			}, nil
		},
	}
	router := setupLedgerRouter(store)

	rr := doAuthRequest(t, router, http.MethodPost, "/companies/"+companyID.String()+"/stock/movements", map[string]interface{}{
		"product_id": productID.String(),
		"delta":      50,
		"reason":     enum.StockReasonRestock,
	}, cashierClaims(companyID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
}

func TestStockCreateMovement_ZeroDeltaRejected(t *testing.T) {
	companyID := uuid.New()
	router := setupLedgerRouter(&mockLedgerStore{})

	rr := doAuthRequest(t, router, http.MethodPost, "/companies/"+companyID.String()+"/stock/movements", map[string]interface{}{
		"product_id": uuid.NewString(),
		"delta":      0,
		"reason":     enum.StockReasonRestock,
	}, cashierClaims(companyID))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestStockListMovements_ProductFilter(t *testing.T) {
	companyID := uuid.New()
	productID := uuid.New()
	var got postgres.ListStockMovementsParams
	store := &mockLedgerStore{
		listMovementsFn: func(ctx context.Context, arg postgres.ListStockMovementsParams) ([]domain.StockMovement, error) {
			got = arg
			return []domain.StockMovement{}, nil
		},
	}
	router := setupLedgerRouter(store)

	rr := doAuthRequest(t, router, http.MethodGet,
		"/companies/"+companyID.String()+"/stock/movements?product_id="+productID.String(), nil, cashierClaims(companyID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if got.ProductID != productID {
		t.Errorf("product filter: got %s", got.ProductID)
	}
}

func TestStockGetLevel(t *testing.T) {
	companyID := uuid.New()
	productID := uuid.New()
	store := &mockLedgerStore{
		getStockLevelFn: func(ctx context.Context, arg postgres.GetStockLevelParams) (int64, error) {
			return 42, nil
		},
	}
	router := setupLedgerRouter(store)

	rr := doAuthRequest(t, router, http.MethodGet,
		"/companies/"+companyID.String()+"/stock/"+productID.String()+"/level", nil, cashierClaims(companyID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["level"] != float64(42) {
		t.Errorf("level: got %v, want 42", resp["level"])
	}
}

func TestTransactionList(t *testing.T) {
	companyID := uuid.New()
	store := &mockLedgerStore{
		listTransactionsFn: func(ctx context.Context, arg postgres.ListTransactionsParams) ([]domain.Transaction, error) {
			return []domain.Transaction{{
				ID:          uuid.New(),
				CompanyID:   arg.CompanyID,
				Type:        enum.TransactionTypeIncome,
				Category:    enum.TransactionCategorySale,
				Description: "Venda CMD-000009 (CARD)",
				Amount:      money(t, "29.00"),
				Status:      enum.TransactionStatusCompleted,
			}}, nil
		},
	}
	router := setupLedgerRouter(store)

	rr := doAuthRequest(t, router, http.MethodGet,
		"/companies/"+companyID.String()+"/transactions", nil, cashierClaims(companyID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	rows := resp["transactions"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(rows))
	}
	row := rows[0].(map[string]interface{})
	if row["amount"] != "29.00" {
		t.Errorf("amount: got %v", row["amount"])
	}
}
