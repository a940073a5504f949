package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// LedgerStore defines the append-only ledger methods needed by handlers.
// Satisfied by *postgres.Store.
type LedgerStore interface {
	CreateStockMovement(ctx context.Context, arg postgres.CreateStockMovementParams) (domain.StockMovement, error)
	ListStockMovements(ctx context.Context, arg postgres.ListStockMovementsParams) ([]domain.StockMovement, error)
	GetStockLevel(ctx context.Context, arg postgres.GetStockLevelParams) (int64, error)
	ListTransactions(ctx context.Context, arg postgres.ListTransactionsParams) ([]domain.Transaction, error)
}

// LedgerHandler serves the stock and money ledgers. Both are append-only:
// levels and balances are sums, never stored state.
type LedgerHandler struct {
	store LedgerStore
}

func NewLedgerHandler(store LedgerStore) *LedgerHandler {
	return &LedgerHandler{store: store}
}

// RegisterStockRoutes registers stock endpoints, mounted at
// /companies/{cid}/stock.
func (h *LedgerHandler) RegisterStockRoutes(r chi.Router) {
	r.Get("/movements", h.ListMovements)
	r.Post("/movements", h.CreateMovement)
	r.Get("/{productID}/level", h.GetLevel)
}

// RegisterTransactionRoutes registers money-ledger endpoints, mounted at
// /companies/{cid}/transactions.
func (h *LedgerHandler) RegisterTransactionRoutes(r chi.Router) {
	r.Get("/", h.ListTransactions)
}

// --- Request / Response types ---

type createMovementRequest struct {
	ProductID string `json:"product_id"`
	Delta     int32  `json:"delta"`
	Reason    string `json:"reason"`
}

type stockMovementResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Delta     int32     `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type stockLevelResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Level     int64     `json:"level"`
}

// --- Handlers ---

// CreateMovement handles POST /companies/{cid}/stock/movements: manual
// adjustments such as restocks and spoilage write-offs. Sale deductions
// never go through here; checkout writes those itself.
func (h *LedgerHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	var req createMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product_id")
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	m, err := h.store.CreateStockMovement(r.Context(), postgres.CreateStockMovementParams{
		CompanyID: companyID,
		ProductID: productID,
		Delta:     req.Delta,
		Reason:    req.Reason,
	})
	if err != nil {
		log.Printf("ERROR: create stock movement: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toMovementResponse(m))
}

// ListMovements handles GET /companies/{cid}/stock/movements with an
// optional product_id filter.
func (h *LedgerHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	limit, offset := parsePagination(r)

	params := postgres.ListStockMovementsParams{
		CompanyID: companyID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	}
	if s := r.URL.Query().Get("product_id"); s != "" {
		productID, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product_id")
			return
		}
		params.ProductID = productID
	}

	movements, err := h.store.ListStockMovements(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list stock movements: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]stockMovementResponse, len(movements))
	for i, m := range movements {
		resp[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"movements": resp,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetLevel handles GET /companies/{cid}/stock/{productID}/level.
func (h *LedgerHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	level, err := h.store.GetStockLevel(r.Context(), postgres.GetStockLevelParams{
		CompanyID: companyID,
		ProductID: productID,
	})
	if err != nil {
		log.Printf("ERROR: get stock level: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, stockLevelResponse{ProductID: productID, Level: level})
}

// ListTransactions handles GET /companies/{cid}/transactions.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	limit, offset := parsePagination(r)

	transactions, err := h.store.ListTransactions(r.Context(), postgres.ListTransactionsParams{
		CompanyID: companyID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list transactions: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]transactionResponse, len(transactions))
	for i, t := range transactions {
		resp[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": resp,
		"limit":        limit,
		"offset":       offset,
	})
}

func toMovementResponse(m domain.StockMovement) stockMovementResponse {
	return stockMovementResponse{
		ID:        m.ID,
		ProductID: m.ProductID,
		Delta:     m.Delta,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}
