package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TabServicer defines the tab aggregation methods needed by handlers.
// Satisfied by *service.TabService; narrow interface for testability.
type TabServicer interface {
	GetTab(ctx context.Context, companyID uuid.UUID, targetType, targetNumber string) (*domain.Tab, error)
	GetAllTabs(ctx context.Context, companyID uuid.UUID) ([]domain.TabSummary, error)
	MarkReadyToPay(ctx context.Context, companyID uuid.UUID, targetType, targetNumber string) error
	ClearReadyToPay(companyID uuid.UUID, targetType, targetNumber string)
}

// TabOrderCreator adds a batch of items to a tab as a new order.
// Satisfied by *service.OrderService.
type TabOrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// CheckoutServicer finalizes a sale. Satisfied by *service.CheckoutService.
type CheckoutServicer interface {
	Finalize(ctx context.Context, req service.FinalizeRequest) (*service.FinalizeResult, error)
}

// TabHandler handles tab board, tab detail and checkout endpoints.
type TabHandler struct {
	tabs     TabServicer
	orders   TabOrderCreator
	checkout CheckoutServicer
}

func NewTabHandler(tabs TabServicer, orders TabOrderCreator, checkout CheckoutServicer) *TabHandler {
	return &TabHandler{tabs: tabs, orders: orders, checkout: checkout}
}

// RegisterRoutes registers tab endpoints on the given Chi router.
// Expected to be mounted inside a company-scoped subrouter: /companies/{cid}/tabs
func (h *TabHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Route("/{type}/{number}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/items", h.AddItems)
		r.Post("/ready", h.MarkReady)
		r.Delete("/ready", h.ClearReady)
		r.Post("/checkout", h.Checkout)
	})
}

// RegisterSalesRoutes registers the counter-sale endpoint, mounted at
// /companies/{cid}/sales.
func (h *TabHandler) RegisterSalesRoutes(r chi.Router) {
	r.Post("/", h.CounterSale)
}

// --- Request / Response types ---

type addItemsRequest struct {
	CustomerName string            `json:"customer_name"`
	Items        []cartItemRequest `json:"items"`
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type checkoutRequest struct {
	PaymentMethod string            `json:"payment_method"`
	CustomerName  string            `json:"customer_name"`
	Items         []cartItemRequest `json:"items"`
}

type tabLineResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       string    `json:"price"`
	Quantity    int32     `json:"quantity"`
	Status      string    `json:"status"`
}

type tabResponse struct {
	TargetType   string            `json:"target_type"`
	TargetNumber string            `json:"target_number"`
	Status       string            `json:"status"`
	Total        string            `json:"total"`
	History      []tabLineResponse `json:"history"`
}

type tabSummaryResponse struct {
	TargetType   string `json:"target_type"`
	TargetNumber string `json:"target_number"`
	Status       string `json:"status"`
	Total        string `json:"total"`
	CustomerName string `json:"customer_name"`
}

type saleResponse struct {
	Order       orderResponse       `json:"order"`
	Transaction transactionResponse `json:"transaction"`
	GrandTotal  string              `json:"grand_total"`
}

// --- Handlers ---

// List handles GET /companies/{cid}/tabs.
func (h *TabHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	summaries, err := h.tabs.GetAllTabs(r.Context(), companyID)
	if err != nil {
		log.Printf("ERROR: list tabs: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]tabSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = tabSummaryResponse{
			TargetType:   s.TargetType,
			TargetNumber: s.TargetNumber,
			Status:       s.Status,
			Total:        s.Total.StringFixed(2),
			CustomerName: s.CustomerName,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tabs": resp})
}

// Get handles GET /companies/{cid}/tabs/{type}/{number}.
func (h *TabHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	targetType, targetNumber := targetFromRequest(r)

	tab, err := h.tabs.GetTab(r.Context(), companyID, targetType, targetNumber)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTargetType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("ERROR: get tab: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toTabResponse(tab))
}

// AddItems handles POST /companies/{cid}/tabs/{type}/{number}/items.
// The operator's cart is submitted as one new order on the tab.
func (h *TabHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	targetType, targetNumber := targetFromRequest(r)

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items are required")
		return
	}
	for i, item := range req.Items {
		if item.ProductID == "" {
			writeError(w, http.StatusBadRequest, formatItemError(i, "product_id is required"))
			return
		}
		if item.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, formatItemError(i, "quantity must be > 0"))
			return
		}
	}

	result, err := h.orders.CreateOrder(r.Context(), service.CreateOrderRequest{
		CompanyID:    companyID,
		TargetType:   targetType,
		TargetNumber: targetNumber,
		Source:       enum.OrderSourceInternal,
		PlacedBy:     claims.UserID,
		EmployeeName: claims.UserName,
		CustomerName: req.CustomerName,
		Items:        toServiceItems(req.Items),
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("ERROR: add tab items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toCreateOrderResponse(result))
}

// MarkReady handles POST /companies/{cid}/tabs/{type}/{number}/ready.
func (h *TabHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	targetType, targetNumber := targetFromRequest(r)

	if err := h.tabs.MarkReadyToPay(r.Context(), companyID, targetType, targetNumber); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTargetType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmptyTab):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("ERROR: mark tab ready: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": enum.TabStatusReadyToPay})
}

// ClearReady handles DELETE /companies/{cid}/tabs/{type}/{number}/ready.
// Called when the operator abandons a checkout dialog.
func (h *TabHandler) ClearReady(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	targetType, targetNumber := targetFromRequest(r)

	h.tabs.ClearReadyToPay(companyID, targetType, targetNumber)
	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /companies/{cid}/tabs/{type}/{number}/checkout.
func (h *TabHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	targetType, targetNumber := targetFromRequest(r)
	h.finalize(w, r, companyID, targetType, targetNumber)
}

// CounterSale handles POST /companies/{cid}/sales: a walk-in sale with no
// tab behind it.
func (h *TabHandler) CounterSale(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	h.finalize(w, r, companyID, enum.TargetTypeCounter, "")
}

func (h *TabHandler) finalize(w http.ResponseWriter, r *http.Request, companyID uuid.UUID, targetType, targetNumber string) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.checkout.Finalize(r.Context(), service.FinalizeRequest{
		CompanyID:     companyID,
		TargetType:    targetType,
		TargetNumber:  targetNumber,
		PaymentMethod: req.PaymentMethod,
		CashierID:     claims.UserID,
		CashierName:   claims.UserName,
		CustomerName:  req.CustomerName,
		Cart:          toServiceItems(req.Items),
	})
	if err != nil {
		switch {
		case isOrderValidationError(err) || errors.Is(err, service.ErrInvalidPaymentMethod):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmptyCheckout):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrTransactionFailed):
			log.Printf("ERROR: finalize sale: %v", err)
			writeError(w, http.StatusInternalServerError, "checkout failed, nothing was charged; please retry")
		default:
			log.Printf("ERROR: finalize sale: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	resp := saleResponse{
		Order:       toOrderResponse(result.Order, result.Items, nil),
		Transaction: toTransactionResponse(result.Transaction),
		GrandTotal:  result.GrandTotal.StringFixed(2),
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- Helpers ---

func toServiceItems(items []cartItemRequest) []service.CreateOrderItemRequest {
	out := make([]service.CreateOrderItemRequest, len(items))
	for i, item := range items {
		out[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}
	return out
}

func toTabResponse(tab *domain.Tab) tabResponse {
	history := make([]tabLineResponse, len(tab.History))
	for i, line := range tab.History {
		history[i] = tabLineResponse{
			OrderID:     line.OrderID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Price:       line.Price.StringFixed(2),
			Quantity:    line.Quantity,
			Status:      line.Status,
		}
	}
	return tabResponse{
		TargetType:   tab.TargetType,
		TargetNumber: tab.TargetNumber,
		Status:       tab.Status,
		Total:        tab.Total.StringFixed(2),
		History:      history,
	}
}

type transactionResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	FinishedBy  string    `json:"finished_by"`
}

func toTransactionResponse(t domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        t.Type,
		Category:    t.Category,
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
		Date:        t.Date,
		Status:      t.Status,
		FinishedBy:  t.FinishedBy,
	}
}
