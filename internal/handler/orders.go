package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *postgres.Store.
type OrderStore interface {
	GetOrder(ctx context.Context, arg postgres.GetOrderParams) (domain.Order, error)
	ListOrders(ctx context.Context, arg postgres.ListOrdersParams) ([]domain.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	ListOrderEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderEvent, error)
	UpdateOrderStatus(ctx context.Context, arg postgres.UpdateOrderStatusParams) (domain.Order, error)
	UpdateOrderItemStatus(ctx context.Context, arg postgres.UpdateOrderItemStatusParams) (domain.OrderItem, error)
	CreateOrderEvent(ctx context.Context, arg postgres.CreateOrderEventParams) (domain.OrderEvent, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a company-scoped subrouter: /companies/{cid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/items/{itemID}/status", h.UpdateItemStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TargetType   string            `json:"target_type"`
	TargetNumber string            `json:"target_number"`
	Source       string            `json:"source"`
	CustomerName string            `json:"customer_name"`
	Items        []cartItemRequest `json:"items"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	CompanyID    uuid.UUID           `json:"company_id"`
	OrderNumber  string              `json:"order_number"`
	TargetType   string              `json:"target_type"`
	TargetNumber string              `json:"target_number"`
	Status       string              `json:"status"`
	Source       string              `json:"source"`
	CustomerName string              `json:"customer_name"`
	IsArchived   bool                `json:"is_archived"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Items        []orderItemResponse  `json:"items,omitempty"`
	Events       []orderEventResponse `json:"events,omitempty"`
}

type orderItemResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProductID           uuid.UUID `json:"product_id"`
	Name                string    `json:"name"`
	Price               string    `json:"price"`
	Quantity            int32     `json:"quantity"`
	RequiresPreparation bool      `json:"requires_preparation"`
	Status              string    `json:"status"`
}

type orderEventResponse struct {
	ID           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	EmployeeName string    `json:"employee_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /companies/{cid}/orders. Staff create INTERNAL
// orders; the customer-facing app creates PUBLIC ones.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TargetType == "" {
		writeError(w, http.StatusBadRequest, "target_type is required")
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

	source := req.Source
	if source == "" {
		source = enum.OrderSourceInternal
	}
	employeeName := claims.UserName
	if source == enum.OrderSourcePublic {
		employeeName = ""
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CompanyID:    companyID,
		TargetType:   req.TargetType,
		TargetNumber: req.TargetNumber,
		Source:       source,
		PlacedBy:     claims.UserID,
		EmployeeName: employeeName,
		CustomerName: req.CustomerName,
		Items:        toServiceItems(req.Items),
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toCreateOrderResponse(result))
}

// List handles GET /companies/{cid}/orders. Query params: mine=true
// restricts to the caller's own orders (customer history),
// include_archived=true adds closed orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := parsePagination(r)

	params := postgres.ListOrdersParams{
		CompanyID:       companyID,
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
		Limit:           int32(limit),
		Offset:          int32(offset),
	}
	if r.URL.Query().Get("mine") == "true" {
		params.PlacedBy = claims.UserID
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil, nil)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /companies/{cid}/orders/{id} with items and the audit
// trail.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), postgres.GetOrderParams{
		ID:        orderID,
		CompanyID: companyID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	events, err := h.store.ListOrderEventsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order events: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items, events))
}

// UpdateStatus handles PATCH /companies/{cid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	if !isValidOrderStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	current, err := h.store.GetOrder(r.Context(), postgres.GetOrderParams{
		ID:        orderID,
		CompanyID: companyID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), postgres.UpdateOrderStatusParams{
		ID:         orderID,
		CompanyID:  companyID,
		Status:     req.Status,
		PrevStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between our read and write.
			writeError(w, http.StatusConflict, "order status changed, please retry")
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if _, err := h.store.CreateOrderEvent(r.Context(), postgres.CreateOrderEventParams{
		OrderID:      orderID,
		Status:       req.Status,
		Message:      statusEventMessage(req.Status),
		EmployeeName: claims.UserName,
	}); err != nil {
		log.Printf("ERROR: record status event: %v", err)
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated, nil, nil))
}

// UpdateItemStatus handles PATCH /companies/{cid}/orders/{id}/items/{itemID}/status.
// Used by the kitchen display to move lines through preparation.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isValidOrderItemStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	// The order lookup pins the item to the company before updating.
	if _, err := h.store.GetOrder(r.Context(), postgres.GetOrderParams{
		ID:        orderID,
		CompanyID: companyID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order for item update: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	item, err := h.store.UpdateOrderItemStatus(r.Context(), postgres.UpdateOrderItemStatusParams{
		ItemID:  itemID,
		OrderID: orderID,
		Status:  req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order item not found")
			return
		}
		log.Printf("ERROR: update order item status: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toOrderItemResponse(item))
}

// --- Helpers ---

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusAccepted, enum.OrderStatusCompleted:
		return true
	}
	return false
}

func isValidOrderItemStatus(s string) bool {
	switch s {
	case enum.OrderItemStatusPending, enum.OrderItemStatusReceived, enum.OrderItemStatusDelivered:
		return true
	}
	return false
}

// allowedTransitions encodes the forward-only order lifecycle.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:  {enum.OrderStatusAccepted, enum.OrderStatusCompleted},
	enum.OrderStatusAccepted: {enum.OrderStatusCompleted},
}

func validateStatusTransition(from, to string) error {
	for _, allowed := range allowedTransitions[from] {
		if to == allowed {
			return nil
		}
	}
	return fmt.Errorf("cannot transition order from %s to %s", from, to)
}

func statusEventMessage(status string) string {
	switch status {
	case enum.OrderStatusAccepted:
		return enum.EventOrderAccepted
	case enum.OrderStatusCompleted:
		return enum.EventOrderCompleted
	}
	return ""
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrInvalidSource) ||
		errors.Is(err, service.ErrInvalidTargetType) ||
		errors.Is(err, service.ErrMissingTargetNumber)
}

func toCreateOrderResponse(result *service.CreateOrderResult) orderResponse {
	return toOrderResponse(result.Order, result.Items, []domain.OrderEvent{result.Event})
}

func toOrderResponse(o domain.Order, items []domain.OrderItem, events []domain.OrderEvent) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		CompanyID:    o.CompanyID,
		OrderNumber:  o.OrderNumber,
		TargetType:   o.TargetType,
		TargetNumber: o.TargetNumber,
		Status:       o.Status,
		Source:       o.Source,
		CustomerName: o.CustomerName,
		IsArchived:   o.IsArchived,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toOrderItemResponse(item))
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, orderEventResponse{
			ID:           ev.ID,
			Status:       ev.Status,
			Message:      ev.Message,
			EmployeeName: ev.EmployeeName,
			CreatedAt:    ev.CreatedAt,
		})
	}
	return resp
}

func toOrderItemResponse(item domain.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:                  item.ID,
		ProductID:           item.ProductID,
		Name:                item.Name,
		Price:               item.Price.StringFixed(2),
		Quantity:            item.Quantity,
		RequiresPreparation: item.RequiresPreparation,
		Status:              item.Status,
	}
}
