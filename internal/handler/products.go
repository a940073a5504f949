package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductStore defines the catalog read methods needed by handlers.
// Satisfied by *postgres.Store.
type ProductStore interface {
	GetProduct(ctx context.Context, arg postgres.GetProductParams) (domain.Product, error)
	ResolveProduct(ctx context.Context, arg postgres.ResolveProductParams) (domain.Product, error)
}

// ProductHandler serves catalog lookups for the operator UI and the
// barcode scanner integration.
type ProductHandler struct {
	store ProductStore
}

func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints, mounted at
// /companies/{cid}/products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/resolve", h.Resolve)
	r.Get("/{id}", h.Get)
}

type productResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Price               string    `json:"price"`
	SKU                 string    `json:"sku"`
	Barcode             string    `json:"barcode"`
	RequiresPreparation bool      `json:"requires_preparation"`
}

// Get handles GET /companies/{cid}/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.store.GetProduct(r.Context(), postgres.GetProductParams{
		ID:        productID,
		CompanyID: companyID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Resolve handles GET /companies/{cid}/products/resolve?barcode=...&sku=...
// Exactly one of barcode or sku must be given; the scanner UI sends
// whichever the scan produced.
func (h *ProductHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID")
		return
	}

	barcode := r.URL.Query().Get("barcode")
	sku := r.URL.Query().Get("sku")
	if (barcode == "") == (sku == "") {
		writeError(w, http.StatusBadRequest, "exactly one of barcode or sku is required")
		return
	}

	product, err := h.store.ResolveProduct(r.Context(), postgres.ResolveProductParams{
		CompanyID: companyID,
		Barcode:   barcode,
		SKU:       sku,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR: resolve product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Price:               p.Price.StringFixed(2),
		SKU:                 p.SKU,
		Barcode:             p.Barcode,
		RequiresPreparation: p.RequiresPreparation,
	}
}
