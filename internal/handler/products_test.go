package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockProductStore struct {
	getProductFn     func(ctx context.Context, arg postgres.GetProductParams) (domain.Product, error)
	resolveProductFn func(ctx context.Context, arg postgres.ResolveProductParams) (domain.Product, error)
}

func (m *mockProductStore) GetProduct(ctx context.Context, arg postgres.GetProductParams) (domain.Product, error) {
	if m.getProductFn != nil {
		return m.getProductFn(ctx, arg)
	}
	return domain.Product{}, pgx.ErrNoRows
}

func (m *mockProductStore) ResolveProduct(ctx context.Context, arg postgres.ResolveProductParams) (domain.Product, error) {
	if m.resolveProductFn != nil {
		return m.resolveProductFn(ctx, arg)
	}
	return domain.Product{}, pgx.ErrNoRows
}

func setupProductRouter(store *mockProductStore) *chi.Mux {
	h := handler.NewProductHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/companies/{cid}/products", h.RegisterRoutes)
	return r
}

func TestProductResolve_ByBarcode(t *testing.T) {
	companyID := uuid.New()
	store := &mockProductStore{
		resolveProductFn: func(ctx context.Context, arg postgres.ResolveProductParams) (domain.Product, error) {
			if arg.Barcode != "7891000100101" || arg.SKU != "" {
				t.Errorf("resolve params: %+v", arg)
			}
			return domain.Product{
				ID:      uuid.New(),
				Name:    "X-Burger",
				Price:   money(t, "18.50"),
				Barcode: arg.Barcode,
			}, nil
		},
	}
	router := setupProductRouter(store)

	rr := doAuthRequest(t, router, http.MethodGet,
		"/companies/"+companyID.String()+"/products/resolve?barcode=7891000100101", nil, cashierClaims(companyID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["name"] != "X-Burger" {
		t.Errorf("name: got %v", resp["name"])
	}
	if resp["price"] != "18.50" {
		t.Errorf("price: got %v", resp["price"])
	}
}

func TestProductResolve_RequiresExactlyOneKey(t *testing.T) {
	companyID := uuid.New()
	router := setupProductRouter(&mockProductStore{})

	for _, query := range []string{"", "?barcode=123&sku=AB-01"} {
		rr := doAuthRequest(t, router, http.MethodGet,
			"/companies/"+companyID.String()+"/products/resolve"+query, nil, cashierClaims(companyID))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("query %q: got %d, want 400", query, rr.Code)
		}
	}
}

func TestProductResolve_NotFound(t *testing.T) {
	companyID := uuid.New()
	router := setupProductRouter(&mockProductStore{})

	rr := doAuthRequest(t, router, http.MethodGet,
		"/companies/"+companyID.String()+"/products/resolve?sku=NOPE", nil, cashierClaims(companyID))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
}

func TestProductGet(t *testing.T) {
	companyID := uuid.New()
	productID := uuid.New()
	store := &mockProductStore{
		getProductFn: func(ctx context.Context, arg postgres.GetProductParams) (domain.Product, error) {
			if arg.ID != productID || arg.CompanyID != companyID {
				t.Errorf("get params: %+v", arg)
			}
			return domain.Product{ID: productID, Name: "Suco Natural", Price: money(t, "9.50")}, nil
		},
	}
	router := setupProductRouter(store)

	rr := doAuthRequest(t, router, http.MethodGet,
		"/companies/"+companyID.String()+"/products/"+productID.String(), nil, cashierClaims(companyID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
}
