package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/comanda-pos/api/internal/auth"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, userID, companyID, "Maria", "CASHIER")

	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.UserID != userID {
			t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireCompany_MatchingCompany(t *testing.T) {
	companyID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, uuid.New(), companyID, "Maria", "CASHIER")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Authenticate(testSecret)(middleware.RequireCompany(inner))

	req := httptest.NewRequest("GET", "/companies/"+companyID.String()+"/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.SetPathValue("cid", companyID.String())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireCompany_MismatchedCompany(t *testing.T) {
	companyID := uuid.New()
	otherCompanyID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, uuid.New(), companyID, "Maria", "CASHIER")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	handler := middleware.Authenticate(testSecret)(middleware.RequireCompany(inner))

	req := httptest.NewRequest("GET", "/companies/"+otherCompanyID.String()+"/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.SetPathValue("cid", otherCompanyID.String())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireCompany_OwnerBypassesCheck(t *testing.T) {
	companyID := uuid.New()
	otherCompanyID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, uuid.New(), companyID, "Dono", "OWNER")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Authenticate(testSecret)(middleware.RequireCompany(inner))

	req := httptest.NewRequest("GET", "/companies/"+otherCompanyID.String()+"/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.SetPathValue("cid", otherCompanyID.String())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d (OWNER should bypass company check)", rr.Code, http.StatusOK)
	}
}

func TestRequireRole(t *testing.T) {
	token, _ := auth.GenerateToken(testSecret, uuid.New(), uuid.New(), "Maria", "CASHIER")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// CASHIER trying to access OWNER-only endpoint
	handler := middleware.Authenticate(testSecret)(middleware.RequireRole("OWNER", "MANAGER")(inner))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
