package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newProtectedHandler() http.Handler {
	return RequireAPIKey(Config{APIKey: "secret"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsAuthenticated(r.Context()) {
			w.Header().Set("X-Authenticated", "true")
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAPIKeyRejectsMissingHeaderWith422(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/competitions", nil)
	rec := httptest.NewRecorder()

	newProtectedHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestRequireAPIKeyRejectsWrongKeyWith401(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/competitions", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()

	newProtectedHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAPIKeyAllowsCorrectKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/competitions", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()

	newProtectedHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Authenticated") != "true" {
		t.Fatal("expected the wrapped handler to observe IsAuthenticated(ctx) == true")
	}
}
