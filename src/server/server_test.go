package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"agentarena/src/auth"
)

func testDeps() RouterDeps {
	return RouterDeps{AuthCfg: auth.Config{APIKey: "secret"}}
}

func TestHealthcheckIsPublic(t *testing.T) {
	r := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMutatingRouteRejectsMissingAPIKey(t *testing.T) {
	r := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodPost, "/competitions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestInternalRouteRejectsWrongAPIKey(t *testing.T) {
	r := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodPost, "/internal/reset-competition", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
