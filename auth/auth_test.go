package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte(strings.Repeat("s", MinSecretLen))

func TestGenerateAndValidate(t *testing.T) {
	tok, err := GenerateToken(testSecret, &Claims{UserID: "u1", Email: "u1@example.com"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateToken(testSecret, tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", claims.UserID)
	}
}

func TestValidateExpired(t *testing.T) {
	// WHAT: Expired tokens are rejected.
	// WHY: An expired credential must surface as an authorization failure,
	// never as a valid identity.
	tok, err := GenerateToken(testSecret, &Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(testSecret, tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestShortSecretRejected(t *testing.T) {
	if _, err := GenerateToken([]byte("short"), &Claims{UserID: "u1"}, time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestRequireRejectsMissingBearer(t *testing.T) {
	// WHAT: Without a bearer token, Require returns 401 JSON.
	handler := Middleware(testSecret)(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/notes", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestRequirePassesValidBearer(t *testing.T) {
	tok, err := GenerateToken(testSecret, &Claims{UserID: "u42"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var gotUser string
	handler := Middleware(testSecret)(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserID(r.Context())
	})))

	req := httptest.NewRequest("GET", "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "u42" {
		t.Errorf("UserID = %q, want u42", gotUser)
	}
}
