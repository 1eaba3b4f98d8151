package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"arbitrage/pkg/crypto"
)

func withDebugCreds(t *testing.T, username, password, passwordHash string) {
	t.Helper()
	prevUser, prevPass, prevHash := debugUsername, debugPassword, debugPasswordHash
	debugUsername, debugPassword, debugPasswordHash = username, password, passwordHash
	os.Setenv("ENV", "production") // force the credential-required path
	t.Cleanup(func() {
		debugUsername, debugPassword, debugPasswordHash = prevUser, prevPass, prevHash
		os.Unsetenv("ENV")
	})
}

func TestDebugAuth_PlaintextPasswordMatch(t *testing.T) {
	withDebugCreds(t, "admin", "hunter2", "")

	handler := DebugAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDebugAuth_WrongPlaintextPasswordRejected(t *testing.T) {
	withDebugCreds(t, "admin", "hunter2", "")

	handler := DebugAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("admin", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestDebugAuth_BcryptHashMatch(t *testing.T) {
	hash, err := crypto.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	withDebugCreds(t, "admin", "", hash)

	handler := DebugAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestDebugAuth_NoCredentialsConfiguredForbiddenInProduction(t *testing.T) {
	withDebugCreds(t, "", "", "")

	handler := DebugAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
