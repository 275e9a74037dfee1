package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xisxus/ConnectApp/internal/auth"
)

func TestAuthMiddlewareValidCookie(t *testing.T) {
	var gotUsername string
	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUsername = Username(r)
	}))

	req, _ := http.NewRequest("GET", "/groups", nil)
	req.AddCookie(&http.Cookie{Name: auth.IdentityCookie, Value: auth.SignIdentity("alice")})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if gotUsername != "alice" {
		t.Errorf("Expected username alice in context, got %q", gotUsername)
	}
}

func TestAuthMiddlewareMissingCookie(t *testing.T) {
	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached without a cookie")
	}))

	req, _ := http.NewRequest("GET", "/groups", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareTamperedCookie(t *testing.T) {
	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be reached with a tampered cookie")
	}))

	signed := auth.SignIdentity("alice")
	req, _ := http.NewRequest("GET", "/groups", nil)
	req.AddCookie(&http.Cookie{Name: auth.IdentityCookie, Value: "x" + signed})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusUnauthorized)
	}
}
