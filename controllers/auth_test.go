package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reviewflow-backend/services"
	"reviewflow-backend/testutil"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

type passwordSettings string

func (p passwordSettings) Get(_ context.Context, key string) (string, bool) {
	if key == services.KeyAdminPassword && p != "" {
		return string(p), true
	}
	return "", false
}

func authRouter(t *testing.T, stored string) *gin.Engine {
	ac := &AuthController{
		Settings:  passwordSettings(stored),
		JWTSecret: "test-secret",
		Expiry:    time.Hour,
		Log:       testutil.Logger(t),
	}
	r := gin.New()
	r.POST("/api/auth/login", ac.Login)
	r.GET("/api/auth/me", utils.AuthMiddleware("test-secret"), ac.Me)
	return r
}

func TestLogin(t *testing.T) {
	hashed, err := utils.HashPassword("open-sesame")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	for _, stored := range []string{"open-sesame", hashed} {
		r := authRouter(t, stored)

		w := serve(r, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "wrong"}))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("wrong password: want 401, got %d", w.Code)
		}

		w = serve(r, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "open-sesame"}))
		if w.Code != http.StatusOK {
			t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
		}
		cookies := w.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != utils.SessionCookie || !cookies[0].HttpOnly {
			t.Fatalf("unexpected cookies %+v", cookies)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(cookies[0])
		if w := serve(r, req); w.Code != http.StatusOK {
			t.Fatalf("session cookie rejected: %d", w.Code)
		}
	}
}

func TestLoginWithoutConfiguredPassword(t *testing.T) {
	w := serve(authRouter(t, ""), jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "anything"}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

func TestMeRequiresSession(t *testing.T) {
	r := authRouter(t, "pw")
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 for a bad token, got %d", w.Code)
	}
}
