package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/pooltable/internal/auth"
	"github.com/playmatatu/pooltable/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func adminRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.GET("/admin", AdminOnly(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestAdminOnly(t *testing.T) {
	hash, err := auth.HashAdminToken("letmein")
	if err != nil {
		t.Fatal(err)
	}
	r := adminRouter(&config.Config{AdminTokenHash: hash})

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "letmein", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.token != "" {
				req.Header.Set("X-Admin-Token", tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d", w.Code, tc.status)
			}
		})
	}
}

func TestAdminOnlyDisabledWithoutHash(t *testing.T) {
	r := adminRouter(&config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Token", "anything")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestWebSocketCORSCheck(t *testing.T) {
	r := gin.New()
	r.GET("/ws", WebSocketCORSCheck(&config.Config{Environment: "production", FrontendURL: "https://pool.example.com"}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := []struct {
		origin string
		status int
	}{
		{"https://pool.example.com", http.StatusOK},
		{"https://evil.example.com", http.StatusForbidden},
		{"", http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("origin %q: status = %d, want %d", tc.origin, w.Code, tc.status)
		}
	}
}
