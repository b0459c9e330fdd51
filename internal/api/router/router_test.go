package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/config"
	"github.com/Benjamindev1111/pilot-course-system/internal/api/handler"
	"github.com/Benjamindev1111/pilot-course-system/internal/service"
	"github.com/Benjamindev1111/pilot-course-system/pkg/jwt"
)

func newTestRouter(t *testing.T, guards Guards) (http.Handler, *jwt.Manager) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 1 << 20, RateWindow: time.Minute},
		Trace:  config.TraceConfig{ServiceName: "pilot-course-system"},
	}
	mgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "router-test-secret-0123456789",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})

	r, err := Setup(cfg, handler.NewHandler(&service.Service{}), mgr, guards, zap.NewNop())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return r, mgr
}

func TestSetup_HealthAndReady(t *testing.T) {
	r, _ := newTestRouter(t, Guards{Ready: func(context.Context) error { return errors.New("db down") }})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready: expected 503, got %d", w.Code)
	}
}

func TestSetup_Guards(t *testing.T) {
	r, mgr := newTestRouter(t, Guards{})
	studentToken, _ := mgr.GenerateAccessToken("u1", "student")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"未登录预约", "POST", "/api/v1/bookings", "", http.StatusUnauthorized},
		{"未登录修改资料", "PUT", "/api/v1/users/me", "", http.StatusUnauthorized},
		{"学员访问管理端", "POST", "/api/v1/admin/bookings/b1/confirm", studentToken, http.StatusForbidden},
		{"学员导出名单", "GET", "/api/v1/admin/courses/c1/roster.xlsx", studentToken, http.StatusForbidden},
		{"学员创建场地", "POST", "/api/v1/locations", studentToken, http.StatusForbidden},
		{"未知路由", "GET", "/api/v1/unknown", studentToken, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
