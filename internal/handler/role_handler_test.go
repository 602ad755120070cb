package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/middleware"
)

// stubRoleService scripts RoleService behavior per test
type stubRoleService struct {
	assignFunc  func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error)
	resolveFunc func(ctx context.Context, userID string) (domain.Role, error)
}

func (s *stubRoleService) AssignRole(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
	return s.assignFunc(ctx, callerID, role, targetUserID)
}

func (s *stubRoleService) ResolveRole(ctx context.Context, userID string) (domain.Role, error) {
	if s.resolveFunc != nil {
		return s.resolveFunc(ctx, userID)
	}
	return domain.RoleNone, nil
}

// asUser injects authenticated claims the way the auth middleware would
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.ContextUserIDKey, userID)
		}
		c.Next()
	}
}

func newRoleRouter(svc *stubRoleService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewRoleHandler(svc)
	router.POST("/api/v1/roles/assign", asUser(userID), h.AssignRole)
	return router
}

func postAssign(t *testing.T, router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/roles/assign", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoleHandler_AssignRole(t *testing.T) {
	t.Run("success returns role", func(t *testing.T) {
		svc := &stubRoleService{
			assignFunc: func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
				if callerID != "caller-1" {
					t.Errorf("callerID = %v, want caller-1", callerID)
				}
				return role, nil
			},
		}
		router := newRoleRouter(svc, "caller-1")

		w := postAssign(t, router, map[string]interface{}{"role": "client"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var resp struct {
			Success bool   `json:"success"`
			Role    string `json:"role"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if !resp.Success || resp.Role != "client" {
			t.Errorf("response = %+v, want success with role client", resp)
		}
	})

	t.Run("missing claims returns 401", func(t *testing.T) {
		svc := &stubRoleService{
			assignFunc: func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
				t.Error("service must not be called without claims")
				return domain.RoleNone, nil
			},
		}
		router := newRoleRouter(svc, "")

		w := postAssign(t, router, map[string]interface{}{"role": "client"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("invalid role returns 400", func(t *testing.T) {
		svc := &stubRoleService{
			assignFunc: func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
				return domain.RoleNone, domain.ErrInvalidRole
			},
		}
		router := newRoleRouter(svc, "caller-1")

		w := postAssign(t, router, map[string]interface{}{"role": "superuser"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("already assigned returns 400", func(t *testing.T) {
		svc := &stubRoleService{
			assignFunc: func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
				return domain.RoleNone, domain.ErrAlreadyAssigned
			},
		}
		router := newRoleRouter(svc, "caller-1")

		w := postAssign(t, router, map[string]interface{}{"role": "coach"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("forbidden returns 403", func(t *testing.T) {
		svc := &stubRoleService{
			assignFunc: func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
				return domain.RoleNone, domain.ErrForbidden
			},
		}
		router := newRoleRouter(svc, "caller-1")

		w := postAssign(t, router, map[string]interface{}{"role": "client", "target_user_id": "other-1"})
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("persistence failure returns 500", func(t *testing.T) {
		svc := &stubRoleService{
			assignFunc: func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
				return domain.RoleNone, context.DeadlineExceeded
			},
		}
		router := newRoleRouter(svc, "caller-1")

		w := postAssign(t, router, map[string]interface{}{"role": "client"})
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})

	t.Run("missing role field returns 400", func(t *testing.T) {
		svc := &stubRoleService{
			assignFunc: func(ctx context.Context, callerID string, role domain.Role, targetUserID string) (domain.Role, error) {
				t.Error("service must not be called on binding failure")
				return domain.RoleNone, nil
			},
		}
		router := newRoleRouter(svc, "caller-1")

		w := postAssign(t, router, map[string]interface{}{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}
