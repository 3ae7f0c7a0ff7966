package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/auth"
	"github.com/schooltrack/schooltrack/internal/config"
	"github.com/schooltrack/schooltrack/internal/models"
	"github.com/schooltrack/schooltrack/internal/security"
)

const testSecret = "middleware-secret"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: testSecret, Expiry: time.Hour}
}

// echoRouter mounts AuthMiddleware in front of a handler that echoes the
// claims it received.
func echoRouter(blacklist auth.Blacklist, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/")
	group.Use(AuthMiddleware(testJWTConfig(), blacklist))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":   c.GetString(ContextUserID),
			"role": c.GetString(ContextRole),
		})
	})
	return r
}

func doGet(t *testing.T, r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	r := echoRouter(auth.NewMemoryBlacklist())
	if w := doGet(t, r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_BadFormat(t *testing.T) {
	r := echoRouter(auth.NewMemoryBlacklist())
	token, err := security.SignSessionToken(testSecret, time.Hour, "u1", "u1@example.com", models.RoleSchool)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if w := doGet(t, r, token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing Bearer prefix, got %d", w.Code)
	}
	if w := doGet(t, r, "Bearer "); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for empty token, got %d", w.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	r := echoRouter(auth.NewMemoryBlacklist())
	if w := doGet(t, r, "Bearer not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r := echoRouter(auth.NewMemoryBlacklist())
	token, err := security.SignSessionToken(testSecret, time.Hour, "u1", "u1@example.com", models.RoleSchool)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	w := doGet(t, r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if body == "" || !ContainsAll(body, `"id":"u1"`, `"role":"school"`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	blacklist := auth.NewMemoryBlacklist()
	r := echoRouter(blacklist)
	token, err := security.SignSessionToken(testSecret, time.Hour, "u1", "u1@example.com", models.RoleSchool)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if errRevoke := blacklist.Revoke(context.Background(), token, time.Now().Add(time.Hour)); errRevoke != nil {
		t.Fatalf("revoke: %v", errRevoke)
	}

	if w := doGet(t, r, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", w.Code)
	}
}

// downRevocationStore simulates an unreachable revocation backend.
type downRevocationStore struct{}

func (downRevocationStore) Revoke(context.Context, string, time.Time) error { return nil }
func (downRevocationStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("revocation store unreachable")
}
func (downRevocationStore) Clear(context.Context) error { return nil }

func TestAuthMiddleware_RevocationStoreErrorFailsClosed(t *testing.T) {
	r := echoRouter(downRevocationStore{})
	token, err := security.SignSessionToken(testSecret, time.Hour, "u1", "u1@example.com", models.RoleSchool)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if w := doGet(t, r, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when revocation store is down, got %d", w.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	r := echoRouter(auth.NewMemoryBlacklist(), models.RoleAdmin, models.RoleRTBStaff)

	schoolToken, err := security.SignSessionToken(testSecret, time.Hour, "u1", "u1@example.com", models.RoleSchool)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if w := doGet(t, r, "Bearer "+schoolToken); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for school role, got %d", w.Code)
	}

	adminToken, errAdmin := security.SignSessionToken(testSecret, time.Hour, "u2", "u2@example.com", models.RoleAdmin)
	if errAdmin != nil {
		t.Fatalf("sign token: %v", errAdmin)
	}
	if w := doGet(t, r, "Bearer "+adminToken); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d", w.Code)
	}
}

// ContainsAll reports whether s contains every substring.
func ContainsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
