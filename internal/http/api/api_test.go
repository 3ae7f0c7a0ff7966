package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/auth"
	"github.com/schooltrack/schooltrack/internal/db"
	"github.com/schooltrack/schooltrack/internal/models"
	"github.com/schooltrack/schooltrack/internal/security"
	"gorm.io/gorm"
)

// newTestRouter wires the full route table over a throwaway database with
// no mail transport, so issued codes come back in response bodies.
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "schooltrack-api-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	jwtCfg := testJWTConfig()
	svc := auth.NewService(conn, jwtCfg, auth.NewOTPService(conn), auth.NewMemoryBlacklist(), nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, conn, jwtCfg, svc)
	return r, conn
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if errEncode := json.NewEncoder(&buf).Encode(body); errEncode != nil {
			t.Fatalf("encode body: %v", errEncode)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	parsed := map[string]any{}
	if w.Body.Len() > 0 {
		if errDecode := json.Unmarshal(w.Body.Bytes(), &parsed); errDecode != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
		}
	}
	return w, parsed
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w, body := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestLoginFlowEndToEnd(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"fullName":    "Flow User",
		"username":    "flowuser",
		"email":       "flow@example.com",
		"password":    "password123",
		"phoneNumber": "0780000000",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", w.Code)
	}

	// Password alone yields a code, never a session token.
	w, body := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"emailOrUsername": "flow@example.com",
		"password":        "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%v", w.Code, body)
	}
	if _, hasToken := body["token"]; hasToken {
		t.Fatal("login must not issue a session token before OTP verification")
	}
	code, _ := body["otp"].(string)
	if code == "" {
		t.Fatalf("expected dev-mode otp in body, got %v", body)
	}

	w, body = doJSON(t, r, http.MethodPost, "/auth/verify-otp", "", gin.H{
		"emailOrUsername": "flow@example.com",
		"otp":             code,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify-otp: expected 200, got %d body=%v", w.Code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("expected session token, got %v", body)
	}

	// Replaying the consumed code fails.
	if w, _ = doJSON(t, r, http.MethodPost, "/auth/verify-otp", "", gin.H{
		"emailOrUsername": "flow@example.com",
		"otp":             code,
	}); w.Code != http.StatusUnauthorized {
		t.Fatalf("otp replay: expected 401, got %d", w.Code)
	}

	w, body = doJSON(t, r, http.MethodGet, "/api/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d body=%v", w.Code, body)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}

	// The token is revoked until its natural expiry.
	w, body = doJSON(t, r, http.MethodGet, "/api/profile", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout: expected 401, got %d", w.Code)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "revoked") {
		t.Fatalf("expected revocation message, got %v", body)
	}
}

func TestRequestOTPProvisionsAccount(t *testing.T) {
	r, conn := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodPost, "/auth/request-otp", "", gin.H{
		"email": "fresh@example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("request-otp: expected 200, got %d body=%v", w.Code, body)
	}
	code, _ := body["otp"].(string)
	if code == "" {
		t.Fatalf("expected dev-mode otp in body, got %v", body)
	}

	var user models.User
	if errFind := conn.Where("email = ?", "fresh@example.com").First(&user).Error; errFind != nil {
		t.Fatalf("expected provisioned user: %v", errFind)
	}

	// The email field is accepted as a verify identifier.
	w, body = doJSON(t, r, http.MethodPost, "/auth/verify-otp", "", gin.H{
		"email": "fresh@example.com",
		"otp":   code,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify-otp: expected 200, got %d body=%v", w.Code, body)
	}
	if token, _ := body["token"].(string); token == "" {
		t.Fatalf("expected session token, got %v", body)
	}
}

func TestStaffRoutesRequireRole(t *testing.T) {
	r, _ := newTestRouter(t)

	schoolToken, err := security.SignSessionToken(testSecret, 0, "school-user", "s@example.com", models.RoleSchool)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	w, _ := doJSON(t, r, http.MethodPost, "/api/schools", schoolToken, gin.H{
		"name":     "GS Kigali",
		"province": "Kigali",
		"district": "Gasabo",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for school role, got %d", w.Code)
	}

	staffToken, errStaff := security.SignSessionToken(testSecret, 0, "staff-user", "r@example.com", models.RoleRTBStaff)
	if errStaff != nil {
		t.Fatalf("sign token: %v", errStaff)
	}
	w, body := doJSON(t, r, http.MethodPost, "/api/schools", staffToken, gin.H{
		"name":     "GS Kigali",
		"province": "Kigali",
		"district": "Gasabo",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for staff role, got %d body=%v", w.Code, body)
	}
}

func TestRequestCreationRequiresSchoolRole(t *testing.T) {
	r, conn := newTestRouter(t)

	school := models.School{Name: "GS Huye", Province: "South", District: "Huye"}
	if errCreate := conn.Create(&school).Error; errCreate != nil {
		t.Fatalf("seed school: %v", errCreate)
	}
	payload := gin.H{
		"schoolId":      school.ID,
		"deviceType":    "laptop",
		"quantity":      5,
		"justification": "new computer lab",
	}

	techToken, err := security.SignSessionToken(testSecret, 0, "tech-user", "t@example.com", models.RoleTechnician)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if w, _ := doJSON(t, r, http.MethodPost, "/api/requests", techToken, payload); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for technician role, got %d", w.Code)
	}

	schoolToken, errSchool := security.SignSessionToken(testSecret, 0, "school-user", "s@example.com", models.RoleSchool)
	if errSchool != nil {
		t.Fatalf("sign token: %v", errSchool)
	}
	w, body := doJSON(t, r, http.MethodPost, "/api/requests", schoolToken, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for school role, got %d body=%v", w.Code, body)
	}
	if body["Status"] != models.RequestStatusPending {
		t.Fatalf("expected pending status, got %v", body["Status"])
	}
}

func TestInvalidCredentialLoginsLookAlike(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"fullName":    "Known User",
		"username":    "knownuser",
		"email":       "known@example.com",
		"password":    "password123",
		"phoneNumber": "0780000000",
	})

	wUnknown, bodyUnknown := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"emailOrUsername": "ghost@example.com",
		"password":        "password123",
	})
	wBadPass, bodyBadPass := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"emailOrUsername": "known@example.com",
		"password":        "wrong-password",
	})

	if wUnknown.Code != http.StatusUnauthorized || wBadPass.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wUnknown.Code, wBadPass.Code)
	}
	if bodyUnknown["message"] != bodyBadPass["message"] {
		t.Fatalf("expected identical error bodies, got %v vs %v", bodyUnknown, bodyBadPass)
	}
}
