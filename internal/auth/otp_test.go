package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schooltrack/schooltrack/internal/db"
	"github.com/schooltrack/schooltrack/internal/models"
	"gorm.io/gorm"
)

// testDB opens a throwaway sqlite database with the schema migrated.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "schooltrack-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

// seedUser inserts a user row and returns its id.
func seedUser(t *testing.T, conn *gorm.DB, email string) string {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		FullName: "Test User",
		Username: email,
		Email:    email,
		Password: "!",
		Role:     models.RoleSchool,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	return user.ID
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", code)
		}
	}

	if _, errBad := GenerateNumericCode(0); errBad == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestOTPIssueAndVerify(t *testing.T) {
	conn := testDB(t)
	svc := NewOTPService(conn)
	userID := seedUser(t, conn, "otp@example.com")
	ctx := context.Background()

	otp, err := svc.Issue(ctx, userID, 0)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	if len(otp.Code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", otp.Code)
	}
	remaining := time.Until(otp.ExpiresAt)
	if remaining < 4*time.Minute || remaining > 6*time.Minute {
		t.Fatalf("expected ~5m ttl, got %s", remaining.String())
	}

	ok, errVerify := svc.Verify(ctx, userID, otp.Code)
	if errVerify != nil {
		t.Fatalf("verify otp: %v", errVerify)
	}
	if !ok {
		t.Fatal("expected fresh code to verify")
	}
}

func TestOTPVerify_Replay(t *testing.T) {
	conn := testDB(t)
	svc := NewOTPService(conn)
	userID := seedUser(t, conn, "replay@example.com")
	ctx := context.Background()

	otp, err := svc.Issue(ctx, userID, DefaultOTPTTL)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	ok, errVerify := svc.Verify(ctx, userID, otp.Code)
	if errVerify != nil || !ok {
		t.Fatalf("expected first verification to succeed, ok=%v err=%v", ok, errVerify)
	}

	ok, errVerify = svc.Verify(ctx, userID, otp.Code)
	if errVerify != nil {
		t.Fatalf("verify otp: %v", errVerify)
	}
	if ok {
		t.Fatal("expected replay of consumed code to fail")
	}
}

func TestOTPVerify_WrongCode(t *testing.T) {
	conn := testDB(t)
	svc := NewOTPService(conn)
	userID := seedUser(t, conn, "wrong@example.com")
	ctx := context.Background()

	otp, err := svc.Issue(ctx, userID, DefaultOTPTTL)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	wrong := "000000"
	if wrong == otp.Code {
		wrong = "000001"
	}
	ok, errVerify := svc.Verify(ctx, userID, wrong)
	if errVerify != nil {
		t.Fatalf("verify otp: %v", errVerify)
	}
	if ok {
		t.Fatal("expected wrong code to fail")
	}

	if ok, _ = svc.Verify(ctx, userID, ""); ok {
		t.Fatal("expected empty code to fail")
	}
}

func TestOTPVerify_Expired(t *testing.T) {
	conn := testDB(t)
	svc := NewOTPService(conn)
	userID := seedUser(t, conn, "expired@example.com")
	ctx := context.Background()

	otp, err := svc.Issue(ctx, userID, DefaultOTPTTL)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	svc.nowFn = func() time.Time { return time.Now().Add(DefaultOTPTTL + time.Minute) }
	ok, errVerify := svc.Verify(ctx, userID, otp.Code)
	if errVerify != nil {
		t.Fatalf("verify otp: %v", errVerify)
	}
	if ok {
		t.Fatal("expected expired code to fail")
	}
}

func TestOTPVerify_ConcurrentSingleWinner(t *testing.T) {
	conn := testDB(t)
	svc := NewOTPService(conn)
	userID := seedUser(t, conn, "race@example.com")
	ctx := context.Background()

	otp, err := svc.Issue(ctx, userID, DefaultOTPTTL)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	// Two verifications of the same code race on the conditional update.
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, errVerify := svc.Verify(ctx, userID, otp.Code)
			if errVerify != nil {
				t.Errorf("verify otp: %v", errVerify)
				return
			}
			results <- ok
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestOTPVerify_NewestWins(t *testing.T) {
	conn := testDB(t)
	svc := NewOTPService(conn)
	userID := seedUser(t, conn, "newest@example.com")
	ctx := context.Background()

	// Force distinct created_at values so ordering is deterministic.
	base := time.Now().UTC()
	svc.nowFn = func() time.Time { return base }
	older, err := svc.Issue(ctx, userID, DefaultOTPTTL)
	if err != nil {
		t.Fatalf("issue older otp: %v", err)
	}
	svc.nowFn = func() time.Time { return base.Add(time.Second) }
	newer, errNewer := svc.Issue(ctx, userID, DefaultOTPTTL)
	if errNewer != nil {
		t.Fatalf("issue newer otp: %v", errNewer)
	}

	svc.nowFn = time.Now
	if older.Code != newer.Code {
		ok, errVerify := svc.Verify(ctx, userID, older.Code)
		if errVerify != nil {
			t.Fatalf("verify otp: %v", errVerify)
		}
		if ok {
			t.Fatal("expected superseded code to fail")
		}
	}

	ok, errVerify := svc.Verify(ctx, userID, newer.Code)
	if errVerify != nil {
		t.Fatalf("verify otp: %v", errVerify)
	}
	if !ok {
		t.Fatal("expected newest code to verify")
	}
}
