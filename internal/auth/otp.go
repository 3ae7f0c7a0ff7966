package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schooltrack/schooltrack/internal/models"
	"gorm.io/gorm"
)

// OTP format and lifetime defaults.
const (
	otpLength     = 6
	DefaultOTPTTL = 5 * time.Minute
)

// OTPService issues and verifies persisted one-time passcodes.
type OTPService struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewOTPService constructs an OTPService.
func NewOTPService(db *gorm.DB) *OTPService {
	return &OTPService{db: db, nowFn: time.Now}
}

// GenerateNumericCode returns a uniformly random numeric code of the given
// length. Leading zeros are allowed.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("auth: invalid code length %d", length)
	}
	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, errRand := rand.Int(rand.Reader, bound)
	if errRand != nil {
		return "", errRand
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// Issue stores a fresh passcode for the user and returns it with its expiry.
// Prior unconsumed codes stay in place; Verify always selects the newest.
func (s *OTPService) Issue(ctx context.Context, userID string, ttl time.Duration) (*models.Otp, error) {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	code, errCode := GenerateNumericCode(otpLength)
	if errCode != nil {
		return nil, errCode
	}
	now := s.nowFn().UTC()
	otp := models.Otp{
		ID:        uuid.NewString(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		Used:      false,
		CreatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&otp).Error; errCreate != nil {
		return nil, errCreate
	}
	return &otp, nil
}

// Verify consumes the newest unconsumed passcode for the user. A wrong,
// expired, or already-consumed code verifies false. The consumed flag is
// flipped by a conditional update guarded by `used = false`, so concurrent
// verifications of the same code have at most one winner.
func (s *OTPService) Verify(ctx context.Context, userID, submitted string) (bool, error) {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false, nil
	}

	var otp models.Otp
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND used = ?", userID, false).
		Order("created_at DESC").
		First(&otp).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errFind
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(submitted)) != 1 {
		return false, nil
	}
	if s.nowFn().After(otp.ExpiresAt) {
		return false, nil
	}

	res := s.db.WithContext(ctx).Model(&models.Otp{}).
		Where("id = ? AND used = ?", otp.ID, false).
		Update("used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
