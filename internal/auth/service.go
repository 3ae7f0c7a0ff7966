package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schooltrack/schooltrack/internal/config"
	"github.com/schooltrack/schooltrack/internal/mail"
	"github.com/schooltrack/schooltrack/internal/models"
	"github.com/schooltrack/schooltrack/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// placeholderPassword marks auto-provisioned accounts that have no usable
// password yet. It can never match a bcrypt verification.
const placeholderPassword = "!"

// Service orchestrates login, OTP verification, logout, and password reset.
type Service struct {
	db        *gorm.DB
	jwtCfg    config.JWTConfig
	otps      *OTPService
	blacklist Blacklist
	mailer    mail.Mailer
	nowFn     func() time.Time
}

// NewService constructs a Service. A nil mailer switches OTP flows into
// dev mode, where issued codes are handed back to the transport layer.
func NewService(db *gorm.DB, jwtCfg config.JWTConfig, otps *OTPService, blacklist Blacklist, mailer mail.Mailer) *Service {
	return &Service{
		db:        db,
		jwtCfg:    jwtCfg,
		otps:      otps,
		blacklist: blacklist,
		mailer:    mailer,
		nowFn:     time.Now,
	}
}

// Blacklist returns the revocation store the service revokes into.
func (s *Service) Blacklist() Blacklist { return s.blacklist }

// PublicUser is the user shape returned to clients. It never carries the
// password hash.
type PublicUser struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	Role           string `json:"role"`
	Gender         string `json:"gender,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func publicUser(u *models.User) PublicUser {
	return PublicUser{
		ID:             u.ID,
		FullName:       u.FullName,
		Username:       u.Username,
		Email:          u.Email,
		PhoneNumber:    u.PhoneNumber,
		Role:           u.Role,
		Gender:         u.Gender,
		ProfilePicture: u.ProfilePicture,
	}
}

// RegisterParams holds inputs for account registration.
type RegisterParams struct {
	FullName    string
	Username    string
	Email       string
	Password    string
	PhoneNumber string
	Gender      string
}

// Register creates an account and returns a session token with the public
// user fields. Welcome mail failures are logged, never surfaced.
func (s *Service) Register(ctx context.Context, p RegisterParams) (string, PublicUser, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	username := strings.TrimSpace(p.Username)

	var existing models.User
	errFind := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", email, username).
		First(&existing).Error
	if errFind == nil {
		return "", PublicUser{}, ErrDuplicateUser
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return "", PublicUser{}, errFind
	}

	hash, errHash := security.HashPassword(p.Password)
	if errHash != nil {
		return "", PublicUser{}, errHash
	}

	now := s.nowFn().UTC()
	user := models.User{
		ID:          uuid.NewString(),
		FullName:    strings.TrimSpace(p.FullName),
		Username:    username,
		Email:       email,
		Password:    hash,
		PhoneNumber: strings.TrimSpace(p.PhoneNumber),
		Role:        models.RoleSchool,
		Gender:      strings.TrimSpace(p.Gender),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return "", PublicUser{}, errCreate
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Welcome to SchoolTrack, %s! Your account is ready.", user.FullName)
		if errSend := s.mailer.Send(ctx, user.Email, "Welcome to SchoolTrack", body); errSend != nil {
			log.WithError(errSend).Warnf("welcome mail to %s failed", user.Email)
		}
	}

	token, errSign := security.SignSessionToken(s.jwtCfg.Secret, s.jwtCfg.Expiry, user.ID, user.Email, user.Role)
	if errSign != nil {
		return "", PublicUser{}, errSign
	}
	return token, publicUser(&user), nil
}

// OTPDispatch reports an issued passcode. Code is only meant for the
// response body when Mailed is false (mail transport unconfigured).
type OTPDispatch struct {
	Code      string
	Mailed    bool
	Email     string
	ExpiresAt time.Time
}

// Login verifies credentials and dispatches a login passcode. No session
// token is issued until the passcode verifies. Unknown identifiers and bad
// passwords produce the same error.
func (s *Service) Login(ctx context.Context, identifier, password string) (*OTPDispatch, error) {
	user, errFind := s.findByIdentifier(ctx, identifier)
	if errFind != nil {
		if errors.Is(errFind, ErrUserNotFound) {
			log.Infof("login rejected: unknown identifier %q", identifier)
			return nil, ErrInvalidCredentials
		}
		return nil, errFind
	}
	if !security.VerifyPassword(password, user.Password) {
		log.Infof("login rejected: bad password for user %s", user.ID)
		return nil, ErrInvalidCredentials
	}
	return s.dispatchOTP(ctx, user)
}

// VerifyOTP consumes a login passcode and issues the session token.
func (s *Service) VerifyOTP(ctx context.Context, identifier, code string) (string, PublicUser, error) {
	user, errFind := s.findByIdentifier(ctx, identifier)
	if errFind != nil {
		if errors.Is(errFind, ErrUserNotFound) {
			log.Infof("otp rejected: unknown identifier %q", identifier)
			return "", PublicUser{}, ErrInvalidOTP
		}
		return "", PublicUser{}, errFind
	}

	ok, errVerify := s.otps.Verify(ctx, user.ID, code)
	if errVerify != nil {
		return "", PublicUser{}, errVerify
	}
	if !ok {
		return "", PublicUser{}, ErrInvalidOTP
	}

	token, errSign := security.SignSessionToken(s.jwtCfg.Secret, s.jwtCfg.Expiry, user.ID, user.Email, user.Role)
	if errSign != nil {
		return "", PublicUser{}, errSign
	}
	return token, publicUser(user), nil
}

// RequestOTP is the passwordless entry point. Unknown emails are
// auto-provisioned with a placeholder password (passwordless onboarding);
// a fresh passcode is always issued.
func (s *Service) RequestOTP(ctx context.Context, email string) (*OTPDispatch, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		provisioned, errProvision := s.provisionUser(ctx, email)
		if errProvision != nil {
			return nil, errProvision
		}
		user = *provisioned
	} else if errFind != nil {
		return nil, errFind
	}

	return s.dispatchOTP(ctx, &user)
}

// provisionUser creates an account for an unrecognized email with a
// placeholder password and identity derived from the email local-part.
func (s *Service) provisionUser(ctx context.Context, email string) (*models.User, error) {
	localPart := email
	if at := strings.Index(email, "@"); at > 0 {
		localPart = email[:at]
	}

	username := localPart
	var taken int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).Count(&taken).Error; errCount != nil {
		return nil, errCount
	}
	if taken > 0 {
		username = localPart + "-" + uuid.NewString()[:8]
	}

	now := s.nowFn().UTC()
	user := models.User{
		ID:        uuid.NewString(),
		FullName:  localPart,
		Username:  username,
		Email:     email,
		Password:  placeholderPassword,
		Role:      models.RoleSchool,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return nil, errCreate
	}
	log.Infof("passwordless onboarding: provisioned account %s for %s", user.ID, email)
	return &user, nil
}

// dispatchOTP issues a passcode and mails it. The row is committed before
// the send, so a mail failure leaves the code valid.
func (s *Service) dispatchOTP(ctx context.Context, user *models.User) (*OTPDispatch, error) {
	otp, errIssue := s.otps.Issue(ctx, user.ID, DefaultOTPTTL)
	if errIssue != nil {
		return nil, errIssue
	}

	dispatch := &OTPDispatch{
		Code:      otp.Code,
		Email:     user.Email,
		ExpiresAt: otp.ExpiresAt,
	}
	if s.mailer == nil {
		log.Warnf("mail transport not configured, returning OTP for %s in response", user.Email)
		return dispatch, nil
	}

	body := fmt.Sprintf("Your SchoolTrack OTP is %s. It expires in %d minutes.", otp.Code, int(DefaultOTPTTL.Minutes()))
	if errSend := s.mailer.Send(ctx, user.Email, "SchoolTrack OTP", body); errSend != nil {
		log.WithError(errSend).Errorf("otp mail to %s failed", user.Email)
		return nil, fmt.Errorf("%w: %v", ErrMailDelivery, errSend)
	}
	dispatch.Mailed = true
	return dispatch, nil
}

// Logout validates the token and revokes it until its natural expiry.
// Revoking an already-revoked token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, errParse := security.ParseSessionToken(s.jwtCfg.Secret, token)
	if errParse != nil {
		return errParse
	}
	expiresAt := s.nowFn().Add(security.DefaultSessionExpiry)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.blacklist.Revoke(ctx, token, expiresAt)
}

// ForgotPassword issues a short-lived reset token and mails it. The outcome
// for unknown emails is indistinguishable from known ones.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		log.Infof("forgot-password for unknown email %q", email)
		return nil
	}
	if errFind != nil {
		return errFind
	}

	token, errSign := security.SignResetToken(s.jwtCfg.Secret, user.ID)
	if errSign != nil {
		return errSign
	}

	if s.mailer == nil {
		log.Warnf("mail transport not configured, reset token for %s: %s", email, token)
		return nil
	}
	body := fmt.Sprintf("Reset your SchoolTrack password using this token: %s\nThe token expires in 1 hour.", token)
	if errSend := s.mailer.Send(ctx, user.Email, "SchoolTrack password reset", body); errSend != nil {
		log.WithError(errSend).Errorf("reset mail to %s failed", user.Email)
		return fmt.Errorf("%w: %v", ErrMailDelivery, errSend)
	}
	return nil
}

// ResetPassword consumes a reset token and persists the new password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, errParse := security.ParseResetToken(s.jwtCfg.Secret, token)
	if errParse != nil {
		return ErrInvalidResetToken
	}

	var user models.User
	errFind := s.db.WithContext(ctx).Where("id = ?", claims.UserID).First(&user).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if errFind != nil {
		return errFind
	}

	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		return errHash
	}
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"password": hash, "updated_at": s.nowFn().UTC()}).Error
}

// findByIdentifier resolves a user by exact username or email match.
func (s *Service) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrUserNotFound
	}
	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errFind
	}
	return &user, nil
}
