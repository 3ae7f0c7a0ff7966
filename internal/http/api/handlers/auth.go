package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/auth"
)

// AuthHandler exposes the authentication flows over HTTP.
type AuthHandler struct {
	svc *auth.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// registerRequest defines the request body for registration.
type registerRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Gender      string `json:"gender"`
}

// Register creates an account and returns a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": errBind.Error()})
		return
	}

	token, user, errRegister := h.svc.Register(c.Request.Context(), auth.RegisterParams{
		FullName:    body.FullName,
		Username:    body.Username,
		Email:       body.Email,
		Password:    body.Password,
		PhoneNumber: body.PhoneNumber,
		Gender:      body.Gender,
	})
	if errRegister != nil {
		if errors.Is(errRegister, auth.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"message": "User with this email or username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// loginRequest defines the request body for password login.
type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// Login verifies credentials and dispatches an OTP. The session token is
// only issued by VerifyOTP.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": errBind.Error()})
		return
	}

	dispatch, errLogin := h.svc.Login(c.Request.Context(), body.EmailOrUsername, body.Password)
	if errLogin != nil {
		if errors.Is(errLogin, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		if errors.Is(errLogin, auth.ErrMailDelivery) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP via email"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, otpDispatchResponse(dispatch))
}

// verifyOTPRequest defines the request body for OTP verification. The
// email field is a deprecated alias for emailOrUsername.
type verifyOTPRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Email           string `json:"email"`
	OTP             string `json:"otp" binding:"required"`
}

// VerifyOTP consumes a login passcode and returns the session token.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var body verifyOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": errBind.Error()})
		return
	}
	identifier := strings.TrimSpace(body.EmailOrUsername)
	if identifier == "" {
		identifier = strings.TrimSpace(body.Email)
	}
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "emailOrUsername is required"})
		return
	}

	token, user, errVerify := h.svc.VerifyOTP(c.Request.Context(), identifier, body.OTP)
	if errVerify != nil {
		if errors.Is(errVerify, auth.ErrInvalidOTP) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired OTP"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// requestOTPRequest defines the request body for the passwordless entry point.
type requestOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestOTP issues a passcode for the email, provisioning an account when
// none exists (passwordless onboarding).
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var body requestOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}

	dispatch, errRequest := h.svc.RequestOTP(c.Request.Context(), body.Email)
	if errRequest != nil {
		if errors.Is(errRequest, auth.ErrMailDelivery) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP via email"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, otpDispatchResponse(dispatch))
}

// otpDispatchResponse shapes an OTP dispatch for the client. The code is
// exposed only when no mail transport is configured.
func otpDispatchResponse(dispatch *auth.OTPDispatch) gin.H {
	if dispatch.Mailed {
		return gin.H{"message": "OTP sent to email"}
	}
	return gin.H{"message": "OTP generated (email not sent)", "otp": dispatch.Code}
}

// forgotPasswordRequest defines the request body for password reset requests.
type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword mails a reset token. The response never reveals whether
// the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var body forgotPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": errBind.Error()})
		return
	}

	if errForgot := h.svc.ForgotPassword(c.Request.Context(), body.Email); errForgot != nil {
		if errors.Is(errForgot, auth.ErrMailDelivery) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send reset email"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset link has been sent"})
}

// resetPasswordRequest defines the request body for password resets.
type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// ResetPassword consumes a reset token and stores the new password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var body resetPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": errBind.Error()})
		return
	}

	if errReset := h.svc.ResetPassword(c.Request.Context(), body.Token, body.NewPassword); errReset != nil {
		if errors.Is(errReset, auth.ErrInvalidResetToken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired token"})
			return
		}
		if errors.Is(errReset, auth.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// Logout revokes the presented bearer token until its natural expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if authHeader == "" || token == authHeader || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No token provided"})
		return
	}

	if errLogout := h.svc.Logout(c.Request.Context(), token); errLogout != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully", "success": true})
}
