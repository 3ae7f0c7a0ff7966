package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/models"
	"github.com/schooltrack/schooltrack/internal/security"
	"gorm.io/gorm"
)

// userIDKey matches the context key set by the auth middleware.
const userIDKey = "userID"

// ProfileHandler manages the authenticated user's own account.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// Get returns the caller's public profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetString(userIDKey)
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("id = ?", userID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID,
		"fullName":       user.FullName,
		"username":       user.Username,
		"email":          user.Email,
		"phoneNumber":    user.PhoneNumber,
		"role":           user.Role,
		"gender":         user.Gender,
		"profilePicture": user.ProfilePicture,
		"createdAt":      user.CreatedAt,
	})
}

// updateProfileRequest defines the request body for profile updates.
type updateProfileRequest struct {
	FullName       *string `json:"fullName"`
	PhoneNumber    *string `json:"phoneNumber"`
	Gender         *string `json:"gender"`
	ProfilePicture *string `json:"profilePicture"`
}

// Update modifies the caller's profile fields.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := c.GetString(userIDKey)
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.FullName != nil {
		name := strings.TrimSpace(*body.FullName)
		if name != "" {
			updates["full_name"] = name
		}
	}
	if body.PhoneNumber != nil {
		updates["phone_number"] = strings.TrimSpace(*body.PhoneNumber)
	}
	if body.Gender != nil {
		updates["gender"] = strings.TrimSpace(*body.Gender)
	}
	if body.ProfilePicture != nil {
		updates["profile_picture"] = strings.TrimSpace(*body.ProfilePicture)
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword replaces the caller's password after verifying the
// current one.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID := c.GetString(userIDKey)
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": errBind.Error()})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("id = ?", userID).First(&user).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if !security.VerifyPassword(body.CurrentPassword, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	hash, errHash := security.HashPassword(body.NewPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
