package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/models"
	"gorm.io/gorm"
)

// DeviceRequestHandler manages device request endpoints.
type DeviceRequestHandler struct {
	db *gorm.DB
}

// NewDeviceRequestHandler constructs a DeviceRequestHandler.
func NewDeviceRequestHandler(db *gorm.DB) *DeviceRequestHandler {
	return &DeviceRequestHandler{db: db}
}

// createRequestRequest defines the request body for device requests.
type createRequestRequest struct {
	SchoolID      uint64 `json:"schoolId" binding:"required"`
	DeviceType    string `json:"deviceType" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	Justification string `json:"justification"`
}

// Create submits a new device request for review.
func (h *DeviceRequestHandler) Create(c *gin.Context) {
	var body createRequestRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	now := time.Now().UTC()
	request := models.DeviceRequest{
		SchoolID:      body.SchoolID,
		DeviceType:    strings.TrimSpace(body.DeviceType),
		Quantity:      body.Quantity,
		Justification: body.Justification,
		Status:        models.RequestStatusPending,
		RequestedBy:   c.GetString(userIDKey),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&request).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create request failed"})
		return
	}
	c.JSON(http.StatusCreated, request)
}

// List returns device requests with optional filters.
func (h *DeviceRequestHandler) List(c *gin.Context) {
	var (
		statusQ = strings.TrimSpace(c.Query("status"))
		schoolQ = strings.TrimSpace(c.Query("school_id"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.DeviceRequest{}).Preload("School")
	if statusQ != "" {
		q = q.Where("status = ?", statusQ)
	}
	if schoolQ != "" {
		if schoolID, errParse := strconv.ParseUint(schoolQ, 10, 64); errParse == nil {
			q = q.Where("school_id = ?", schoolID)
		}
	}

	var rows []models.DeviceRequest
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list requests failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": rows})
}

// reviewRequest defines the request body for request reviews.
type reviewRequest struct {
	Notes string `json:"notes"`
}

// Approve marks a pending request approved.
func (h *DeviceRequestHandler) Approve(c *gin.Context) {
	h.review(c, models.RequestStatusApproved)
}

// Reject marks a pending request rejected.
func (h *DeviceRequestHandler) Reject(c *gin.Context) {
	h.review(c, models.RequestStatusRejected)
}

// review transitions a pending request to the given status. Only pending
// requests can be reviewed.
func (h *DeviceRequestHandler) review(c *gin.Context, status string) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body reviewRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil && errBind.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.DeviceRequest{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(map[string]any{
			"status":       status,
			"review_notes": body.Notes,
			"reviewed_by":  c.GetString(userIDKey),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "pending request not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
