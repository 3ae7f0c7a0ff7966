package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/models"
	"gorm.io/gorm"
)

// IssueReportHandler manages device issue report endpoints.
type IssueReportHandler struct {
	db *gorm.DB
}

// NewIssueReportHandler constructs an IssueReportHandler.
func NewIssueReportHandler(db *gorm.DB) *IssueReportHandler {
	return &IssueReportHandler{db: db}
}

// createReportRequest defines the request body for issue reports.
type createReportRequest struct {
	DeviceID    uint64 `json:"deviceId" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// Create files a new issue report against a device.
func (h *IssueReportHandler) Create(c *gin.Context) {
	var body createReportRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	var device models.Device
	if errFind := h.db.WithContext(ctx).First(&device, body.DeviceID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().UTC()
	report := models.IssueReport{
		DeviceID:    body.DeviceID,
		Description: strings.TrimSpace(body.Description),
		Status:      models.ReportStatusOpen,
		ReportedBy:  c.GetString(userIDKey),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errCreate := h.db.WithContext(ctx).Create(&report).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create report failed"})
		return
	}
	c.JSON(http.StatusCreated, report)
}

// List returns issue reports with optional filters.
func (h *IssueReportHandler) List(c *gin.Context) {
	var (
		statusQ = strings.TrimSpace(c.Query("status"))
		deviceQ = strings.TrimSpace(c.Query("device_id"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.IssueReport{}).Preload("Device")
	if statusQ != "" {
		q = q.Where("status = ?", statusQ)
	}
	if deviceQ != "" {
		if deviceID, errParse := strconv.ParseUint(deviceQ, 10, 64); errParse == nil {
			q = q.Where("device_id = ?", deviceID)
		}
	}

	var rows []models.IssueReport
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list reports failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": rows})
}

// resolveReportRequest defines the request body for report resolution.
type resolveReportRequest struct {
	Notes string `json:"notes"`
}

// Resolve closes an open report with resolution notes.
func (h *IssueReportHandler) Resolve(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body resolveReportRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil && errBind.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	now := time.Now().UTC()
	res := h.db.WithContext(c.Request.Context()).Model(&models.IssueReport{}).
		Where("id = ? AND status <> ?", id, models.ReportStatusResolved).
		Updates(map[string]any{
			"status":           models.ReportStatusResolved,
			"resolution_notes": body.Notes,
			"resolved_by":      c.GetString(userIDKey),
			"resolved_at":      now,
			"updated_at":       now,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "open report not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
