package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/schooltrack/schooltrack/internal/db"
	"github.com/schooltrack/schooltrack/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeviceHandler manages device asset endpoints.
type DeviceHandler struct {
	db *gorm.DB
}

// NewDeviceHandler constructs a DeviceHandler.
func NewDeviceHandler(db *gorm.DB) *DeviceHandler {
	return &DeviceHandler{db: db}
}

// createDeviceRequest defines the request body for device creation.
type createDeviceRequest struct {
	NameTag        string         `json:"nameTag" binding:"required"`
	Category       string         `json:"category" binding:"required"`
	Model          string         `json:"model"`
	SerialNumber   string         `json:"serialNumber"`
	Brand          string         `json:"brand"`
	Specifications datatypes.JSON `json:"specifications"`
	PurchaseDate   *time.Time     `json:"purchaseDate"`
	ExpiredDate    *time.Time     `json:"expiredDate"`
	CurrentStatus  string         `json:"currentStatus"`
	Notes          string         `json:"notes"`
}

// Create registers a new device.
func (h *DeviceHandler) Create(c *gin.Context) {
	var body createDeviceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	status := strings.TrimSpace(body.CurrentStatus)
	if status == "" {
		status = models.DeviceStatusAvailable
	}
	now := time.Now().UTC()
	device := models.Device{
		NameTag:        strings.TrimSpace(body.NameTag),
		Category:       strings.TrimSpace(body.Category),
		Model:          strings.TrimSpace(body.Model),
		SerialNumber:   strings.TrimSpace(body.SerialNumber),
		Brand:          strings.TrimSpace(body.Brand),
		Specifications: body.Specifications,
		PurchaseDate:   body.PurchaseDate,
		ExpiredDate:    body.ExpiredDate,
		CurrentStatus:  status,
		Notes:          body.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&device).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create device failed"})
		return
	}
	c.JSON(http.StatusCreated, device)
}

// List returns devices with optional filters.
func (h *DeviceHandler) List(c *gin.Context) {
	var (
		categoryQ = strings.TrimSpace(c.Query("category"))
		statusQ   = strings.TrimSpace(c.Query("status"))
		schoolQ   = strings.TrimSpace(c.Query("school_id"))
		searchQ   = strings.TrimSpace(c.Query("search"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Device{}).Preload("School")
	if categoryQ != "" {
		q = q.Where("category = ?", categoryQ)
	}
	if statusQ != "" {
		q = q.Where("current_status = ?", statusQ)
	}
	if schoolQ != "" {
		if schoolID, errParse := strconv.ParseUint(schoolQ, 10, 64); errParse == nil {
			q = q.Where("school_id = ?", schoolID)
		}
	}
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "name_tag")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "serial_number"),
			pattern,
			pattern,
		)
	}

	var rows []models.Device
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list devices failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": rows})
}

// Get returns a device by ID.
func (h *DeviceHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var device models.Device
	if errFind := h.db.WithContext(c.Request.Context()).Preload("School").First(&device, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, device)
}

// updateDeviceRequest defines the request body for device updates.
type updateDeviceRequest struct {
	NameTag        *string         `json:"nameTag"`
	Category       *string         `json:"category"`
	Model          *string         `json:"model"`
	SerialNumber   *string         `json:"serialNumber"`
	Brand          *string         `json:"brand"`
	Specifications *datatypes.JSON `json:"specifications"`
	PurchaseDate   *time.Time      `json:"purchaseDate"`
	ExpiredDate    *time.Time      `json:"expiredDate"`
	CurrentStatus  *string         `json:"currentStatus"`
	Notes          *string         `json:"notes"`
}

// Update modifies a device.
func (h *DeviceHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateDeviceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.NameTag != nil {
		nameTag := strings.TrimSpace(*body.NameTag)
		if nameTag != "" {
			updates["name_tag"] = nameTag
		}
	}
	if body.Category != nil {
		updates["category"] = strings.TrimSpace(*body.Category)
	}
	if body.Model != nil {
		updates["model"] = strings.TrimSpace(*body.Model)
	}
	if body.SerialNumber != nil {
		updates["serial_number"] = strings.TrimSpace(*body.SerialNumber)
	}
	if body.Brand != nil {
		updates["brand"] = strings.TrimSpace(*body.Brand)
	}
	if body.Specifications != nil {
		updates["specifications"] = *body.Specifications
	}
	if body.PurchaseDate != nil {
		updates["purchase_date"] = *body.PurchaseDate
	}
	if body.ExpiredDate != nil {
		updates["expired_date"] = *body.ExpiredDate
	}
	if body.CurrentStatus != nil {
		updates["current_status"] = strings.TrimSpace(*body.CurrentStatus)
	}
	if body.Notes != nil {
		updates["notes"] = *body.Notes
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Device{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a device and its issue reports.
func (h *DeviceHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	var device models.Device
	if errFind := h.db.WithContext(ctx).First(&device, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelReports := tx.Where("device_id = ?", id).Delete(&models.IssueReport{}).Error; errDelReports != nil {
			return errDelReports
		}
		return tx.Delete(&models.Device{}, id).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// assignDeviceRequest defines the request body for device assignment.
type assignDeviceRequest struct {
	SchoolID uint64 `json:"schoolId" binding:"required"`
}

// Assign attaches a device to a school and marks it assigned.
func (h *DeviceHandler) Assign(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body assignDeviceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	var school models.School
	if errFind := h.db.WithContext(ctx).First(&school, body.SchoolID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "school not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().UTC()
	res := h.db.WithContext(ctx).Model(&models.Device{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"school_id":      body.SchoolID,
			"assigned_date":  now,
			"current_status": models.DeviceStatusAssigned,
			"updated_at":     now,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assign failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
