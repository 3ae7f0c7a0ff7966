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
	"gorm.io/gorm"
)

// SchoolHandler manages school endpoints.
type SchoolHandler struct {
	db *gorm.DB
}

// NewSchoolHandler constructs a SchoolHandler.
func NewSchoolHandler(db *gorm.DB) *SchoolHandler {
	return &SchoolHandler{db: db}
}

// createSchoolRequest defines the request body for school creation.
type createSchoolRequest struct {
	Name             string `json:"name" binding:"required"`
	Province         string `json:"province"`
	District         string `json:"district"`
	HeadteacherName  string `json:"headteacherName"`
	HeadteacherPhone string `json:"headteacherPhone"`
}

// Create registers a new school.
func (h *SchoolHandler) Create(c *gin.Context) {
	var body createSchoolRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	now := time.Now().UTC()
	school := models.School{
		Name:             strings.TrimSpace(body.Name),
		Province:         strings.TrimSpace(body.Province),
		District:         strings.TrimSpace(body.District),
		HeadteacherName:  strings.TrimSpace(body.HeadteacherName),
		HeadteacherPhone: strings.TrimSpace(body.HeadteacherPhone),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&school).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create school failed"})
		return
	}
	c.JSON(http.StatusCreated, school)
}

// List returns schools with optional filters.
func (h *SchoolHandler) List(c *gin.Context) {
	var (
		districtQ = strings.TrimSpace(c.Query("district"))
		searchQ   = strings.TrimSpace(c.Query("search"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.School{})
	if districtQ != "" {
		q = q.Where("district = ?", districtQ)
	}
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}

	var rows []models.School
	if errFind := q.Order("name ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list schools failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schools": rows})
}

// Get returns a school by ID with its assigned devices.
func (h *SchoolHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var school models.School
	if errFind := h.db.WithContext(c.Request.Context()).Preload("Devices").First(&school, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, school)
}

// updateSchoolRequest defines the request body for school updates.
type updateSchoolRequest struct {
	Name             *string `json:"name"`
	Province         *string `json:"province"`
	District         *string `json:"district"`
	HeadteacherName  *string `json:"headteacherName"`
	HeadteacherPhone *string `json:"headteacherPhone"`
}

// Update modifies a school.
func (h *SchoolHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateSchoolRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name != "" {
			updates["name"] = name
		}
	}
	if body.Province != nil {
		updates["province"] = strings.TrimSpace(*body.Province)
	}
	if body.District != nil {
		updates["district"] = strings.TrimSpace(*body.District)
	}
	if body.HeadteacherName != nil {
		updates["headteacher_name"] = strings.TrimSpace(*body.HeadteacherName)
	}
	if body.HeadteacherPhone != nil {
		updates["headteacher_phone"] = strings.TrimSpace(*body.HeadteacherPhone)
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.School{}).Where("id = ?", id).Updates(updates)
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

// Delete removes a school and unassigns its devices.
func (h *SchoolHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	var school models.School
	if errFind := h.db.WithContext(ctx).First(&school, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	errTx := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errUnassign := tx.Model(&models.Device{}).
			Where("school_id = ?", id).
			Updates(map[string]any{
				"school_id":      nil,
				"current_status": models.DeviceStatusAvailable,
				"updated_at":     time.Now().UTC(),
			}).Error; errUnassign != nil {
			return errUnassign
		}
		return tx.Delete(&models.School{}, id).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
