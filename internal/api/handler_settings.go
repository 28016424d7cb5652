package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"machine-utilization-backend/internal/model"
	"machine-utilization-backend/internal/seed"
	"machine-utilization-backend/internal/store"
)

// GetMachineSettings handles GET /api/machine-settings with an optional
// group filter ("All" or absent means unfiltered).
func (h *Handler) GetMachineSettings(c *gin.Context) {
	settings, err := h.store.ListSettings(c.Request.Context(), c.Query("group"))
	if err != nil {
		log.Printf("machine-settings: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve machine settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings, "count": len(settings)})
}

type createSettingRequest struct {
	MachineName   string   `json:"machineName"`
	GroupName     string   `json:"groupName"`
	WeeklyTarget  *float64 `json:"weeklyTarget"`
	MonthlyTarget *float64 `json:"monthlyTarget"`
}

// CreateMachineSetting handles POST /api/machine-settings.
func (h *Handler) CreateMachineSetting(c *gin.Context) {
	var req createSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MachineName == "" || req.GroupName == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "machineName and groupName are required"})
		return
	}

	setting := model.MachineSetting{
		MachineName:   req.MachineName,
		GroupName:     req.GroupName,
		WeeklyTarget:  50,
		MonthlyTarget: 50,
	}
	if req.WeeklyTarget != nil {
		setting.WeeklyTarget = *req.WeeklyTarget
	}
	if req.MonthlyTarget != nil {
		setting.MonthlyTarget = *req.MonthlyTarget
	}

	if err := h.store.CreateSetting(c.Request.Context(), &setting); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "machineName already exists"})
			return
		}
		log.Printf("machine-settings: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create machine setting"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Created", "data": setting})
}

type updateSettingRequest struct {
	MachineName   *string  `json:"machineName"`
	GroupName     *string  `json:"groupName"`
	WeeklyTarget  *float64 `json:"weeklyTarget"`
	MonthlyTarget *float64 `json:"monthlyTarget"`
}

// UpdateMachineSetting handles PUT /api/machine-settings?id=N with a
// non-empty subset of mutable fields in the body.
func (h *Handler) UpdateMachineSetting(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MachineName == nil && req.GroupName == nil && req.WeeklyTarget == nil && req.MonthlyTarget == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	patch := store.SettingPatch{
		MachineName:   req.MachineName,
		GroupName:     req.GroupName,
		WeeklyTarget:  req.WeeklyTarget,
		MonthlyTarget: req.MonthlyTarget,
	}
	setting, err := h.store.UpdateSetting(c.Request.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "machine setting not found"})
		case errors.Is(err, store.ErrDuplicateName):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "machineName already exists"})
		default:
			log.Printf("machine-settings: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update machine setting"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Updated", "data": setting})
}

// DeleteMachineSetting handles DELETE /api/machine-settings?id=N. Deleting
// a missing id is reported as success with a zero count.
func (h *Handler) DeleteMachineSetting(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}

	deleted, err := h.store.DeleteSetting(c.Request.Context(), id)
	if err != nil {
		log.Printf("machine-settings: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete machine setting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted", "deleted": deleted})
}

// InitSettings handles POST /api/init-settings: idempotent bulk seed of the
// fixed machine list. No-ops with the existing count when data is present.
func (h *Handler) InitSettings(c *gin.Context) {
	count, seeded, err := h.store.SeedSettings(c.Request.Context(), seed.Defaults())
	if err != nil {
		log.Printf("init-settings: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize settings"})
		return
	}

	if !seeded {
		c.JSON(http.StatusOK, gin.H{"message": "Table already has data", "count": count})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Initialized", "count": count})
}

func requireID(c *gin.Context) (int64, bool) {
	idParam := c.Query("id")
	if idParam == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return 0, false
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}
