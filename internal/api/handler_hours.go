package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"machine-utilization-backend/internal/model"
	"machine-utilization-backend/internal/store"
)

// GetMachineHours handles GET /api/machine-hours with optional machine,
// from, to and limit filters.
func (h *Handler) GetMachineHours(c *gin.Context) {
	filter := store.HourLogFilter{Machine: c.Query("machine")}

	if fromParam := c.Query("from"); fromParam != "" {
		from, err := parseTimeParam(fromParam)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		filter.From = &from
	}
	if toParam := c.Query("to"); toParam != "" {
		to, err := parseTimeParam(toParam)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
			return
		}
		filter.To = &to
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	logs, err := h.store.ListHourLogs(c.Request.Context(), filter)
	if err != nil {
		log.Printf("machine-hours: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve machine hours"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs, "count": len(logs)})
}

type createHoursRequest struct {
	LogTime      string   `json:"logTime"`
	MachineName  string   `json:"machineName"`
	RunHour      *float64 `json:"runHour"`
	StopHour     *float64 `json:"stopHour"`
	WarningHour  float64  `json:"warningHour"`
	RunStatus    int      `json:"runStatus"`
	StopStatus   int      `json:"stopStatus"`
	ReworkStatus *int     `json:"reworkStatus"`
}

// CreateMachineHours handles POST /api/machine-hours: one append-only
// observation per call. A sample arriving with the stop flag set dispatches
// a machine-down alert.
func (h *Handler) CreateMachineHours(c *gin.Context) {
	var req createHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.LogTime == "" || req.MachineName == "" || req.RunHour == nil || req.StopHour == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "logTime, machineName, runHour, stopHour are required"})
		return
	}

	logTime, err := parseTimeParam(req.LogTime)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}

	hourLog := model.HourLog{
		LogTime:      logTime,
		MachineName:  req.MachineName,
		RunHour:      clampNonNegative(*req.RunHour),
		StopHour:     clampNonNegative(*req.StopHour),
		WarningHour:  clampNonNegative(req.WarningHour),
		RunStatus:    req.RunStatus,
		StopStatus:   req.StopStatus,
		ReworkStatus: req.ReworkStatus,
	}

	if err := h.store.AppendHourLog(c.Request.Context(), &hourLog); err != nil {
		log.Printf("machine-hours: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create machine hours"})
		return
	}

	if hourLog.StopStatus == 1 {
		h.dispatchStopAlert(c, hourLog.MachineName)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Created", "data": hourLog})
}

// DeleteMachineHours handles DELETE /api/machine-hours: bulk wipe used only
// when reseeding demo data.
func (h *Handler) DeleteMachineHours(c *gin.Context) {
	deleted, err := h.store.DeleteAllHourLogs(c.Request.Context())
	if err != nil {
		log.Printf("machine-hours: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete machine hours"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted", "deleted": deleted})
}

// dispatchStopAlert queues a machine-down alert for the named machine if
// alerts are configured and the machine has a settings row.
func (h *Handler) dispatchStopAlert(c *gin.Context, machineName string) {
	if h.alerts == nil {
		return
	}
	var setting model.MachineSetting
	if err := h.store.DB().WithContext(c.Request.Context()).
		Where("machine_name = ?", machineName).
		First(&setting).Error; err != nil {
		return
	}
	h.alerts.Dispatch(setting.ID)
}

// clampNonNegative treats malformed negative hour values as 0 rather than
// rejecting the sample.
func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
