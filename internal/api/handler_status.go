package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machine-utilization-backend/internal/report"
)

// GetMachineStatus handles GET /api/machine-status: every configured
// machine joined with its latest observed sample and the weekly/monthly
// actual ratios, plus the distinct group list for table splitting.
func (h *Handler) GetMachineStatus(c *gin.Context) {
	now := time.Now()
	weekStart := report.WeekStart(now)
	monthStart := report.MonthStart(now)

	// The week can begin in the previous month, so fetch from the earlier
	// of the two boundaries.
	since := weekStart
	if monthStart.Before(since) {
		since = monthStart
	}

	snap, err := h.store.StatusSnapshot(c.Request.Context(), since)
	if err != nil {
		log.Printf("machine-status: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve machine status"})
		return
	}

	rows, groups := report.BuildStatusRows(snap.Settings, snap.Logs, snap.Latest, weekStart, monthStart)

	c.JSON(http.StatusOK, gin.H{
		"data":   rows,
		"groups": groups,
		"count":  len(rows),
	})
}
