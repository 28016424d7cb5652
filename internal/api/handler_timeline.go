package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machine-utilization-backend/internal/model"
	"machine-utilization-backend/internal/report"
	"machine-utilization-backend/internal/store"
	"machine-utilization-backend/internal/timeline"
)

// parseRange validates the required from/to query parameters. On failure it
// writes the 400 response and reports ok=false.
func parseRange(c *gin.Context) (from, to time.Time, ok bool) {
	fromParam := c.Query("from")
	toParam := c.Query("to")
	if fromParam == "" || toParam == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters: from, to"})
		return
	}

	var err error
	if from, err = parseTimeParam(fromParam); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	if to, err = parseTimeParam(toParam); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	return from, to, true
}

// timelineDataRow is the wire shape of GET /api/timeline-data.
type timelineDataRow struct {
	MachineName   string  `json:"machineName"`
	GroupName     string  `json:"groupName"`
	WeeklyTarget  float64 `json:"weeklyTarget"`
	MonthlyTarget float64 `json:"monthlyTarget"`
	RunHour       float64 `json:"runHour"`
	StopHour      float64 `json:"stopHour"`
	WarningHour   float64 `json:"warningHour"`
	ActualRatio1  float64 `json:"actualRatio1"`
	TrueRatio1    float64 `json:"trueRatio1"`
}

// GetTimelineData handles GET /api/timeline-data: per-machine hour totals
// and ratios over an arbitrary [from, to] window.
func (h *Handler) GetTimelineData(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	snap, err := h.store.RangeSnapshot(c.Request.Context(), from, to)
	if err != nil {
		log.Printf("timeline-data: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve timeline data"})
		return
	}

	rows := report.BuildRangeRows(snap.Settings, snap.Logs)
	data := make([]timelineDataRow, 0, len(rows))
	for _, r := range rows {
		data = append(data, timelineDataRow{
			MachineName:   r.MachineName,
			GroupName:     r.GroupName,
			WeeklyTarget:  r.WeeklyTarget,
			MonthlyTarget: r.MonthlyTarget,
			RunHour:       r.RunHour,
			StopHour:      r.StopHour,
			WarningHour:   r.WarningHour,
			ActualRatio1:  r.ActualRatio1,
			TrueRatio1:    r.TrueRatio1,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
}

// segmentRow is the wire shape of GET /api/timeline-segments: the raw log
// rows that feed the timeline reconstruction, with the group joined in.
// GroupName is null for orphaned logs whose machine setting was deleted.
type segmentRow struct {
	ID          int64     `json:"id"`
	MachineName string    `json:"machineName"`
	LogTime     time.Time `json:"logTime"`
	RunHour     float64   `json:"runHour"`
	StopHour    float64   `json:"stopHour"`
	RunStatus   int       `json:"runStatus"`
	StopStatus  int       `json:"stopStatus"`
	GroupName   *string   `json:"groupName"`
}

// GetTimelineSegments handles GET /api/timeline-segments, ordered by
// (machineName, logTime) ascending.
func (h *Handler) GetTimelineSegments(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	snap, err := h.store.RangeSnapshot(c.Request.Context(), from, to)
	if err != nil {
		log.Printf("timeline-segments: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve timeline segments"})
		return
	}

	groupByMachine := make(map[string]string, len(snap.Settings))
	for _, s := range snap.Settings {
		groupByMachine[s.MachineName] = s.GroupName
	}

	data := make([]segmentRow, 0, len(snap.Logs))
	for _, l := range snap.Logs {
		row := segmentRow{
			ID:          l.ID,
			MachineName: l.MachineName,
			LogTime:     l.LogTime,
			RunHour:     l.RunHour,
			StopHour:    l.StopHour,
			RunStatus:   l.RunStatus,
			StopStatus:  l.StopStatus,
		}
		if group, found := groupByMachine[l.MachineName]; found {
			row.GroupName = &group
		}
		data = append(data, row)
	}

	c.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
}

// timelineRow is one machine's fully reconstructed band for the viewer.
type timelineRow struct {
	MachineName  string             `json:"machineName"`
	GroupName    string             `json:"groupName"`
	RunHour      float64            `json:"runHour"`
	StopHour     float64            `json:"stopHour"`
	WarningHour  float64            `json:"warningHour"`
	ActualRatio1 float64            `json:"actualRatio1"`
	ActualRatio2 float64            `json:"actualRatio2"`
	TrueRatio1   float64            `json:"trueRatio1"`
	TrueRatio2   float64            `json:"trueRatio2"`
	WarningRatio float64            `json:"warningRatio"`
	Timeline     []timeline.Segment `json:"timeline"`
}

// GetTimeline handles GET /api/timeline: the range report with each
// machine's reconstructed segment band attached.
func (h *Handler) GetTimeline(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	snap, err := h.store.RangeSnapshot(c.Request.Context(), from, to)
	if err != nil {
		log.Printf("timeline: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve timeline"})
		return
	}

	rows := report.BuildRangeRows(snap.Settings, snap.Logs)
	data := make([]timelineRow, 0, len(rows))
	now := time.Now()
	for _, r := range rows {
		segments := timeline.Build(machineLogs(snap, r.MachineName))
		if len(segments) == 0 {
			if r.RunHour+r.StopHour > 0 {
				// Aggregates without rows: degraded-data fallback band.
				segments = timeline.Fallback(now, r.RunHour, r.StopHour)
			} else {
				segments = timeline.IdleWindow(from, to)
			}
		}
		data = append(data, timelineRow{
			MachineName:  r.MachineName,
			GroupName:    r.GroupName,
			RunHour:      r.RunHour,
			StopHour:     r.StopHour,
			WarningHour:  r.WarningHour,
			ActualRatio1: r.ActualRatio1,
			ActualRatio2: r.ActualRatio2,
			TrueRatio1:   r.TrueRatio1,
			TrueRatio2:   r.TrueRatio2,
			WarningRatio: r.WarningRatio,
			Timeline:     segments,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
}

// machineLogs picks one machine's rows out of the range snapshot,
// preserving the store's (logTime, id) ordering.
func machineLogs(snap *store.RangeData, machineName string) []model.HourLog {
	var logs []model.HourLog
	for _, l := range snap.Logs {
		if l.MachineName == machineName {
			logs = append(logs, l)
		}
	}
	return logs
}

// ExportTimeline handles GET /api/timeline-export: the range report as an
// Excel workbook download.
func (h *Handler) ExportTimeline(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	snap, err := h.store.RangeSnapshot(c.Request.Context(), from, to)
	if err != nil {
		log.Printf("timeline-export: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve timeline data"})
		return
	}

	rows := report.BuildRangeRows(snap.Settings, snap.Logs)
	workbook, err := report.RangeWorkbook(rows, from, to)
	if err != nil {
		log.Printf("timeline-export: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		log.Printf("timeline-export: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	filename := fmt.Sprintf("utilization_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
