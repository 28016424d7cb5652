package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"machine-utilization-backend/internal/notification"
	"machine-utilization-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	alerts  *notification.WorkerPool
}

// NewHandler creates a new API handler. webpushOptions and alerts may be nil
// when push alerts are not configured.
func NewHandler(s store.Store, webpushOptions *webpush.Options, alerts *notification.WorkerPool) *Handler {
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		alerts:  alerts,
	}
}

// timeLayouts are the accepted formats for timestamp query/body parameters,
// tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeParam(value string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
