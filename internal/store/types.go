package store

import (
	"errors"
	"time"

	"machine-utilization-backend/internal/model"
)

// MaxHourLogLimit caps the page size of hour-log listings.
const MaxHourLogLimit = 1000

var (
	// ErrNotFound reports an update referencing a nonexistent id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateName reports a unique-constraint violation on machine_name.
	ErrDuplicateName = errors.New("machine name already exists")
)

// SettingPatch is a partial update of a machine setting. Nil fields are
// left untouched.
type SettingPatch struct {
	MachineName   *string
	GroupName     *string
	WeeklyTarget  *float64
	MonthlyTarget *float64
}

// HourLogFilter narrows an hour-log listing.
type HourLogFilter struct {
	Machine string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// StatusData is one snapshot-consistent read for the status aggregation:
// all settings, the hour logs observed since the earliest window boundary,
// and the latest observed row per machine.
type StatusData struct {
	Since    time.Time
	Settings []model.MachineSetting
	Logs     []model.HourLog
	Latest   map[string]model.HourLog
}

// RangeData is one snapshot-consistent read for the range/timeline queries.
// Logs are ordered by (machine_name, log_time, id) ascending.
type RangeData struct {
	From     time.Time
	To       time.Time
	Settings []model.MachineSetting
	Logs     []model.HourLog
}
