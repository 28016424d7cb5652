package model

import "time"

// HourLog is one append-only sample of a machine's operating state over an
// implicit window ending at LogTime. Rows are never updated; id order is the
// authoritative tiebreak when log times collide.
//
// MachineName is a soft reference to MachineSetting.MachineName: deleting a
// setting leaves its logs queryable but unjoined.
type HourLog struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	LogTime      time.Time `gorm:"index;not null" json:"logTime"`
	MachineName  string    `gorm:"index;size:50;not null" json:"machineName"`
	RunHour      float64   `gorm:"not null" json:"runHour"`
	StopHour     float64   `gorm:"not null" json:"stopHour"`
	WarningHour  float64   `gorm:"not null" json:"warningHour"`
	RunStatus    int       `gorm:"not null" json:"runStatus"`
	StopStatus   int       `gorm:"not null" json:"stopStatus"`
	ReworkStatus *int      `json:"reworkStatus"`
}

// TableName keeps the historical table name used by earlier tooling.
func (HourLog) TableName() string {
	return "machine_hours"
}
