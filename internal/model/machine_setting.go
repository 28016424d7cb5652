package model

import "time"

// MachineSetting holds the per-machine configuration: the display group a
// machine belongs to and its weekly/monthly utilization targets in percent.
type MachineSetting struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	MachineName   string    `gorm:"uniqueIndex;size:50;not null" json:"machineName"`
	GroupName     string    `gorm:"index;size:50;not null" json:"groupName"`
	WeeklyTarget  float64   `gorm:"not null;default:50" json:"weeklyTarget"`
	MonthlyTarget float64   `gorm:"not null;default:50" json:"monthlyTarget"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
