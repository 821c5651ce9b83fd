package models

import "gorm.io/gorm"

// MonitorEvent is an audit entry written by background monitor tasks.
type MonitorEvent struct {
	gorm.Model

	Event   string `gorm:"type:varchar(64);not null;index"`
	Details string
}
