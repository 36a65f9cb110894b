package models

import "time"

// Project owns items and sprints. Effort figures are derived on read and
// never stored here.
type Project struct {
	ID                string    `gorm:"primaryKey;size:32" json:"id"`
	Title             string    `gorm:"not null;uniqueIndex;size:191" json:"title"`
	Description       string    `gorm:"type:text" json:"description"`
	Owner             string    `gorm:"size:64" json:"owner"`
	DevelopersWorking int       `gorm:"default:0" json:"developers_working"`
	TeamVelocity      int       `gorm:"default:0" json:"team_velocity"`
	SprintDuration    int       `gorm:"default:2" json:"sprint_duration"` // weeks
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Items   []Item   `gorm:"foreignKey:ProjectID" json:"-"`
	Sprints []Sprint `gorm:"foreignKey:ProjectID" json:"-"`
}
