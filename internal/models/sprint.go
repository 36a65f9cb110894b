package models

import "time"

// Sprint is a time-boxed container of items within a project.
type Sprint struct {
	ID          string     `gorm:"primaryKey;size:32" json:"id"`
	ProjectID   string     `gorm:"size:32;not null;index:idx_sprint_project_status" json:"project_id"`
	Number      int        `gorm:"not null" json:"number"`
	Status      string     `gorm:"size:16;default:ready;index:idx_sprint_project_status" json:"status"`
	Goal        string     `gorm:"type:text" json:"goal"`
	Duration    int        `json:"duration"`     // weeks, fixed at start
	TotalEffort int        `json:"total_effort"` // cached at start
	Velocity    int        `json:"velocity"`     // computed at finish
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Associations []Association `gorm:"foreignKey:SprintID" json:"-"`
}
