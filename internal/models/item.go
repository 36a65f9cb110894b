package models

import "time"

// Item is a unit of work on a project's backlog.
type Item struct {
	ID                 string    `gorm:"primaryKey;size:32" json:"id"`
	ProjectID          string    `gorm:"size:32;not null;index" json:"project_id"`
	Title              string    `gorm:"not null;size:191" json:"title"`
	Description        string    `gorm:"type:text" json:"description,omitempty"`
	AcceptanceCriteria string    `gorm:"type:text" json:"acceptance_criteria,omitempty"`
	Type               string    `gorm:"size:16;default:task" json:"type"`
	Status             string    `gorm:"size:16;default:backlog;index" json:"status"`
	Priority           int       `gorm:"default:3" json:"priority"` // 1 (lowest) .. 5 (highest)
	Effort             int       `gorm:"default:0" json:"effort"`
	EstimatedEffort    int       `gorm:"default:0" json:"estimated_effort"`
	ParentID           *string   `gorm:"size:32;index" json:"parent_id"`
	Owner              string    `gorm:"size:64" json:"owner,omitempty"`
	Assignee           string    `gorm:"size:64" json:"assignee,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Parent   *Item  `gorm:"foreignKey:ParentID" json:"-"`
	Children []Item `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
