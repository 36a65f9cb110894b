package models

import "time"

// AssociationKey identifies the single association allowed per item and sprint.
type AssociationKey struct {
	ItemID   string
	SprintID string
}

// Association links an item to a sprint and tracks its task-board progress.
type Association struct {
	ItemID          string    `gorm:"primaryKey;size:32" json:"item_id"`
	SprintID        string    `gorm:"primaryKey;size:32;index" json:"sprint_id"`
	TaskBoardStatus string    `gorm:"size:16;default:todo;index" json:"task_board_status"`
	LastMoved       time.Time `gorm:"index" json:"last_moved"`

	Item   Item   `gorm:"foreignKey:ItemID" json:"item,omitzero"`
	Sprint Sprint `gorm:"foreignKey:SprintID" json:"-"`
}

// Key returns the composite key of the association.
func (a Association) Key() AssociationKey {
	return AssociationKey{ItemID: a.ItemID, SprintID: a.SprintID}
}
