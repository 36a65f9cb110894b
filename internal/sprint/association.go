package sprint

import (
	"fmt"
	"log"
	"slices"

	"github.com/zulandar/sprintyard/internal/item"
	"github.com/zulandar/sprintyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MoveItemToSprint associates an item and its descendants with a sprint.
// Every item in the subtree takes the sprint's status and gets a fresh
// association in To Do. The item is re-parented under parentID, or becomes a
// root when parentID is empty. Descendants that are already finished are
// left alone. A missing item or sprint makes this a no-op.
func MoveItemToSprint(db *gorm.DB, itemID, sprintID, parentID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		it, s, err := resolve(tx, itemID, sprintID)
		if err != nil || it == nil || s == nil {
			return err
		}
		parent, err := item.Find(tx, parentID)
		if err != nil {
			return err
		}

		nodes, err := cascade(tx, *it)
		if err != nil {
			return err
		}
		ids := item.IDs(nodes)
		if err := setStatus(tx, ids, models.ItemStatusForSprint(s.Status)); err != nil {
			return err
		}
		if err := setParent(tx, it.ID, parent); err != nil {
			return err
		}

		moved := now()
		assocs := make([]models.Association, len(ids))
		for i, id := range ids {
			assocs[i] = models.Association{
				ItemID:          id,
				SprintID:        s.ID,
				TaskBoardStatus: models.BoardToDo,
				LastMoved:       moved,
			}
		}
		return upsertAssociations(tx, assocs)
	})
}

// RemoveItemFromSprint undoes MoveItemToSprint. The associations of the
// item and its descendants with the sprint are deleted and their status
// returns to backlog, or to the status of parentID when one is given.
// Without an existing association for the item this is a no-op.
func RemoveItemFromSprint(db *gorm.DB, itemID, sprintID, parentID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		it, s, err := resolve(tx, itemID, sprintID)
		if err != nil || it == nil || s == nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Association{}).
			Where("item_id = ? AND sprint_id = ?", it.ID, s.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("sprint: find association %s/%s: %w", it.ID, s.ID, err)
		}
		if count == 0 {
			return nil
		}
		parent, err := item.Find(tx, parentID)
		if err != nil {
			return err
		}

		nodes, err := cascade(tx, *it)
		if err != nil {
			return err
		}
		ids := item.IDs(nodes)
		if err := tx.Where("sprint_id = ? AND item_id IN ?", s.ID, ids).
			Delete(&models.Association{}).Error; err != nil {
			return fmt.Errorf("sprint: remove %s from %s: %w", it.ID, s.ID, err)
		}
		status := models.ItemBacklog
		if parent != nil {
			status = parent.Status
		}
		if err := setStatus(tx, ids, status); err != nil {
			return err
		}
		return setParent(tx, it.ID, parent)
	})
}

// ReparentAssociation reconciles an item's sprint association after it was
// dragged under parentID:
//
//	item backlog,  parent backlog       -> nothing to do
//	item backlog,  parent ready/active  -> MoveItemToSprint
//	item ready/active, parent backlog   -> RemoveItemFromSprint
//	item ready/active, parent in sprint -> nothing to do
//
// Any other combination is logged and left untouched.
func ReparentAssociation(db *gorm.DB, itemID, sprintID, parentID string) error {
	it, err := item.Find(db, itemID)
	if err != nil {
		return err
	}
	parent, err := item.Find(db, parentID)
	if err != nil {
		return err
	}
	if it == nil || parent == nil {
		return nil
	}

	scheduled := []string{models.ItemReady, models.ItemActive}
	switch {
	case it.Status == models.ItemBacklog && parent.Status == models.ItemBacklog:
		return nil
	case it.Status == models.ItemBacklog && slices.Contains(scheduled, parent.Status):
		return MoveItemToSprint(db, itemID, sprintID, parentID)
	case slices.Contains(scheduled, it.Status) && parent.Status == models.ItemBacklog:
		return RemoveItemFromSprint(db, itemID, sprintID, parentID)
	case slices.Contains(scheduled, it.Status) && it.Status == parent.Status:
		same, err := sharesSprint(db, it.ID, parent.ID)
		if err != nil {
			return err
		}
		if same {
			return nil
		}
	}
	log.Printf("sprint: reparent %s under %s left unchanged (item %s, parent %s)",
		it.ID, parent.ID, it.Status, parent.Status)
	return nil
}

// IncrementTaskBoardStatus moves an item delta columns along the task board
// of an active sprint, clamped to the first and last column. last_moved is
// only touched when the column actually changes. It returns the resulting
// association, or nil when the sprint is not active or the item is not on
// its board.
func IncrementTaskBoardStatus(db *gorm.DB, sprintID, itemID string, delta int) (*models.Association, error) {
	var out *models.Association
	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := Find(tx, sprintID)
		if err != nil {
			return err
		}
		if s == nil || s.Status != models.SprintActive {
			return nil
		}
		var a models.Association
		result := tx.Where("item_id = ? AND sprint_id = ?", itemID, sprintID).Limit(1).Find(&a)
		if result.Error != nil {
			return fmt.Errorf("sprint: find association %s/%s: %w", itemID, sprintID, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		cur := max(slices.Index(models.BoardColumns, a.TaskBoardStatus), 0)
		next := min(max(cur+delta, 0), len(models.BoardColumns)-1)
		if next != cur {
			a.TaskBoardStatus = models.BoardColumns[next]
			a.LastMoved = now()
			if err := tx.Model(&models.Association{}).
				Where("item_id = ? AND sprint_id = ?", itemID, sprintID).
				Updates(map[string]interface{}{
					"task_board_status": a.TaskBoardStatus,
					"last_moved":        a.LastMoved,
				}).Error; err != nil {
				return fmt.Errorf("sprint: move %s on board of %s: %w", itemID, sprintID, err)
			}
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FollowParent puts a newly created item into the sprint its parent is
// scheduled in, if any.
func FollowParent(db *gorm.DB, it *models.Item) error {
	if it == nil || it.ParentID == nil {
		return nil
	}
	parent, err := item.Find(db, *it.ParentID)
	if err != nil || parent == nil {
		return err
	}
	if parent.Status != models.ItemReady && parent.Status != models.ItemActive {
		return nil
	}
	var a models.Association
	result := db.Where("item_id = ? AND sprint_id IN (?)", parent.ID,
		db.Model(&models.Sprint{}).Select("id").Where("status = ?", parent.Status)).
		Limit(1).Find(&a)
	if result.Error != nil {
		return fmt.Errorf("sprint: find sprint of %s: %w", parent.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		log.Printf("sprint: parent %s is %s but has no sprint association", parent.ID, parent.Status)
		return nil
	}
	return MoveItemToSprint(db, it.ID, a.SprintID, parent.ID)
}

// Associations lists the associations of a sprint with their items, in
// board order then priority.
func Associations(db *gorm.DB, sprintID string) ([]models.Association, error) {
	var assocs []models.Association
	if err := db.Preload("Item").
		Joins("JOIN items ON items.id = associations.item_id").
		Where("associations.sprint_id = ?", sprintID).
		Order("items.priority DESC, items.created_at ASC").
		Find(&assocs).Error; err != nil {
		return nil, fmt.Errorf("sprint: associations of %s: %w", sprintID, err)
	}
	slices.SortStableFunc(assocs, func(a, b models.Association) int {
		return slices.Index(models.BoardColumns, a.TaskBoardStatus) - slices.Index(models.BoardColumns, b.TaskBoardStatus)
	})
	return assocs, nil
}

func resolve(tx *gorm.DB, itemID, sprintID string) (*models.Item, *models.Sprint, error) {
	it, err := item.Find(tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	s, err := Find(tx, sprintID)
	if err != nil {
		return nil, nil, err
	}
	return it, s, nil
}

// cascade returns it followed by its descendants in depth-first order,
// without the descendants that are already finished.
func cascade(tx *gorm.DB, it models.Item) ([]models.Item, error) {
	desc, err := item.Descendants(tx, it.ID)
	if err != nil {
		return nil, err
	}
	nodes := []models.Item{it}
	for _, d := range desc {
		if d.Status != models.ItemFinished {
			nodes = append(nodes, d)
		}
	}
	return nodes, nil
}

func setStatus(tx *gorm.DB, ids []string, status string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Model(&models.Item{}).Where("id IN ?", ids).Update("status", status).Error; err != nil {
		return fmt.Errorf("sprint: set status %s: %w", status, err)
	}
	return nil
}

func setParent(tx *gorm.DB, itemID string, parent *models.Item) error {
	var parentID *string
	if parent != nil && parent.ID != itemID {
		parentID = &parent.ID
	}
	if err := tx.Model(&models.Item{}).Where("id = ?", itemID).Update("parent_id", parentID).Error; err != nil {
		return fmt.Errorf("sprint: set parent of %s: %w", itemID, err)
	}
	return nil
}

// upsertAssociations writes assocs, replacing the board status and move time
// of any that already exist for the same item and sprint.
func upsertAssociations(tx *gorm.DB, assocs []models.Association) error {
	if len(assocs) == 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "sprint_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"task_board_status", "last_moved"}),
	}).Create(&assocs).Error; err != nil {
		return fmt.Errorf("sprint: save associations: %w", err)
	}
	return nil
}

func sharesSprint(db *gorm.DB, a, b string) (bool, error) {
	var count int64
	if err := db.Model(&models.Association{}).
		Where("item_id = ? AND sprint_id IN (?)", a,
			db.Model(&models.Association{}).Select("sprint_id").Where("item_id = ?", b)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("sprint: compare sprints of %s and %s: %w", a, b, err)
	}
	return count > 0, nil
}
