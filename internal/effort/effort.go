// Package effort derives effort, velocity and burndown figures from the
// current items and sprint associations. Nothing here writes to the database.
package effort

import (
	"fmt"
	"math"
	"time"

	"github.com/zulandar/sprintyard/internal/models"
	"gorm.io/gorm"
)

// leafOnly restricts an items query to items without children, so effort
// broken down into children is not counted twice.
const leafOnly = "NOT EXISTS (SELECT 1 FROM items AS children WHERE children.parent_id = items.id)"

// Figures are the derived, never-persisted numbers of a project.
type Figures struct {
	TotalEffort          int `json:"total_effort"`
	RemainingEffort      int `json:"remaining_effort"`
	EstimatedTotalEffort int `json:"estimated_total_effort"`
	// EstimatedSprintsNeeded is nil while the team velocity is unknown.
	EstimatedSprintsNeeded *int `json:"estimated_sprints_needed"`
	ExecutedSprints        int  `json:"executed_sprints"`
}

// ForProject computes every derived figure of p.
func ForProject(db *gorm.DB, p models.Project) (*Figures, error) {
	total, err := TotalEffort(db, p.ID)
	if err != nil {
		return nil, err
	}
	remaining, err := RemainingEffort(db, p.ID)
	if err != nil {
		return nil, err
	}
	estimated, err := EstimatedTotalEffort(db, p.ID)
	if err != nil {
		return nil, err
	}
	executed, err := ExecutedSprints(db, p.ID)
	if err != nil {
		return nil, err
	}
	f := &Figures{
		TotalEffort:          total,
		RemainingEffort:      remaining,
		EstimatedTotalEffort: estimated,
		ExecutedSprints:      executed,
	}
	if n, ok := EstimatedSprintsNeeded(total, estimated, p.TeamVelocity); ok {
		f.EstimatedSprintsNeeded = &n
	}
	return f, nil
}

// TotalEffort sums the effort of the project's items that have no children.
func TotalEffort(db *gorm.DB, projectID string) (int, error) {
	var sum int64
	if err := db.Model(&models.Item{}).
		Where("items.project_id = ?", projectID).
		Where(leafOnly).
		Select("COALESCE(SUM(items.effort), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("effort: total of project %s: %w", projectID, err)
	}
	return int(sum), nil
}

// RemainingEffort is TotalEffort minus the effort of finished items.
func RemainingEffort(db *gorm.DB, projectID string) (int, error) {
	total, err := TotalEffort(db, projectID)
	if err != nil {
		return 0, err
	}
	var finished int64
	if err := db.Model(&models.Item{}).
		Where("items.project_id = ? AND items.status = ?", projectID, models.ItemFinished).
		Where(leafOnly).
		Select("COALESCE(SUM(items.effort), 0)").
		Scan(&finished).Error; err != nil {
		return 0, fmt.Errorf("effort: finished effort of project %s: %w", projectID, err)
	}
	return total - int(finished), nil
}

// EstimatedTotalEffort sums the up-front estimates of top-level epics and
// stories.
func EstimatedTotalEffort(db *gorm.DB, projectID string) (int, error) {
	var sum int64
	if err := db.Model(&models.Item{}).
		Where("project_id = ? AND parent_id IS NULL AND type IN ?", projectID,
			[]string{models.TypeEpic, models.TypeStory}).
		Select("COALESCE(SUM(estimated_effort), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("effort: estimated total of project %s: %w", projectID, err)
	}
	return int(sum), nil
}

// EstimatedSprintsNeeded returns ceil(total / velocity). The estimated total
// stands in when nothing has been sized yet. ok is false when velocity is
// not positive, since no forecast exists then.
func EstimatedSprintsNeeded(total, estimatedTotal, velocity int) (n int, ok bool) {
	if velocity <= 0 {
		return 0, false
	}
	base := total
	if base == 0 {
		base = estimatedTotal
	}
	return int(math.Ceil(float64(base) / float64(velocity))), true
}

// ExecutedSprints counts the project's finished sprints.
func ExecutedSprints(db *gorm.DB, projectID string) (int, error) {
	var count int64
	if err := db.Model(&models.Sprint{}).
		Where("project_id = ? AND status = ?", projectID, models.SprintFinished).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("effort: count sprints of project %s: %w", projectID, err)
	}
	return int(count), nil
}

// SprintEffort sums the effort of childless items associated with the sprint.
func SprintEffort(db *gorm.DB, sprintID string) (int, error) {
	var sum int64
	if err := sprintItems(db, sprintID).
		Select("COALESCE(SUM(items.effort), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("effort: sprint %s: %w", sprintID, err)
	}
	return int(sum), nil
}

// Velocity sums the effort of childless items whose task-board status in the
// sprint is done.
func Velocity(db *gorm.DB, sprintID string) (int, error) {
	var sum int64
	if err := sprintItems(db, sprintID).
		Where("associations.task_board_status = ?", models.BoardDone).
		Select("COALESCE(SUM(items.effort), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("effort: velocity of sprint %s: %w", sprintID, err)
	}
	return int(sum), nil
}

// DoneItem is a completed item with the time it reached done.
type DoneItem struct {
	ItemID    string
	Title     string
	Effort    int
	LastMoved time.Time
}

// DoneItems lists the childless items that are done in the sprint, oldest
// completion first.
func DoneItems(db *gorm.DB, sprintID string) ([]DoneItem, error) {
	var rows []DoneItem
	if err := sprintItems(db, sprintID).
		Where("associations.task_board_status = ?", models.BoardDone).
		Select("items.id AS item_id, items.title, items.effort, associations.last_moved").
		Order("associations.last_moved ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("effort: done items of sprint %s: %w", sprintID, err)
	}
	return rows, nil
}

func sprintItems(db *gorm.DB, sprintID string) *gorm.DB {
	return db.Model(&models.Item{}).
		Joins("JOIN associations ON associations.item_id = items.id").
		Where("associations.sprint_id = ?", sprintID).
		Where(leafOnly)
}
