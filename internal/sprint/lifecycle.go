// Package sprint implements the backlog–sprint association engine and the
// sprint state machine (ready → active → finished → next ready).
package sprint

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/item"
	"github.com/zulandar/sprintyard/internal/models"
	"gorm.io/gorm"
)

// ErrZeroEffort is returned when starting a sprint whose items carry no
// effort. The sprint stays ready.
var ErrZeroEffort = errors.New("sprint: cannot start a sprint with zero effort")

// ErrNotFound is returned when a sprint ID does not resolve.
var ErrNotFound = errors.New("sprint: not found")

// DefaultGoal is stored when a sprint is started without a goal.
const DefaultGoal = "Goal not specified"

// now is the clock used for start/finish dates and board moves.
var now = time.Now

// FinishResult describes a finished sprint and where its unfinished work went.
type FinishResult struct {
	Sprint      *models.Sprint `json:"sprint"`
	Next        *models.Sprint `json:"next"`
	CarriedOver int            `json:"carried_over"`
	Completed   int            `json:"completed"`
}

// CreateReady returns the project's ready sprint, creating it with the next
// sprint number when there is none.
func CreateReady(db *gorm.DB, projectID string) (*models.Sprint, error) {
	existing, err := findByStatus(db, projectID, models.SprintReady)
	if err != nil || existing != nil {
		return existing, err
	}

	var last int64
	if err := db.Model(&models.Sprint{}).Where("project_id = ?", projectID).
		Select("COALESCE(MAX(number), 0)").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("sprint: last number of project %s: %w", projectID, err)
	}
	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}
	s := models.Sprint{
		ID:        id,
		ProjectID: projectID,
		Number:    int(last) + 1,
		Status:    models.SprintReady,
	}
	if err := db.Create(&s).Error; err != nil {
		return nil, fmt.Errorf("sprint: create ready sprint for %s: %w", projectID, err)
	}
	return &s, nil
}

// Get retrieves a sprint by ID.
func Get(db *gorm.DB, id string) (*models.Sprint, error) {
	s, err := Find(db, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Find looks up a sprint by ID. A missing sprint yields (nil, nil).
func Find(db *gorm.DB, id string) (*models.Sprint, error) {
	if id == "" {
		return nil, nil
	}
	var s models.Sprint
	result := db.Where("id = ?", id).Limit(1).Find(&s)
	if result.Error != nil {
		return nil, fmt.Errorf("sprint: find %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &s, nil
}

// List returns every sprint of a project, newest first.
func List(db *gorm.DB, projectID string) ([]models.Sprint, error) {
	var sprints []models.Sprint
	if err := db.Where("project_id = ?", projectID).Order("number DESC").Find(&sprints).Error; err != nil {
		return nil, fmt.Errorf("sprint: list for %s: %w", projectID, err)
	}
	return sprints, nil
}

// Current returns the project's ready sprint, or its active sprint when no
// ready one exists.
func Current(db *gorm.DB, projectID string) (*models.Sprint, error) {
	s, err := findByStatus(db, projectID, models.SprintReady)
	if err != nil || s != nil {
		return s, err
	}
	return findByStatus(db, projectID, models.SprintActive)
}

// Active returns the project's active sprint, or nil.
func Active(db *gorm.DB, projectID string) (*models.Sprint, error) {
	return findByStatus(db, projectID, models.SprintActive)
}

// History returns the project's finished sprints in the order they ran,
// skipping sprints that never held any item.
func History(db *gorm.DB, projectID string) ([]models.Sprint, error) {
	var sprints []models.Sprint
	if err := db.Where("project_id = ? AND status = ?", projectID, models.SprintFinished).
		Where("EXISTS (SELECT 1 FROM associations WHERE associations.sprint_id = sprints.id)").
		Order("number ASC").
		Find(&sprints).Error; err != nil {
		return nil, fmt.Errorf("sprint: history of %s: %w", projectID, err)
	}
	return sprints, nil
}

// StartSprint activates a ready sprint. The sprint's effort is cached, the
// planned end date is set from the project's sprint duration, and every
// associated item becomes active. A sprint with zero effort is rejected with
// ErrZeroEffort. Starting a sprint that is missing or not ready, or while the
// project already has an active sprint, is a logged no-op returning nil.
func StartSprint(db *gorm.DB, sprintID, goal string) (*models.Sprint, error) {
	var started *models.Sprint
	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := Find(tx, sprintID)
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		if s.Status != models.SprintReady {
			log.Printf("sprint: start %s ignored, status is %s", s.ID, s.Status)
			return nil
		}
		active, err := findByStatus(tx, s.ProjectID, models.SprintActive)
		if err != nil {
			return err
		}
		if active != nil {
			log.Printf("sprint: start %s ignored, %s is still active", s.ID, active.ID)
			return nil
		}

		total, err := effort.SprintEffort(tx, s.ID)
		if err != nil {
			return err
		}
		if total <= 0 {
			return ErrZeroEffort
		}

		var p models.Project
		if err := tx.Where("id = ?", s.ProjectID).First(&p).Error; err != nil {
			return fmt.Errorf("sprint: load project %s: %w", s.ProjectID, err)
		}
		start := now()
		weeks := max(p.SprintDuration, 1)
		end := time.Date(start.Year(), start.Month(), start.Day()+7*weeks,
			23, 59, 59, int(999*time.Millisecond), start.Location())
		goal = strings.TrimSpace(goal)
		if goal == "" {
			goal = DefaultGoal
		}

		if err := tx.Model(&models.Sprint{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
			"status":       models.SprintActive,
			"goal":         goal,
			"duration":     weeks,
			"total_effort": total,
			"start_date":   start,
			"end_date":     end,
		}).Error; err != nil {
			return fmt.Errorf("sprint: start %s: %w", s.ID, err)
		}
		if err := activateItems(tx, s.ID); err != nil {
			return err
		}

		s.Status = models.SprintActive
		s.Goal = goal
		s.Duration = weeks
		s.TotalEffort = total
		s.StartDate = &start
		s.EndDate = &end
		started = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// FinishSprint closes an active sprint. Velocity is the effort done on its
// board. Done items become finished and stay recorded against the sprint,
// as does any parent whose descendants are all finished. Everything else is
// carried over to the project's next ready sprint, which is created here,
// keeping its board column. Parents of carried work join that sprint too.
// Finishing a sprint that is missing or not active is a logged no-op
// returning nil.
func FinishSprint(db *gorm.DB, sprintID string) (*FinishResult, error) {
	var res *FinishResult
	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := Find(tx, sprintID)
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		if s.Status != models.SprintActive {
			log.Printf("sprint: finish %s ignored, status is %s", s.ID, s.Status)
			return nil
		}

		velocity, err := effort.Velocity(tx, s.ID)
		if err != nil {
			return err
		}
		next, err := CreateReady(tx, s.ProjectID)
		if err != nil {
			return err
		}

		var assocs []models.Association
		if err := tx.Preload("Item").Where("sprint_id = ?", s.ID).Find(&assocs).Error; err != nil {
			return fmt.Errorf("sprint: associations of %s: %w", s.ID, err)
		}
		parents, err := item.ParentIDs(tx, s.ProjectID)
		if err != nil {
			return err
		}

		res = &FinishResult{Next: next}
		carried := map[models.AssociationKey]models.Item{}
		var containers []models.Association
		for _, a := range assocs {
			if parents[a.ItemID] {
				containers = append(containers, a)
				continue
			}
			if a.TaskBoardStatus == models.BoardDone {
				if err := setStatus(tx, []string{a.ItemID}, models.ItemFinished); err != nil {
					return err
				}
				res.Completed++
				continue
			}
			if err := carryOver(tx, a, next.ID); err != nil {
				return err
			}
			carried[models.AssociationKey{ItemID: a.ItemID, SprintID: next.ID}] = a.Item
			res.CarriedOver++
		}

		// Deepest containers first, so a story settles before its epic.
		depths := map[string]int{}
		for _, a := range containers {
			anc, err := item.Ancestors(tx, a.Item)
			if err != nil {
				return err
			}
			depths[a.ItemID] = len(anc)
		}
		slices.SortStableFunc(containers, func(a, b models.Association) int {
			return depths[b.ItemID] - depths[a.ItemID]
		})
		for _, a := range containers {
			done, err := allDescendantsFinished(tx, a.ItemID)
			if err != nil {
				return err
			}
			if done {
				if err := setStatus(tx, []string{a.ItemID}, models.ItemFinished); err != nil {
					return err
				}
				continue
			}
			if err := carryOver(tx, a, next.ID); err != nil {
				return err
			}
			carried[models.AssociationKey{ItemID: a.ItemID, SprintID: next.ID}] = a.Item
		}
		if err := carryAncestors(tx, carried, next.ID); err != nil {
			return err
		}

		finished := now()
		if err := tx.Model(&models.Sprint{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
			"status":   models.SprintFinished,
			"velocity": velocity,
			"end_date": finished,
		}).Error; err != nil {
			return fmt.Errorf("sprint: finish %s: %w", s.ID, err)
		}
		s.Status = models.SprintFinished
		s.Velocity = velocity
		s.EndDate = &finished
		res.Sprint = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Overdue returns active sprints whose planned end date lies before at.
func Overdue(db *gorm.DB, at time.Time) ([]models.Sprint, error) {
	var sprints []models.Sprint
	if err := db.Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.SprintActive, at).
		Order("end_date ASC").Find(&sprints).Error; err != nil {
		return nil, fmt.Errorf("sprint: overdue sprints: %w", err)
	}
	return sprints, nil
}

// activateItems marks every item associated with the sprint, and any
// descendant of one, as active. Finished items are left alone.
func activateItems(tx *gorm.DB, sprintID string) error {
	var roots []models.Item
	if err := tx.Where("id IN (?)", tx.Model(&models.Association{}).Select("item_id").Where("sprint_id = ?", sprintID)).
		Find(&roots).Error; err != nil {
		return fmt.Errorf("sprint: items of %s: %w", sprintID, err)
	}
	seen := map[string]bool{}
	var ids []string
	for _, r := range roots {
		nodes, err := cascade(tx, r)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if !seen[n.ID] && n.Status != models.ItemFinished {
				seen[n.ID] = true
				ids = append(ids, n.ID)
			}
		}
	}
	return setStatus(tx, ids, models.ItemActive)
}

// carryOver moves an association to the next sprint, keeping its board
// column and move time, and puts the item back to ready.
func carryOver(tx *gorm.DB, a models.Association, nextID string) error {
	if err := tx.Where("item_id = ? AND sprint_id = ?", a.ItemID, a.SprintID).
		Delete(&models.Association{}).Error; err != nil {
		return fmt.Errorf("sprint: carry over %s: %w", a.ItemID, err)
	}
	moved := models.Association{
		ItemID:          a.ItemID,
		SprintID:        nextID,
		TaskBoardStatus: a.TaskBoardStatus,
		LastMoved:       a.LastMoved,
	}
	if err := upsertAssociations(tx, []models.Association{moved}); err != nil {
		return err
	}
	return setStatus(tx, []string{a.ItemID}, models.ItemReady)
}

// carryAncestors puts the parents of carried-over work into the next sprint
// as well, in To Do and ready, unless they were carried themselves.
func carryAncestors(tx *gorm.DB, carried map[models.AssociationKey]models.Item, nextID string) error {
	items := make([]models.Item, 0, len(carried))
	for _, it := range carried {
		items = append(items, it)
	}
	moved := now()
	for _, it := range items {
		anc, err := item.Ancestors(tx, it)
		if err != nil {
			return err
		}
		for _, p := range anc {
			key := models.AssociationKey{ItemID: p.ID, SprintID: nextID}
			if _, ok := carried[key]; ok {
				continue
			}
			carried[key] = p
			if err := upsertAssociations(tx, []models.Association{{
				ItemID:          p.ID,
				SprintID:        nextID,
				TaskBoardStatus: models.BoardToDo,
				LastMoved:       moved,
			}}); err != nil {
				return err
			}
			if err := setStatus(tx, []string{p.ID}, models.ItemReady); err != nil {
				return err
			}
		}
	}
	return nil
}

func allDescendantsFinished(tx *gorm.DB, id string) (bool, error) {
	desc, err := item.Descendants(tx, id)
	if err != nil {
		return false, err
	}
	for _, d := range desc {
		if d.Status != models.ItemFinished {
			return false, nil
		}
	}
	return true, nil
}

func findByStatus(db *gorm.DB, projectID, status string) (*models.Sprint, error) {
	var s models.Sprint
	result := db.Where("project_id = ? AND status = ?", projectID, status).
		Order("number DESC").Limit(1).Find(&s)
	if result.Error != nil {
		return nil, fmt.Errorf("sprint: find %s sprint of %s: %w", status, projectID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &s, nil
}

func generateUniqueID(db *gorm.DB) (string, error) {
	for range 2 {
		id, err := models.GenerateID(models.SprintPrefix)
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Model(&models.Sprint{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("sprint: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("sprint: failed to generate unique ID after retries")
}
