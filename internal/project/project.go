// Package project manages projects, their derived effort summary and the
// folding of sprint velocity into the team velocity.
package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/models"
	"github.com/zulandar/sprintyard/internal/sprint"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a project ID does not resolve.
var ErrNotFound = errors.New("project: not found")

// DefaultSprintDuration is used when a project is created without one.
const DefaultSprintDuration = 2

// CreateOpts holds parameters for creating a project.
type CreateOpts struct {
	Title             string
	Description       string
	Owner             string
	DevelopersWorking int
	TeamVelocity      int
	SprintDuration    int // weeks
}

// UpdateOpts holds optional field changes. Nil fields are left untouched.
type UpdateOpts struct {
	Title             *string
	Description       *string
	DevelopersWorking *int
	TeamVelocity      *int
	SprintDuration    *int
}

// Summary is a project with its derived figures and current sprint.
type Summary struct {
	models.Project
	effort.Figures
	Current *models.Sprint `json:"current_sprint"`
}

// Create stores a new project together with its first ready sprint.
func Create(db *gorm.DB, opts CreateOpts) (*models.Project, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	if opts.Title == "" {
		return nil, fmt.Errorf("project: title is required")
	}
	if opts.SprintDuration == 0 {
		opts.SprintDuration = DefaultSprintDuration
	}
	if err := validateNumbers(opts.DevelopersWorking, opts.TeamVelocity, opts.SprintDuration); err != nil {
		return nil, err
	}

	var p models.Project
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("title = ?", opts.Title).Count(&count).Error; err != nil {
			return fmt.Errorf("project: check title: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("project: project with title %q already exists", opts.Title)
		}
		id, err := models.GenerateID(models.ProjectPrefix)
		if err != nil {
			return err
		}
		p = models.Project{
			ID:                id,
			Title:             opts.Title,
			Description:       strings.TrimSpace(opts.Description),
			Owner:             opts.Owner,
			DevelopersWorking: opts.DevelopersWorking,
			TeamVelocity:      opts.TeamVelocity,
			SprintDuration:    opts.SprintDuration,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("project: create: %w", err)
		}
		_, err = sprint.CreateReady(tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func validateNumbers(developers, velocity, duration int) error {
	if developers < 0 {
		return fmt.Errorf("project: developers working must not be negative")
	}
	if velocity < 0 {
		return fmt.Errorf("project: team velocity must not be negative")
	}
	if duration < 1 {
		return fmt.Errorf("project: sprint duration must be at least 1 week")
	}
	return nil
}

// Get retrieves a project by ID.
func Get(db *gorm.DB, id string) (*models.Project, error) {
	var p models.Project
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("project: get %s: %w", id, err)
	}
	return &p, nil
}

// List returns all projects ordered by title.
func List(db *gorm.DB) ([]models.Project, error) {
	var projects []models.Project
	if err := db.Order("title ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	return projects, nil
}

// Summarize recomputes the derived figures of p from the live items.
func Summarize(db *gorm.DB, p models.Project) (*Summary, error) {
	figures, err := effort.ForProject(db, p)
	if err != nil {
		return nil, err
	}
	current, err := sprint.Current(db, p.ID)
	if err != nil {
		return nil, err
	}
	return &Summary{Project: p, Figures: *figures, Current: current}, nil
}

// Update applies the non-nil fields of opts to the project.
func Update(db *gorm.DB, id string, opts UpdateOpts) error {
	p, err := Get(db, id)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{}
	if opts.Title != nil {
		title := strings.TrimSpace(*opts.Title)
		if title == "" {
			return fmt.Errorf("project: title is required")
		}
		var count int64
		if err := db.Model(&models.Project{}).Where("title = ? AND id <> ?", title, id).Count(&count).Error; err != nil {
			return fmt.Errorf("project: check title: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("project: project with title %q already exists", title)
		}
		updates["title"] = title
	}
	if opts.Description != nil {
		updates["description"] = strings.TrimSpace(*opts.Description)
	}
	developers, velocity, duration := p.DevelopersWorking, p.TeamVelocity, p.SprintDuration
	if opts.DevelopersWorking != nil {
		developers = *opts.DevelopersWorking
		updates["developers_working"] = developers
	}
	if opts.TeamVelocity != nil {
		velocity = *opts.TeamVelocity
		updates["team_velocity"] = velocity
	}
	if opts.SprintDuration != nil {
		duration = *opts.SprintDuration
		updates["sprint_duration"] = duration
	}
	if err := validateNumbers(developers, velocity, duration); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	if err := db.Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("project: update %s: %w", id, err)
	}
	return nil
}

// Delete removes a project with all of its sprints, items and associations.
func Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if _, err := Get(tx, id); err != nil {
			return err
		}
		sprints := tx.Model(&models.Sprint{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("sprint_id IN (?)", sprints).Delete(&models.Association{}).Error; err != nil {
			return fmt.Errorf("project: delete associations of %s: %w", id, err)
		}
		// Children point at parents in the same table, so unlink before deleting.
		if err := tx.Model(&models.Item{}).Where("project_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return fmt.Errorf("project: unlink items of %s: %w", id, err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("project: delete items of %s: %w", id, err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Sprint{}).Error; err != nil {
			return fmt.Errorf("project: delete sprints of %s: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Project{}).Error; err != nil {
			return fmt.Errorf("project: delete %s: %w", id, err)
		}
		return nil
	})
}

// FoldVelocity makes the velocity of a finished sprint the team velocity of
// its project.
func FoldVelocity(db *gorm.DB, s models.Sprint) error {
	if s.Status != models.SprintFinished {
		return fmt.Errorf("project: fold velocity of sprint %s: status is %s", s.ID, s.Status)
	}
	if err := db.Model(&models.Project{}).Where("id = ?", s.ProjectID).
		Update("team_velocity", s.Velocity).Error; err != nil {
		return fmt.Errorf("project: fold velocity of %s: %w", s.ProjectID, err)
	}
	return nil
}

// FinishSprint finishes a sprint and folds its velocity into the team
// velocity of its project, both in one transaction. A no-op finish returns
// nil.
func FinishSprint(db *gorm.DB, sprintID string) (*sprint.FinishResult, error) {
	var res *sprint.FinishResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = sprint.FinishSprint(tx, sprintID)
		if err != nil || res == nil {
			return err
		}
		return FoldVelocity(tx, *res.Sprint)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
