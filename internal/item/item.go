// Package item provides backlog item operations and traversal of the
// Epic → Story → Task/Bug hierarchy.
package item

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zulandar/sprintyard/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an item ID does not resolve.
var ErrNotFound = errors.New("item: not found")

// CreateOpts holds parameters for creating a new item.
type CreateOpts struct {
	ProjectID          string
	Title              string
	Description        string
	AcceptanceCriteria string
	Type               string // epic, story, task, bug
	Priority           int    // 1 (lowest) → 5 (highest), 0 means default
	Effort             int
	EstimatedEffort    int
	ParentID           string
	Owner              string
	Assignee           string
}

// UpdateOpts holds optional field changes. Nil fields are left untouched.
// Parent and status changes go through the sprint association engine.
type UpdateOpts struct {
	Title              *string
	Description        *string
	AcceptanceCriteria *string
	Priority           *int
	Effort             *int
	EstimatedEffort    *int
	Assignee           *string
}

// ListFilters holds optional filters for listing items.
type ListFilters struct {
	ProjectID string
	Status    string
	Type      string
	ParentID  string
	TopLevel  bool // only items without a parent
}

const (
	DefaultPriority = 3
	MinPriority     = 1
	MaxPriority     = 5
)

// Create validates opts and stores a new backlog item.
func Create(db *gorm.DB, opts CreateOpts) (*models.Item, error) {
	opts.Title = strings.TrimSpace(opts.Title)
	if opts.Title == "" {
		return nil, fmt.Errorf("item: title is required")
	}
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("item: project is required")
	}
	if opts.Type == "" {
		opts.Type = models.TypeTask
	}
	if !slices.Contains(models.ItemTypes, opts.Type) {
		return nil, fmt.Errorf("item: invalid type %q; valid types: %v", opts.Type, models.ItemTypes)
	}
	if opts.Priority == 0 {
		opts.Priority = DefaultPriority
	}
	if err := validatePriority(opts.Priority); err != nil {
		return nil, err
	}
	if opts.Effort < 0 || opts.EstimatedEffort < 0 {
		return nil, fmt.Errorf("item: effort must not be negative")
	}

	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", opts.ProjectID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("item: check project %s: %w", opts.ProjectID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("item: project not found: %s", opts.ProjectID)
	}

	if err := db.Model(&models.Item{}).
		Where("project_id = ? AND title = ?", opts.ProjectID, opts.Title).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("item: check title: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("item: item with title %q already exists", opts.Title)
	}

	if opts.ParentID != "" {
		var parent models.Item
		if err := db.Where("id = ?", opts.ParentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("item: parent not found: %s", opts.ParentID)
			}
			return nil, fmt.Errorf("item: check parent %s: %w", opts.ParentID, err)
		}
		if parent.ProjectID != opts.ProjectID {
			return nil, fmt.Errorf("item: parent %s belongs to another project", opts.ParentID)
		}
		if err := validateParent(opts.Type, parent.Type); err != nil {
			return nil, err
		}
	}

	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}

	it := models.Item{
		ID:                 id,
		ProjectID:          opts.ProjectID,
		Title:              opts.Title,
		Description:        strings.TrimSpace(opts.Description),
		AcceptanceCriteria: strings.TrimSpace(opts.AcceptanceCriteria),
		Type:               opts.Type,
		Status:             models.ItemBacklog,
		Priority:           opts.Priority,
		Effort:             opts.Effort,
		EstimatedEffort:    opts.EstimatedEffort,
		Owner:              opts.Owner,
		Assignee:           opts.Assignee,
	}
	if opts.ParentID != "" {
		it.ParentID = &opts.ParentID
	}

	if err := db.Create(&it).Error; err != nil {
		return nil, fmt.Errorf("item: create: %w", err)
	}
	return &it, nil
}

// validateParent enforces the Epic → Story → Task/Bug shape.
func validateParent(childType, parentType string) error {
	if !models.IsContainerType(parentType) {
		return fmt.Errorf("item: parent is type %q, only epics and stories can have children", parentType)
	}
	switch childType {
	case models.TypeEpic:
		return fmt.Errorf("item: an epic cannot have a parent")
	case models.TypeStory:
		if parentType != models.TypeEpic {
			return fmt.Errorf("item: a story can only belong to an epic")
		}
	}
	return nil
}

func validatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return fmt.Errorf("item: priority %d out of range %d-%d", p, MinPriority, MaxPriority)
	}
	return nil
}

// Get retrieves an item by ID, preloading its direct children.
func Get(db *gorm.DB, id string) (*models.Item, error) {
	var it models.Item
	if err := db.Preload("Children", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("priority DESC, created_at ASC")
	}).Where("id = ?", id).First(&it).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("item: get %s: %w", id, err)
	}
	return &it, nil
}

// Find looks up an item by ID. A missing item yields (nil, nil).
func Find(db *gorm.DB, id string) (*models.Item, error) {
	if id == "" {
		return nil, nil
	}
	var it models.Item
	result := db.Where("id = ?", id).Limit(1).Find(&it)
	if result.Error != nil {
		return nil, fmt.Errorf("item: find %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &it, nil
}

// List returns items matching the given filters, most important first.
func List(db *gorm.DB, filters ListFilters) ([]models.Item, error) {
	q := db.Model(&models.Item{})

	if filters.ProjectID != "" {
		q = q.Where("project_id = ?", filters.ProjectID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Type != "" {
		q = q.Where("type = ?", filters.Type)
	}
	if filters.ParentID != "" {
		q = q.Where("parent_id = ?", filters.ParentID)
	}
	if filters.TopLevel {
		q = q.Where("parent_id IS NULL")
	}

	var items []models.Item
	if err := q.Order("priority DESC, created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("item: list: %w", err)
	}
	return items, nil
}

// Update applies the non-nil fields of opts to the item.
func Update(db *gorm.DB, id string, opts UpdateOpts) error {
	it, err := Find(db, id)
	if err != nil {
		return err
	}
	if it == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updates := map[string]interface{}{}
	if opts.Title != nil {
		title := strings.TrimSpace(*opts.Title)
		if title == "" {
			return fmt.Errorf("item: title is required")
		}
		if title != it.Title {
			var count int64
			if err := db.Model(&models.Item{}).
				Where("project_id = ? AND title = ? AND id <> ?", it.ProjectID, title, id).
				Count(&count).Error; err != nil {
				return fmt.Errorf("item: check title: %w", err)
			}
			if count > 0 {
				return fmt.Errorf("item: item with title %q already exists", title)
			}
		}
		updates["title"] = title
	}
	if opts.Description != nil {
		updates["description"] = strings.TrimSpace(*opts.Description)
	}
	if opts.AcceptanceCriteria != nil {
		updates["acceptance_criteria"] = strings.TrimSpace(*opts.AcceptanceCriteria)
	}
	if opts.Priority != nil {
		if err := validatePriority(*opts.Priority); err != nil {
			return err
		}
		updates["priority"] = *opts.Priority
	}
	if opts.Effort != nil {
		if *opts.Effort < 0 {
			return fmt.Errorf("item: effort must not be negative")
		}
		updates["effort"] = *opts.Effort
	}
	if opts.EstimatedEffort != nil {
		if *opts.EstimatedEffort < 0 {
			return fmt.Errorf("item: effort must not be negative")
		}
		updates["estimated_effort"] = *opts.EstimatedEffort
	}
	if opts.Assignee != nil {
		updates["assignee"] = *opts.Assignee
	}
	if len(updates) == 0 {
		return nil
	}

	if err := db.Model(&models.Item{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("item: update %s: %w", id, err)
	}
	return nil
}

// Delete removes an item together with its descendants and their sprint
// associations. The item's own parent is left alone.
func Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		it, err := Find(tx, id)
		if err != nil {
			return err
		}
		if it == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		desc, err := Descendants(tx, id)
		if err != nil {
			return err
		}
		ids := append([]string{id}, IDs(desc)...)

		if err := tx.Where("item_id IN ?", ids).Delete(&models.Association{}).Error; err != nil {
			return fmt.Errorf("item: delete associations of %s: %w", id, err)
		}
		// Deepest first so no row is left pointing at a deleted parent.
		for i := len(ids) - 1; i >= 0; i-- {
			if err := tx.Where("id = ?", ids[i]).Delete(&models.Item{}).Error; err != nil {
				return fmt.Errorf("item: delete %s: %w", ids[i], err)
			}
		}
		return nil
	})
}

// generateUniqueID generates an ID and retries once on collision.
func generateUniqueID(db *gorm.DB) (string, error) {
	for range 2 {
		id, err := models.GenerateID(models.ItemPrefix)
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Model(&models.Item{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("item: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("item: failed to generate unique ID after retries")
}
