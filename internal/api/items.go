package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/sprintyard/internal/item"
	"github.com/zulandar/sprintyard/internal/project"
	"github.com/zulandar/sprintyard/internal/sprint"
	"gorm.io/gorm"
)

type createItemRequest struct {
	Title              string `json:"title" binding:"required"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
	Type               string `json:"type"`
	Priority           int    `json:"priority"`
	Effort             int    `json:"effort"`
	EstimatedEffort    int    `json:"estimated_effort"`
	ParentID           string `json:"parent_id"`
	Assignee           string `json:"assignee"`
}

type updateItemRequest struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	AcceptanceCriteria *string `json:"acceptance_criteria"`
	Priority           *int    `json:"priority"`
	Effort             *int    `json:"effort"`
	EstimatedEffort    *int    `json:"estimated_effort"`
	Assignee           *string `json:"assignee"`
}

// associationRequest is the body of move, remove and reparent.
type associationRequest struct {
	SprintID string `json:"sprint_id"`
	ParentID string `json:"parent_id"`
}

func (s *server) listItems(c *gin.Context) {
	p, err := project.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	items, err := item.List(s.db, item.ListFilters{
		ProjectID: p.ID,
		Status:    c.Query("status"),
		Type:      c.Query("type"),
	})
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) createItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var id string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		it, err := item.Create(tx, item.CreateOpts{
			ProjectID:          c.Param("id"),
			Title:              req.Title,
			Description:        req.Description,
			AcceptanceCriteria: req.AcceptanceCriteria,
			Type:               req.Type,
			Priority:           req.Priority,
			Effort:             req.Effort,
			EstimatedEffort:    req.EstimatedEffort,
			ParentID:           req.ParentID,
			Owner:              s.owner,
			Assignee:           req.Assignee,
		})
		if err != nil {
			return err
		}
		id = it.ID
		return sprint.FollowParent(tx, it)
	})
	if err != nil {
		fail(c, err, http.StatusBadRequest)
		return
	}
	s.respondItem(c, id, http.StatusCreated)
}

func (s *server) getItem(c *gin.Context) {
	s.respondItem(c, c.Param("id"), http.StatusOK)
}

func (s *server) updateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if err := item.Update(s.db, id, item.UpdateOpts{
		Title:              req.Title,
		Description:        req.Description,
		AcceptanceCriteria: req.AcceptanceCriteria,
		Priority:           req.Priority,
		Effort:             req.Effort,
		EstimatedEffort:    req.EstimatedEffort,
		Assignee:           req.Assignee,
	}); err != nil {
		fail(c, err, http.StatusBadRequest)
		return
	}
	s.respondItem(c, id, http.StatusOK)
}

func (s *server) deleteItem(c *gin.Context) {
	if err := item.Delete(s.db, c.Param("id")); err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) moveItem(c *gin.Context) {
	s.associate(c, sprint.MoveItemToSprint)
}

func (s *server) removeItem(c *gin.Context) {
	s.associate(c, sprint.RemoveItemFromSprint)
}

func (s *server) reparentItem(c *gin.Context) {
	s.associate(c, sprint.ReparentAssociation)
}

// associate runs one of the association cascades and answers with the
// item as it stands afterwards.
func (s *server) associate(c *gin.Context, op func(db *gorm.DB, itemID, sprintID, parentID string) error) {
	var req associationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if err := op(s.db, id, req.SprintID, req.ParentID); err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	s.respondItem(c, id, http.StatusOK)
}

func (s *server) respondItem(c *gin.Context, id string, status int) {
	it, err := item.Get(s.db, id)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(status, it)
}
