package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/models"
	"github.com/zulandar/sprintyard/internal/project"
	"github.com/zulandar/sprintyard/internal/sprint"
)

type createProjectRequest struct {
	Title             string `json:"title" binding:"required"`
	Description       string `json:"description"`
	DevelopersWorking int    `json:"developers_working"`
	TeamVelocity      int    `json:"team_velocity"`
	SprintDuration    int    `json:"sprint_duration"`
}

type updateProjectRequest struct {
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	DevelopersWorking *int    `json:"developers_working"`
	TeamVelocity      *int    `json:"team_velocity"`
	SprintDuration    *int    `json:"sprint_duration"`
}

// sprintView is a sprint with its board.
type sprintView struct {
	*models.Sprint
	Board []models.Association `json:"board"`
}

func (s *server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.SprintDuration == 0 {
		req.SprintDuration = s.duration
	}
	p, err := project.Create(s.db, project.CreateOpts{
		Title:             req.Title,
		Description:       req.Description,
		Owner:             s.owner,
		DevelopersWorking: req.DevelopersWorking,
		TeamVelocity:      req.TeamVelocity,
		SprintDuration:    req.SprintDuration,
	})
	if err != nil {
		fail(c, err, http.StatusBadRequest)
		return
	}
	sum, err := project.Summarize(s.db, *p)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, sum)
}

func (s *server) listProjects(c *gin.Context) {
	projects, err := project.List(s.db)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	out := make([]*project.Summary, 0, len(projects))
	for _, p := range projects {
		sum, err := project.Summarize(s.db, p)
		if err != nil {
			fail(c, err, http.StatusInternalServerError)
			return
		}
		out = append(out, sum)
	}
	c.JSON(http.StatusOK, out)
}

func (s *server) getProject(c *gin.Context) {
	p, err := project.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	sum, err := project.Summarize(s.db, *p)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *server) updateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if err := project.Update(s.db, id, project.UpdateOpts{
		Title:             req.Title,
		Description:       req.Description,
		DevelopersWorking: req.DevelopersWorking,
		TeamVelocity:      req.TeamVelocity,
		SprintDuration:    req.SprintDuration,
	}); err != nil {
		fail(c, err, http.StatusBadRequest)
		return
	}
	s.getProject(c)
}

func (s *server) deleteProject(c *gin.Context) {
	if err := project.Delete(s.db, c.Param("id")); err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) currentSprint(c *gin.Context) {
	p, err := project.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	cur, err := sprint.Current(s.db, p.ID)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	if cur == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project has no current sprint"})
		return
	}
	board, err := sprint.Associations(s.db, cur.ID)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, sprintView{Sprint: cur, Board: board})
}

func (s *server) sprintHistory(c *gin.Context) {
	p, err := project.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	hist, err := sprint.History(s.db, p.ID)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, hist)
}

func (s *server) projectBurndown(c *gin.Context) {
	id := c.Param("id")
	v, err, _ := s.sf.Do("burndown:project:"+id, func() (interface{}, error) {
		p, err := project.Get(s.db, id)
		if err != nil {
			return nil, err
		}
		return effort.ProjectBurndown(s.db, *p)
	})
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, v)
}
