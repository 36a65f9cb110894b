package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/project"
	"github.com/zulandar/sprintyard/internal/sprint"
	"github.com/zulandar/sprintyard/internal/telegraph"
)

type startSprintRequest struct {
	Goal string `json:"goal"`
}

type boardRequest struct {
	Delta *int `json:"delta" binding:"required"` // zero is a valid no-op move
}

func (s *server) getSprint(c *gin.Context) {
	sp, err := sprint.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	board, err := sprint.Associations(s.db, sp.ID)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, sprintView{Sprint: sp, Board: board})
}

func (s *server) startSprint(c *gin.Context) {
	var req startSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	sp, err := sprint.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	started, err := sprint.StartSprint(s.db, sp.ID, req.Goal)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	if started == nil {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("sprint %s cannot be started while %s", sp.ID, sp.Status)})
		return
	}
	if p, err := project.Get(s.db, started.ProjectID); err == nil {
		s.announce(c, telegraph.FormatSprintStarted(*p, *started))
	}
	c.JSON(http.StatusOK, started)
}

func (s *server) finishSprint(c *gin.Context) {
	sp, err := sprint.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	res, err := project.FinishSprint(s.db, sp.ID)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	if res == nil {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("sprint %s is %s, not active", sp.ID, sp.Status)})
		return
	}
	if p, err := project.Get(s.db, sp.ProjectID); err == nil {
		s.announce(c, telegraph.FormatSprintFinished(*p, res))
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) moveOnBoard(c *gin.Context) {
	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	assoc, err := sprint.IncrementTaskBoardStatus(s.db, c.Param("id"), c.Param("itemID"), *req.Delta)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	if assoc == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "item is not on the board of an active sprint"})
		return
	}
	c.JSON(http.StatusOK, assoc)
}

func (s *server) sprintBurndown(c *gin.Context) {
	id := c.Param("id")
	v, err, _ := s.sf.Do("burndown:sprint:"+id, func() (interface{}, error) {
		sp, err := sprint.Get(s.db, id)
		if err != nil {
			return nil, err
		}
		return effort.SprintBurndown(s.db, *sp, s.now())
	})
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *server) doneByDate(c *gin.Context) {
	sp, err := sprint.Get(s.db, c.Param("id"))
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	days, err := effort.TasksDoneByDate(s.db, sp.ID)
	if err != nil {
		fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, days)
}

// announce posts evt to the configured chat platforms. Delivery failures
// never fail the request.
func (s *server) announce(c *gin.Context, evt telegraph.FormattedEvent) {
	if s.notify.Len() == 0 {
		return
	}
	if err := s.notify.Notify(c.Request.Context(), evt); err != nil {
		log.Printf("api: notify %q: %v", evt.Title, err)
	}
}
