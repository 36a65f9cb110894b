package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, s *server) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	projects := router.Group("/projects")
	projects.POST("", s.createProject)
	projects.GET("", s.listProjects)
	projects.GET("/:id", s.getProject)
	projects.PATCH("/:id", s.updateProject)
	projects.DELETE("/:id", s.deleteProject)
	projects.GET("/:id/items", s.listItems)
	projects.POST("/:id/items", s.createItem)
	projects.GET("/:id/sprints/current", s.currentSprint)
	projects.GET("/:id/sprints/history", s.sprintHistory)
	projects.GET("/:id/burndown", s.projectBurndown)

	items := router.Group("/items")
	items.GET("/:id", s.getItem)
	items.PATCH("/:id", s.updateItem)
	items.DELETE("/:id", s.deleteItem)
	items.POST("/:id/move", s.moveItem)
	items.POST("/:id/remove", s.removeItem)
	items.POST("/:id/reparent", s.reparentItem)

	sprints := router.Group("/sprints")
	sprints.GET("/:id", s.getSprint)
	sprints.POST("/:id/start", s.startSprint)
	sprints.POST("/:id/finish", s.finishSprint)
	sprints.POST("/:id/board/:itemID", s.moveOnBoard)
	sprints.GET("/:id/burndown", s.sprintBurndown)
	sprints.GET("/:id/done-by-date", s.doneByDate)
}
