package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/item"
	"github.com/zulandar/sprintyard/internal/project"
	"github.com/zulandar/sprintyard/internal/sprint"
)

// statusFor maps a domain error onto an HTTP status. fallback is used for
// errors that are neither lookups nor state conflicts, which lets write
// handlers report validation failures as 400.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, sprint.ErrZeroEffort), errors.Is(err, effort.ErrNotStarted):
		return http.StatusConflict
	case errors.Is(err, item.ErrNotFound), errors.Is(err, sprint.ErrNotFound), errors.Is(err, project.ErrNotFound):
		return http.StatusNotFound
	}
	return fallback
}

func fail(c *gin.Context, err error, fallback int) {
	c.AbortWithStatusJSON(statusFor(err, fallback), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
