package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/pooltable/internal/auth"
	"github.com/playmatatu/pooltable/internal/room"
	"github.com/playmatatu/pooltable/internal/store"
)

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrTableClosed):
		status = http.StatusGone
	case errors.Is(err, room.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, room.ErrTooManyTables), errors.Is(err, room.ErrInboxFull), errors.Is(err, store.ErrNoHistory):
		status = http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrInvalidSeatToken):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
