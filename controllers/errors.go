package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/CUknot/chat_backend/models"
	"github.com/gin-gonic/gin"
)

// respondError writes err with the status its kind maps to. Storage and
// unclassified errors are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": reason(err)})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": reason(err)})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": reason(err)})
	case errors.Is(err, models.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": reason(err)})
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// reason returns the cause without the operation prefix.
func reason(err error) string {
	var e *models.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
