package controllers

import (
	"net/http"
	"strconv"

	"github.com/CUknot/chat_backend/middleware"
	"github.com/CUknot/chat_backend/models"
	"github.com/CUknot/chat_backend/services"
	"github.com/gin-gonic/gin"
)

type MessageController struct {
	ledger   *services.Ledger
	messages *services.MessageStore
}

func NewMessageController(ledger *services.Ledger, messages *services.MessageStore) *MessageController {
	return &MessageController{ledger: ledger, messages: messages}
}

type CreateMessageInput struct {
	Content       string  `json:"content" example:"Hello, everyone!"`
	AttachmentKey *string `json:"attachment_key" example:"rooms/1/0b6f7c1e.png"`
}

// GetMessages godoc
// @Summary Get a page of messages for a room
// @Description Returns messages newest first. Pass next_cursor from a previous page as before to continue.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Param limit query int false "Page size (default 50, max 100)"
// @Param before query string false "Cursor"
// @Success 200 {object} models.MessagePage
// @Failure 400 {object} map[string]string "Invalid cursor"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms/{id}/messages [get]
func (m *MessageController) GetMessages(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	var before *models.Cursor
	if raw := c.Query("before"); raw != "" {
		cur, err := models.ParseCursor(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
			return
		}
		before = &cur
	}

	ctx := c.Request.Context()
	if err := m.ledger.CanRead(ctx, roomID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	page, err := m.messages.ListMessages(ctx, roomID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateMessage godoc
// @Summary Post a message to a room
// @Description Members only. A message needs content, an attachment_key from a prior upload, or both.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Param message body CreateMessageInput true "Message Creation"
// @Success 201 {object} map[string]interface{} "Message sent successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms/{id}/messages [post]
func (m *MessageController) CreateMessage(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input CreateMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := m.messages.PostMessage(c.Request.Context(), roomID, middleware.UserID(c), input.Content, input.AttachmentKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully", "data": msg})
}
