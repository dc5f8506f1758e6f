package controllers

import (
	"net/http"

	"github.com/CUknot/chat_backend/middleware"
	"github.com/CUknot/chat_backend/services"
	"github.com/gin-gonic/gin"
)

type RoomController struct {
	ledger *services.Ledger
}

func NewRoomController(ledger *services.Ledger) *RoomController {
	return &RoomController{ledger: ledger}
}

type CreateRoomInput struct {
	Name     string `json:"name" binding:"required" example:"General Chat"`
	IsPublic *bool  `json:"is_public" example:"true"`
}

type AddMemberInput struct {
	UserID uint `json:"user_id" binding:"required" example:"2"`
}

// GetRooms godoc
// @Summary Get all rooms for the authenticated user
// @Description Returns the rooms the authenticated user is a member of, most recently joined first
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [get]
func (r *RoomController) GetRooms(c *gin.Context) {
	rooms, err := r.ledger.ListRoomsForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetPublicRooms godoc
// @Summary List public rooms
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Router /api/rooms/public [get]
func (r *RoomController) GetPublicRooms(c *gin.Context) {
	rooms, err := r.ledger.ListPublicRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom godoc
// @Summary Create a new chat room
// @Description Creates a room owned by the authenticated user, who becomes its first member. Rooms are public unless is_public is false.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room body CreateRoomInput true "Room Creation"
// @Success 201 {object} map[string]interface{} "Room created successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [post]
func (r *RoomController) CreateRoom(c *gin.Context) {
	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	room, err := r.ledger.CreateRoom(c.Request.Context(), middleware.UserID(c), input.Name, isPublic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Room created successfully", "room": room})
}

// GetRoom godoc
// @Summary Get a room with its members
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 200 {object} models.RoomDetail
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id} [get]
func (r *RoomController) GetRoom(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := r.ledger.CanRead(ctx, roomID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	detail, err := r.ledger.GetRoom(ctx, roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetMembers godoc
// @Summary List a room's members in join order
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 200 {object} map[string]interface{} "List of members"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id}/members [get]
func (r *RoomController) GetMembers(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := r.ledger.CanRead(ctx, roomID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	members, err := r.ledger.ListMembers(ctx, roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// JoinRoom godoc
// @Summary Join a public room
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 200 {object} map[string]interface{} "Joined"
// @Failure 403 {object} map[string]string "Room is private"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /api/rooms/{id}/join [post]
func (r *RoomController) JoinRoom(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}
	added, err := r.ledger.JoinPublic(c.Request.Context(), roomID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined room", "added": added})
}

// AddMember godoc
// @Summary Add a user to a room
// @Description Any member may add another user. Adding an existing member succeeds with added=false.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Param member body AddMemberInput true "User to add"
// @Success 200 {object} map[string]interface{} "Member added"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room or user not found"
// @Router /api/rooms/{id}/members [post]
func (r *RoomController) AddMember(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input AddMemberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := r.ledger.AddMemberAs(c.Request.Context(), roomID, middleware.UserID(c), input.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member added", "added": added})
}
