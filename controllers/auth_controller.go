package controllers

import (
	"errors"
	"net/http"

	"github.com/CUknot/chat_backend/middleware"
	"github.com/CUknot/chat_backend/services"
	"github.com/CUknot/chat_backend/utils"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	users  *services.Users
	secret string
}

func NewAuthController(users *services.Users, secret string) *AuthController {
	return &AuthController{users: users, secret: secret}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required,min=6" example:"secret123"`
}

type LoginInput struct {
	Name     string `json:"name" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterInput true "User registration"
// @Success 201 {object} map[string]interface{} "User registered successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 409 {object} map[string]string "Name already taken"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/register [post]
func (a *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.users.Register(c.Request.Context(), input.Name, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, a.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// Login godoc
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginInput true "Credentials"
// @Success 200 {object} map[string]interface{} "Login successful"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Invalid name or password"
// @Router /api/login [post]
func (a *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), input.Name, input.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid name or password"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, a.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// GetUser godoc
// @Summary Get a user's public profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/users/{id} [get]
func (a *AuthController) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := a.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me godoc
// @Summary Get the authenticated user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /api/me [get]
func (a *AuthController) Me(c *gin.Context) {
	user, err := a.users.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
