package middleware

import (
	"net/http"
	"strings"

	"github.com/CUknot/chat_backend/utils"
	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key JWTAuth stores the caller's id under.
const UserIDKey = "userID"

// JWTAuth rejects requests without a valid "Bearer <token>" header and
// stores the authenticated user id in the context.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		userID, err := utils.ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id JWTAuth stored, or 0 outside an authenticated route.
func UserID(c *gin.Context) uint {
	id, _ := c.Get(UserIDKey)
	v, _ := id.(uint)
	return v
}
