// Package server assembles the HTTP surface: routes, middleware, CORS, the
// Swagger UI and the operational endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/CUknot/chat_backend/controllers"
	_ "github.com/CUknot/chat_backend/docs"
	"github.com/CUknot/chat_backend/middleware"
	"github.com/CUknot/chat_backend/services"
	"github.com/CUknot/chat_backend/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps are the shared components the routes are served from.
type Deps struct {
	Users    *services.Users
	Ledger   *services.Ledger
	Messages *services.MessageStore
	Gateway  storage.Gateway

	Secret             string
	Counter            middleware.Counter
	RateLimitPerMinute int64

	// Checks are run by /health, keyed by component name.
	Checks map[string]func(context.Context) error
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", health(d.Checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if files, ok := d.Gateway.(controllers.FileOpener); ok {
		router.GET(storage.UploadsRoute+"/*key", controllers.ServeUpload(files))
	}

	authCtl := controllers.NewAuthController(d.Users, d.Secret)
	roomCtl := controllers.NewRoomController(d.Ledger)
	messageCtl := controllers.NewMessageController(d.Ledger, d.Messages)
	attachmentCtl := controllers.NewAttachmentController(d.Ledger, d.Gateway)

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.Counter != nil {
		limit = middleware.RateLimit(d.Counter, d.RateLimitPerMinute)
	}

	// Authentication routes
	auth := router.Group("/api")
	auth.Use(limit)
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}

	// Protected routes
	api := router.Group("/api")
	api.Use(middleware.JWTAuth(d.Secret), limit)
	{
		api.GET("/me", authCtl.Me)
		api.GET("/users/:id", authCtl.GetUser)

		api.GET("/rooms", roomCtl.GetRooms)
		api.GET("/rooms/public", roomCtl.GetPublicRooms)
		api.POST("/rooms", roomCtl.CreateRoom)
		api.GET("/rooms/:id", roomCtl.GetRoom)
		api.GET("/rooms/:id/members", roomCtl.GetMembers)
		api.POST("/rooms/:id/members", roomCtl.AddMember)
		api.POST("/rooms/:id/join", roomCtl.JoinRoom)

		api.GET("/rooms/:id/messages", messageCtl.GetMessages)
		api.POST("/rooms/:id/messages", messageCtl.CreateMessage)

		api.POST("/rooms/:id/attachments", attachmentCtl.Upload)
		api.GET("/attachments/url", attachmentCtl.ReissueURL)
	}

	return router
}

// New wraps handler with CORS for allowedOrigins and returns a server
// listening on port.
func New(port string, allowedOrigins []string, handler http.Handler) *http.Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return &http.Server{
		Addr:              ":" + port,
		Handler:           c.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func health(checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
