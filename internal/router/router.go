package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readinglist/backend/internal/handler"
	"readinglist/backend/internal/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Library  *handler.LibraryHandler
	Session  *handler.SessionHandler
	Progress *handler.ProgressHandler
}

func New(
	tokens middleware.TokenParser,
	handlers Handlers,
	corsOrigins []string,
	logger *zap.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.Auth(tokens))

	items := protected.Group("/items")
	items.GET("", handlers.Library.ListItems)
	items.POST("", handlers.Library.AddItem)
	items.GET("/:id", handlers.Library.GetItem)
	items.PATCH("/:id", handlers.Library.UpdateItem)
	items.DELETE("/:id", handlers.Library.DeleteItem)
	items.POST("/:id/restore", handlers.Library.RestoreItem)
	protected.GET("/tags", handlers.Library.ListTags)

	session := protected.Group("/session")
	session.GET("", handlers.Session.GetSession)
	session.POST("/start", handlers.Session.Start)
	session.POST("/end", handlers.Session.End)

	protected.GET("/achievements", handlers.Progress.Achievements)
	protected.GET("/stats", handlers.Progress.Stats)

	return engine
}
