package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/claimlab/annotation-backend/internal/handlers"
	"github.com/claimlab/annotation-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AnnotationHandler *handlers.AnnotationHandler
	ContentHandler    *handlers.ContentHandler
	StorageHandler    *handlers.StorageHandler
	SessionMiddleware *middleware.SessionMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/login", cfg.AuthHandler.Login)
	}

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.SessionMiddleware.RequireSession())
	{
		protected.POST("/logout", cfg.AuthHandler.Logout)

		protected.GET("/item", cfg.AnnotationHandler.Current)
		protected.POST("/item/next", cfg.AnnotationHandler.Next)
		protected.POST("/item/previous", cfg.AnnotationHandler.Previous)

		protected.POST("/annotations/submit", cfg.AnnotationHandler.SubmitAll)
		protected.PUT("/annotations/:postId", cfg.AnnotationHandler.Update)
		protected.GET("/progress", cfg.AnnotationHandler.Progress)

		protected.GET("/guidelines", cfg.ContentHandler.Guidelines)
		protected.GET("/images/:imageId", cfg.ContentHandler.Image)
		protected.GET("/storage/status", cfg.StorageHandler.Status)
	}

	return router
}
