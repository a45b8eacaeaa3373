package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/handlers"
)

func registerAuthRoutes(api, protected *gin.RouterGroup, limiter gin.HandlerFunc, handler *handlers.AuthHandler) {
	auth := api.Group("/auth")
	auth.Use(limiter)
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
	}

	protected.GET("/auth/me", handler.Me)
}

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("/profile", handler.Profile)
		users.PUT("/profile", handler.UpdateProfile)
		users.GET("/stats", handler.Stats)
	}
}
