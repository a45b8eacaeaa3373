package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/handlers"
)

func registerProjectRoutes(api *gin.RouterGroup, handler *handlers.ProjectHandler) {
	projects := api.Group("/projects")
	{
		projects.GET("", handler.List)
		projects.POST("", handler.Create)
		projects.GET("/:id", handler.Get)
		projects.PUT("/:id", handler.Update)
		projects.DELETE("/:id", handler.Delete)
	}
}
