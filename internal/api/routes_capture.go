package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/handlers"
)

func registerPhotogrammetryRoutes(api *gin.RouterGroup, handler *handlers.PhotogrammetryHandler) {
	photogrammetry := api.Group("/photogrammetry")
	{
		photogrammetry.POST("/models/:modelId/projects", handler.CreateProject)
		photogrammetry.GET("/models/:modelId/projects", handler.ListProjects)
		photogrammetry.GET("/projects/:id", handler.GetProject)
		photogrammetry.PUT("/projects/:id", handler.UpdateProject)
		photogrammetry.POST("/models/:modelId/cameras", handler.AddCamera)
		photogrammetry.GET("/models/:modelId/cameras", handler.ListCameras)
		photogrammetry.PUT("/cameras/:id", handler.UpdateCamera)
	}
}

func registerVolumetricVideoRoutes(api *gin.RouterGroup, handler *handlers.VolumetricVideoHandler) {
	videos := api.Group("/volumetric-video")
	{
		videos.POST("/models/:modelId", handler.Create)
		videos.GET("/models/:modelId", handler.Latest)
		videos.GET("/:id", handler.Get)
		videos.DELETE("/:id", handler.Delete)
		videos.GET("/:id/frames", handler.Frames)
		videos.POST("/:id/frames", handler.PutFrame)
	}
}
