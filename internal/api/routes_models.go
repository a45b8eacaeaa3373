package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/handlers"
)

func registerModelRoutes(api *gin.RouterGroup, handler *handlers.ModelHandler) {
	models := api.Group("/models")
	{
		models.GET("", handler.List)
		models.GET("/stats", handler.Stats)
		models.POST("/upload", handler.Upload)
		models.GET("/:id", handler.Get)
		models.PUT("/:id", handler.Update)
		models.DELETE("/:id", handler.Delete)
		models.GET("/:id/georeferencing", handler.GetGeoreferencing)
		models.PUT("/:id/georeferencing", handler.UpdateGeoreferencing)
		models.POST("/:id/convert-coordinates", handler.ConvertCoordinates)
	}
}

func registerAnnotationRoutes(api *gin.RouterGroup, handler *handlers.AnnotationHandler) {
	annotations := api.Group("/annotations")
	{
		annotations.GET("/model/:modelId", handler.ListByModel)
		annotations.GET("/model/:modelId/geojson", handler.GeoJSON)
		annotations.POST("", handler.Create)
		annotations.DELETE("/images/:imageId", handler.DeleteImage)
		annotations.GET("/:id", handler.Get)
		annotations.PUT("/:id", handler.Update)
		annotations.DELETE("/:id", handler.Delete)
		annotations.POST("/:id/images", handler.AddImage)
	}
}
