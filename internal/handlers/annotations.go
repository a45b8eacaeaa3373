package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/services"
	"github.com/charlesng35/web3drender/pkg/response"
)

// AnnotationHandler exposes annotations pinned to models and their images.
type AnnotationHandler struct {
	svc *services.AnnotationService
}

func NewAnnotationHandler(svc *services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{svc: svc}
}

type createAnnotationRequest struct {
	ModelID          string   `json:"model_id" validate:"required"`
	Title            string   `json:"title" validate:"max=255"`
	Description      string   `json:"description" validate:"max=5000"`
	PositionX        *float64 `json:"position_x" validate:"required"`
	PositionY        *float64 `json:"position_y" validate:"required"`
	PositionZ        *float64 `json:"position_z" validate:"required"`
	NormalX          *float64 `json:"normal_x"`
	NormalY          *float64 `json:"normal_y"`
	NormalZ          *float64 `json:"normal_z"`
	Color            string   `json:"color" validate:"max=16"`
	AnnotationType   string   `json:"annotation_type" validate:"max=32"`
	MeasurementValue *float64 `json:"measurement_value"`
	MeasurementUnit  string   `json:"measurement_unit" validate:"max=16"`
	Priority         string   `json:"priority" validate:"max=16"`
	Latitude         *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude        *float64 `json:"longitude" validate:"omitempty,longitude"`
	Altitude         *float64 `json:"altitude"`
}

type updateAnnotationRequest struct {
	Title            *string  `json:"title" validate:"omitempty,max=255"`
	Description      *string  `json:"description" validate:"omitempty,max=5000"`
	PositionX        *float64 `json:"position_x"`
	PositionY        *float64 `json:"position_y"`
	PositionZ        *float64 `json:"position_z"`
	Color            *string  `json:"color" validate:"omitempty,max=16"`
	Status           *string  `json:"status" validate:"omitempty,max=32"`
	Priority         *string  `json:"priority" validate:"omitempty,max=16"`
	MeasurementValue *float64 `json:"measurement_value"`
	MeasurementUnit  *string  `json:"measurement_unit" validate:"omitempty,max=16"`
}

type addImageRequest struct {
	ImagePath       string   `json:"image_path" validate:"required,max=512"`
	ImageName       string   `json:"image_name" validate:"max=255"`
	ImageIdentifier string   `json:"image_identifier" validate:"max=255"`
	ThumbnailPath   string   `json:"thumbnail_path" validate:"max=512"`
	CameraPositionX *float64 `json:"camera_position_x"`
	CameraPositionY *float64 `json:"camera_position_y"`
	CameraPositionZ *float64 `json:"camera_position_z"`
	DisplayOrder    int      `json:"display_order"`
}

// GET /api/annotations/model/:modelId
func (h *AnnotationHandler) ListByModel(c *gin.Context) {
	annotations, err := h.svc.ListByModel(requestContext(c), currentUserID(c), c.Param("modelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, annotations)
}

// GET /api/annotations/model/:modelId/geojson
//
// Served bare so GIS clients can consume the collection directly.
func (h *AnnotationHandler) GeoJSON(c *gin.Context) {
	fc, err := h.svc.GeoJSON(requestContext(c), currentUserID(c), c.Param("modelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

// GET /api/annotations/:id
func (h *AnnotationHandler) Get(c *gin.Context) {
	annotation, err := h.svc.Get(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, annotation)
}

// POST /api/annotations
func (h *AnnotationHandler) Create(c *gin.Context) {
	var req createAnnotationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	annotation, err := h.svc.Create(requestContext(c), currentUserID(c), services.CreateAnnotationInput{
		ModelID:          req.ModelID,
		Title:            req.Title,
		Description:      req.Description,
		PositionX:        req.PositionX,
		PositionY:        req.PositionY,
		PositionZ:        req.PositionZ,
		NormalX:          req.NormalX,
		NormalY:          req.NormalY,
		NormalZ:          req.NormalZ,
		Color:            req.Color,
		AnnotationType:   req.AnnotationType,
		MeasurementValue: req.MeasurementValue,
		MeasurementUnit:  req.MeasurementUnit,
		Priority:         req.Priority,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Altitude:         req.Altitude,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, annotation)
}

// PUT /api/annotations/:id
func (h *AnnotationHandler) Update(c *gin.Context) {
	var req updateAnnotationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	annotation, err := h.svc.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateAnnotationInput{
		Title:            req.Title,
		Description:      req.Description,
		PositionX:        req.PositionX,
		PositionY:        req.PositionY,
		PositionZ:        req.PositionZ,
		Color:            req.Color,
		Status:           req.Status,
		Priority:         req.Priority,
		MeasurementValue: req.MeasurementValue,
		MeasurementUnit:  req.MeasurementUnit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, annotation)
}

// DELETE /api/annotations/:id
func (h *AnnotationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/annotations/:id/images
func (h *AnnotationHandler) AddImage(c *gin.Context) {
	var req addImageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	image, err := h.svc.AddImage(requestContext(c), currentUserID(c), c.Param("id"), services.AddImageInput{
		ImagePath:       req.ImagePath,
		ImageName:       req.ImageName,
		ImageIdentifier: req.ImageIdentifier,
		ThumbnailPath:   req.ThumbnailPath,
		CameraPositionX: req.CameraPositionX,
		CameraPositionY: req.CameraPositionY,
		CameraPositionZ: req.CameraPositionZ,
		DisplayOrder:    req.DisplayOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, image)
}

// DELETE /api/annotations/images/:imageId
func (h *AnnotationHandler) DeleteImage(c *gin.Context) {
	if err := h.svc.DeleteImage(requestContext(c), currentUserID(c), c.Param("imageId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
