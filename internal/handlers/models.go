package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/web3drender/internal/models"
	"github.com/charlesng35/web3drender/internal/services"
	"github.com/charlesng35/web3drender/internal/uploads"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
	"github.com/charlesng35/web3drender/pkg/logger"
	"github.com/charlesng35/web3drender/pkg/metrics"
	"github.com/charlesng35/web3drender/pkg/response"
)

const uploadField = "model"

var errNoFile = apperrors.NewBadRequest("No file uploaded")

// ModelHandler serves model uploads, listings and georeferencing.
type ModelHandler struct {
	models  *services.ModelService
	georef  *services.GeoreferencingService
	storage *uploads.Storage
}

func NewModelHandler(modelSvc *services.ModelService, georefSvc *services.GeoreferencingService, storage *uploads.Storage) *ModelHandler {
	return &ModelHandler{models: modelSvc, georef: georefSvc, storage: storage}
}

type updateModelRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ProjectID   *string `json:"project_id"`
}

type georeferencingRequest struct {
	CRS             *string         `json:"crs" validate:"omitempty,max=64"`
	OriginLat       *float64        `json:"origin_lat" validate:"omitempty,latitude"`
	OriginLon       *float64        `json:"origin_lon" validate:"omitempty,longitude"`
	OriginAltitude  *float64        `json:"origin_altitude"`
	TransformMatrix json.RawMessage `json:"transform_matrix"`
}

type convertRequest struct {
	Direction string   `json:"direction"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Z         *float64 `json:"z"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Altitude  *float64 `json:"altitude"`
}

// GET /api/models
func (h *ModelHandler) List(c *gin.Context) {
	page, err := h.models.List(requestContext(c), currentUserID(c), pageRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, page.Items, response.NewMeta(page.Page, page.Limit, page.Total))
}

// GET /api/models/stats
func (h *ModelHandler) Stats(c *gin.Context) {
	stats, err := h.models.Stats(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GET /api/models/:id
func (h *ModelHandler) Get(c *gin.Context) {
	model, err := h.models.Get(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, model)
}

// POST /api/models/upload
func (h *ModelHandler) Upload(c *gin.Context) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		response.Error(c, errNoFile)
		return
	}

	input, err := modelInputFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "failed to read upload"))
		return
	}
	defer src.Close()

	stored, err := h.storage.Save(header.Filename, src)
	if err != nil {
		response.Error(c, mapStorageError(err))
		return
	}

	if input.ModelType == models.ModelTypeVolumetric && !uploads.IsVolumetric(stored.Extension) {
		h.discard(stored.Name)
		response.Error(c, apperrors.NewBadRequest(fmt.Sprintf("%s files cannot hold a volumetric video", stored.Extension)))
		return
	}

	input.FilePath = stored.Name
	input.FileSize = stored.Size
	input.FileType = stored.Extension
	if input.Name == "" {
		input.Name = header.Filename
	}

	model, err := h.models.Create(requestContext(c), currentUserID(c), input)
	if err != nil {
		h.discard(stored.Name)
		response.Error(c, err)
		return
	}

	metrics.UploadedBytes.WithLabelValues(string(stored.Category)).Add(float64(stored.Size))
	response.Success(c, http.StatusCreated, model)
}

// PUT /api/models/:id
func (h *ModelHandler) Update(c *gin.Context) {
	var req updateModelRequest
	if !bindAndValidate(c, &req) {
		return
	}

	model, err := h.models.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateModelInput{
		Name:        req.Name,
		Description: req.Description,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, model)
}

// DELETE /api/models/:id
func (h *ModelHandler) Delete(c *gin.Context) {
	model, err := h.models.Delete(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.discard(model.FilePath)
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/models/:id/georeferencing
func (h *ModelHandler) GetGeoreferencing(c *gin.Context) {
	geo, err := h.georef.Get(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, geo)
}

// PUT /api/models/:id/georeferencing
func (h *ModelHandler) UpdateGeoreferencing(c *gin.Context) {
	var req georeferencingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	geo, err := h.georef.Update(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateGeoreferencingInput{
		CRS:             req.CRS,
		OriginLat:       req.OriginLat,
		OriginLon:       req.OriginLon,
		OriginAltitude:  req.OriginAltitude,
		TransformMatrix: req.TransformMatrix,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, geo)
}

// POST /api/models/:id/convert-coordinates
func (h *ModelHandler) ConvertCoordinates(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, services.ErrInvalidConversion)
		return
	}

	result, err := h.georef.Convert(requestContext(c), currentUserID(c), c.Param("id"), services.ConversionRequest{
		Direction: services.ConversionDirection(strings.TrimSpace(req.Direction)),
		X:         req.X,
		Y:         req.Y,
		Z:         req.Z,
		Lat:       req.Lat,
		Lon:       req.Lon,
		Altitude:  req.Altitude,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Geographic != nil {
		response.Success(c, http.StatusOK, result.Geographic)
		return
	}
	response.Success(c, http.StatusOK, result.Local)
}

func (h *ModelHandler) discard(name string) {
	if name == "" {
		return
	}
	if err := h.storage.Remove(name); err != nil {
		logger.WithModule("models").Warn("failed to remove model file",
			zap.String("file", name),
			zap.Error(err),
		)
	}
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, uploads.ErrUnsupportedType):
		return apperrors.NewBadRequest("Unsupported file type")
	case errors.Is(err, uploads.ErrFileTooLarge):
		return apperrors.ErrPayloadTooLarge
	case errors.Is(err, uploads.ErrContentMismatch):
		return apperrors.NewBadRequest("File content does not match its extension")
	default:
		return apperrors.Wrap(err, "failed to store upload")
	}
}

// modelInputFromForm reads the non-file multipart fields of an upload.
func modelInputFromForm(c *gin.Context) (services.CreateModelInput, error) {
	input := services.CreateModelInput{
		ProjectID:   strings.TrimSpace(c.PostForm("project_id")),
		Name:        strings.TrimSpace(c.PostForm("name")),
		Description: strings.TrimSpace(c.PostForm("description")),
		ModelType:   strings.TrimSpace(c.PostForm("model_type")),
	}
	if input.ProjectID == "" {
		return input, apperrors.NewBadRequest("Project ID is required")
	}
	switch input.ModelType {
	case "", models.ModelTypeStatic, models.ModelTypeVolumetric:
	default:
		return input, apperrors.NewBadRequest("model type must be static or volumetric_video")
	}

	if crs := strings.TrimSpace(c.PostForm("crs")); crs != "" {
		input.CRS = &crs
	}

	var err error
	if input.OriginLat, err = formFloat(c, "origin_lat"); err != nil {
		return input, err
	}
	if input.OriginLon, err = formFloat(c, "origin_lon"); err != nil {
		return input, err
	}
	if input.OriginAltitude, err = formFloat(c, "origin_altitude"); err != nil {
		return input, err
	}
	if input.TransformMatrix, err = formJSON(c, "transform_matrix"); err != nil {
		return input, err
	}
	if input.Metadata, err = formJSON(c, "metadata"); err != nil {
		return input, err
	}
	return input, nil
}

func formFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("%s must be a number", prettifyFieldName(key)))
	}
	return &value, nil
}

func formJSON(c *gin.Context, key string) (json.RawMessage, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("%s must be valid JSON", prettifyFieldName(key)))
	}
	return json.RawMessage(raw), nil
}
