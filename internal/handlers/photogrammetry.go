package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/web3drender/internal/services"
	"github.com/charlesng35/web3drender/pkg/response"
)

// PhotogrammetryHandler tracks reconstruction jobs and camera viewpoints.
type PhotogrammetryHandler struct {
	svc *services.PhotogrammetryService
}

func NewPhotogrammetryHandler(svc *services.PhotogrammetryService) *PhotogrammetryHandler {
	return &PhotogrammetryHandler{svc: svc}
}

type createReconstructionRequest struct {
	ProjectID            string          `json:"project_id"`
	ReconstructionMethod string          `json:"reconstruction_method" validate:"max=32"`
	QualitySettings      json.RawMessage `json:"quality_settings"`
	InputImagesCount     int             `json:"input_images_count" validate:"gte=0"`
}

type updateReconstructionRequest struct {
	ProcessingStatus *string `json:"processing_status" validate:"omitempty,oneof=pending processing completed failed"`
	OutputMeshPath   *string `json:"output_mesh_path" validate:"omitempty,max=512"`
	ProcessingLog    *string `json:"processing_log"`
}

type calibrationRequest struct {
	CalibrationMatrix      json.RawMessage `json:"calibration_matrix"`
	DistortionCoefficients json.RawMessage `json:"distortion_coefficients"`
	FocalLength            *float64        `json:"focal_length"`
	SensorWidth            *float64        `json:"sensor_width"`
	SensorHeight           *float64        `json:"sensor_height"`
	ImageWidth             *int            `json:"image_width"`
	ImageHeight            *int            `json:"image_height"`
}

func (r calibrationRequest) input() services.CameraCalibrationInput {
	return services.CameraCalibrationInput{
		CalibrationMatrix:      r.CalibrationMatrix,
		DistortionCoefficients: r.DistortionCoefficients,
		FocalLength:            r.FocalLength,
		SensorWidth:            r.SensorWidth,
		SensorHeight:           r.SensorHeight,
		ImageWidth:             r.ImageWidth,
		ImageHeight:            r.ImageHeight,
	}
}

type cameraRequest struct {
	ImagePath string  `json:"image_path" validate:"required,max=512"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	PositionZ float64 `json:"position_z"`
	RotationX float64 `json:"rotation_x"`
	RotationY float64 `json:"rotation_y"`
	RotationZ float64 `json:"rotation_z"`
	calibrationRequest
}

// POST /api/photogrammetry/models/:modelId/projects
func (h *PhotogrammetryHandler) CreateProject(c *gin.Context) {
	var req createReconstructionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.svc.CreateProject(requestContext(c), currentUserID(c), c.Param("modelId"), services.CreateReconstructionInput{
		ProjectID:            req.ProjectID,
		ReconstructionMethod: req.ReconstructionMethod,
		QualitySettings:      req.QualitySettings,
		InputImagesCount:     req.InputImagesCount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}

// GET /api/photogrammetry/models/:modelId/projects
func (h *PhotogrammetryHandler) ListProjects(c *gin.Context) {
	projects, err := h.svc.ListProjects(requestContext(c), currentUserID(c), c.Param("modelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, projects)
}

// GET /api/photogrammetry/projects/:id
func (h *PhotogrammetryHandler) GetProject(c *gin.Context) {
	project, err := h.svc.GetProject(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// PUT /api/photogrammetry/projects/:id
func (h *PhotogrammetryHandler) UpdateProject(c *gin.Context) {
	var req updateReconstructionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.svc.UpdateProject(requestContext(c), currentUserID(c), c.Param("id"), services.UpdateReconstructionInput{
		ProcessingStatus: req.ProcessingStatus,
		OutputMeshPath:   req.OutputMeshPath,
		ProcessingLog:    req.ProcessingLog,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// POST /api/photogrammetry/models/:modelId/cameras
func (h *PhotogrammetryHandler) AddCamera(c *gin.Context) {
	var req cameraRequest
	if !bindAndValidate(c, &req) {
		return
	}

	camera, err := h.svc.AddCamera(requestContext(c), currentUserID(c), c.Param("modelId"), services.CameraInput{
		ImagePath:              req.ImagePath,
		PositionX:              req.PositionX,
		PositionY:              req.PositionY,
		PositionZ:              req.PositionZ,
		RotationX:              req.RotationX,
		RotationY:              req.RotationY,
		RotationZ:              req.RotationZ,
		CameraCalibrationInput: req.input(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, camera)
}

// GET /api/photogrammetry/models/:modelId/cameras
func (h *PhotogrammetryHandler) ListCameras(c *gin.Context) {
	cameras, err := h.svc.ListCameras(requestContext(c), currentUserID(c), c.Param("modelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cameras)
}

// PUT /api/photogrammetry/cameras/:id
func (h *PhotogrammetryHandler) UpdateCamera(c *gin.Context) {
	var req calibrationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	camera, err := h.svc.UpdateCameraCalibration(requestContext(c), currentUserID(c), c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, camera)
}
