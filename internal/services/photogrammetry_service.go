package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/models"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
)

const defaultReconstructionMethod = "SfM"

var processingStatuses = map[string]struct{}{
	models.ProcessingPending:    {},
	models.ProcessingProcessing: {},
	models.ProcessingCompleted:  {},
	models.ProcessingFailed:     {},
}

// CreateReconstructionInput describes a new photogrammetry job.
type CreateReconstructionInput struct {
	ProjectID            string
	ReconstructionMethod string
	QualitySettings      json.RawMessage
	InputImagesCount     int
}

// UpdateReconstructionInput reports job progress. Nil means unchanged.
type UpdateReconstructionInput struct {
	ProcessingStatus *string
	OutputMeshPath   *string
	ProcessingLog    *string
}

// CameraInput carries the pose and calibration of a camera viewpoint.
type CameraInput struct {
	ImagePath string
	PositionX float64
	PositionY float64
	PositionZ float64
	RotationX float64
	RotationY float64
	RotationZ float64
	CameraCalibrationInput
}

// CameraCalibrationInput holds intrinsic camera parameters. Nil means unchanged.
type CameraCalibrationInput struct {
	CalibrationMatrix      json.RawMessage
	DistortionCoefficients json.RawMessage
	FocalLength            *float64
	SensorWidth            *float64
	SensorHeight           *float64
	ImageWidth             *int
	ImageHeight            *int
}

// PhotogrammetryService tracks reconstruction jobs and camera viewpoints.
type PhotogrammetryService struct {
	db *gorm.DB
}

// NewPhotogrammetryService constructs a PhotogrammetryService.
func NewPhotogrammetryService(db *gorm.DB) (*PhotogrammetryService, error) {
	if db == nil {
		return nil, errors.New("photogrammetry service: db is required")
	}
	return &PhotogrammetryService{db: db}, nil
}

// CreateProject registers a pending reconstruction job on an owned model.
func (s *PhotogrammetryService) CreateProject(ctx context.Context, userID, modelID string, input CreateReconstructionInput) (*models.PhotogrammetryProject, error) {
	ctx = ensureContext(ctx)

	if err := ensureModelOwned(ctx, s.db, userID, modelID); err != nil {
		return nil, err
	}
	if input.InputImagesCount < 0 {
		return nil, apperrors.NewBadRequest("input_images_count cannot be negative")
	}

	project := &models.PhotogrammetryProject{
		ModelID:              modelID,
		ProjectID:            optionalID(input.ProjectID),
		UserID:               userID,
		ReconstructionMethod: defaultString(input.ReconstructionMethod, defaultReconstructionMethod),
		QualitySettings:      jsonColumn(input.QualitySettings),
		InputImagesCount:     input.InputImagesCount,
		ProcessingStatus:     models.ProcessingPending,
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("photogrammetry service: create project: %w", err)
	}
	return s.GetProject(ctx, userID, project.ID)
}

// GetProject loads a job owned by the user together with its model's name and path.
func (s *PhotogrammetryService) GetProject(ctx context.Context, userID, id string) (*models.PhotogrammetryProject, error) {
	ctx = ensureContext(ctx)

	var project models.PhotogrammetryProject
	err := s.db.WithContext(ctx).Model(&models.PhotogrammetryProject{}).
		Select("photogrammetry_projects.*, models.name AS model_name, models.file_path AS model_path").
		Joins("LEFT JOIN models ON models.id = photogrammetry_projects.model_id").
		Where("photogrammetry_projects.id = ? AND photogrammetry_projects.user_id = ?", id, userID).
		Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPhotogrammetryProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("photogrammetry service: get project: %w", err)
	}
	return &project, nil
}

// ListProjects returns the jobs of an owned model, newest first.
func (s *PhotogrammetryService) ListProjects(ctx context.Context, userID, modelID string) ([]models.PhotogrammetryProject, error) {
	ctx = ensureContext(ctx)

	if err := ensureModelOwned(ctx, s.db, userID, modelID); err != nil {
		return nil, err
	}

	projects := []models.PhotogrammetryProject{}
	if err := s.db.WithContext(ctx).
		Where("model_id = ? AND user_id = ?", modelID, userID).
		Order("created_at DESC").Order("id DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("photogrammetry service: list projects: %w", err)
	}
	return projects, nil
}

// UpdateProject records processing progress on a job.
func (s *PhotogrammetryService) UpdateProject(ctx context.Context, userID, id string, input UpdateReconstructionInput) (*models.PhotogrammetryProject, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if status := trimmedPtr(input.ProcessingStatus); status != nil {
		normalised := strings.ToLower(*status)
		if _, ok := processingStatuses[normalised]; !ok {
			return nil, apperrors.NewBadRequest("processing_status must be pending, processing, completed or failed")
		}
		updates["processing_status"] = normalised
	}
	if input.OutputMeshPath != nil {
		updates["output_mesh_path"] = input.OutputMeshPath
	}
	if input.ProcessingLog != nil {
		updates["processing_log"] = input.ProcessingLog
	}
	if len(updates) == 0 {
		return s.GetProject(ctx, userID, id)
	}

	res := s.db.WithContext(ctx).Model(&models.PhotogrammetryProject{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("photogrammetry service: update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrPhotogrammetryProjectNotFound
	}
	return s.GetProject(ctx, userID, id)
}

// AddCamera stores a camera viewpoint on an owned model.
func (s *PhotogrammetryService) AddCamera(ctx context.Context, userID, modelID string, input CameraInput) (*models.CameraViewpoint, error) {
	ctx = ensureContext(ctx)

	if err := ensureModelOwned(ctx, s.db, userID, modelID); err != nil {
		return nil, err
	}

	camera := &models.CameraViewpoint{
		ModelID:                modelID,
		ImagePath:              strings.TrimSpace(input.ImagePath),
		PositionX:              input.PositionX,
		PositionY:              input.PositionY,
		PositionZ:              input.PositionZ,
		RotationX:              input.RotationX,
		RotationY:              input.RotationY,
		RotationZ:              input.RotationZ,
		CalibrationMatrix:      jsonColumn(input.CalibrationMatrix),
		DistortionCoefficients: jsonColumn(input.DistortionCoefficients),
		FocalLength:            input.FocalLength,
		SensorWidth:            input.SensorWidth,
		SensorHeight:           input.SensorHeight,
		ImageWidth:             input.ImageWidth,
		ImageHeight:            input.ImageHeight,
	}
	if err := s.db.WithContext(ctx).Create(camera).Error; err != nil {
		return nil, fmt.Errorf("photogrammetry service: add camera: %w", err)
	}
	return camera, nil
}

// ListCameras returns the camera viewpoints of an owned model.
func (s *PhotogrammetryService) ListCameras(ctx context.Context, userID, modelID string) ([]models.CameraViewpoint, error) {
	ctx = ensureContext(ctx)

	if err := ensureModelOwned(ctx, s.db, userID, modelID); err != nil {
		return nil, err
	}

	cameras := []models.CameraViewpoint{}
	if err := s.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("created_at ASC").
		Find(&cameras).Error; err != nil {
		return nil, fmt.Errorf("photogrammetry service: list cameras: %w", err)
	}
	return cameras, nil
}

// UpdateCameraCalibration applies calibration changes to a camera whose
// model belongs to the user.
func (s *PhotogrammetryService) UpdateCameraCalibration(ctx context.Context, userID, cameraID string, input CameraCalibrationInput) (*models.CameraViewpoint, error) {
	ctx = ensureContext(ctx)

	camera, err := s.ownedCamera(ctx, userID, cameraID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.CalibrationMatrix != nil {
		updates["calibration_matrix"] = jsonColumn(input.CalibrationMatrix)
	}
	if input.DistortionCoefficients != nil {
		updates["distortion_coefficients"] = jsonColumn(input.DistortionCoefficients)
	}
	if input.FocalLength != nil {
		updates["focal_length"] = *input.FocalLength
	}
	if input.SensorWidth != nil {
		updates["sensor_width"] = *input.SensorWidth
	}
	if input.SensorHeight != nil {
		updates["sensor_height"] = *input.SensorHeight
	}
	if input.ImageWidth != nil {
		updates["image_width"] = *input.ImageWidth
	}
	if input.ImageHeight != nil {
		updates["image_height"] = *input.ImageHeight
	}
	if len(updates) == 0 {
		return camera, nil
	}

	if err := s.db.WithContext(ctx).Model(camera).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("photogrammetry service: update camera: %w", err)
	}
	return s.ownedCamera(ctx, userID, cameraID)
}

func (s *PhotogrammetryService) ownedCamera(ctx context.Context, userID, cameraID string) (*models.CameraViewpoint, error) {
	var camera models.CameraViewpoint
	err := s.db.WithContext(ctx).
		Joins("JOIN models ON models.id = camera_viewpoints.model_id").
		Where("camera_viewpoints.id = ? AND models.user_id = ?", cameraID, userID).
		Take(&camera).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCameraNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("photogrammetry service: load camera: %w", err)
	}
	return &camera, nil
}
