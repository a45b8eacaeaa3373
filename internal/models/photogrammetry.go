package models

import "gorm.io/datatypes"

// Photogrammetry processing states.
const (
	ProcessingPending    = "pending"
	ProcessingProcessing = "processing"
	ProcessingCompleted  = "completed"
	ProcessingFailed     = "failed"
)

// PhotogrammetryProject tracks a reconstruction job for a model.
type PhotogrammetryProject struct {
	BaseModel

	ModelID              string         `gorm:"type:uuid;not null;index" json:"model_id"`
	ProjectID            *string        `gorm:"type:uuid;index" json:"project_id"`
	UserID               string         `gorm:"type:uuid;not null;index" json:"user_id"`
	ReconstructionMethod string         `gorm:"type:varchar(32);not null;default:SfM" json:"reconstruction_method"`
	QualitySettings      datatypes.JSON `json:"quality_settings,omitempty"`
	InputImagesCount     int            `gorm:"default:0" json:"input_images_count"`
	ProcessingStatus     string         `gorm:"type:varchar(20);not null;default:pending" json:"processing_status"`
	OutputMeshPath       *string        `gorm:"type:varchar(512)" json:"output_mesh_path"`
	ProcessingLog        *string        `gorm:"type:text" json:"processing_log"`

	ModelName string `gorm:"->;-:migration" json:"model_name,omitempty"`
	ModelPath string `gorm:"->;-:migration" json:"model_path,omitempty"`
}

// CameraViewpoint stores the pose and calibration of a source image.
type CameraViewpoint struct {
	BaseModel

	ModelID   string  `gorm:"type:uuid;not null;index" json:"model_id"`
	ImagePath string  `gorm:"type:varchar(512)" json:"image_path,omitempty"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	PositionZ float64 `json:"position_z"`
	RotationX float64 `json:"rotation_x"`
	RotationY float64 `json:"rotation_y"`
	RotationZ float64 `json:"rotation_z"`

	CalibrationMatrix      datatypes.JSON `json:"calibration_matrix,omitempty"`
	DistortionCoefficients datatypes.JSON `json:"distortion_coefficients,omitempty"`
	FocalLength            *float64       `json:"focal_length"`
	SensorWidth            *float64       `json:"sensor_width"`
	SensorHeight           *float64       `json:"sensor_height"`
	ImageWidth             *int           `json:"image_width"`
	ImageHeight            *int           `json:"image_height"`
}
