package models

import "gorm.io/datatypes"

// DefaultVolumetricFormat is applied when a video is registered without a format.
const DefaultVolumetricFormat = "PLY_SEQUENCE"

// VolumetricVideo is a sequence of per-frame meshes or point clouds bound to a model.
type VolumetricVideo struct {
	BaseModel

	ModelID          string         `gorm:"type:uuid;not null;index" json:"model_id"`
	UserID           string         `gorm:"type:uuid;not null;index" json:"user_id"`
	VideoPath        string         `gorm:"type:varchar(512);not null" json:"video_path"`
	FrameCount       *int           `json:"frame_count"`
	FPS              *float64       `gorm:"column:fps" json:"fps"`
	ResolutionWidth  *int           `json:"resolution_width"`
	ResolutionHeight *int           `json:"resolution_height"`
	Format           string         `gorm:"type:varchar(32);not null" json:"format"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
}

// VolumetricVideoFrame is one frame of a VolumetricVideo. Frame numbers are
// unique per video.
type VolumetricVideoFrame struct {
	BaseModel

	VolumetricVideoID string   `gorm:"type:uuid;not null;uniqueIndex:idx_video_frame" json:"volumetric_video_id"`
	FrameNumber       int      `gorm:"not null;uniqueIndex:idx_video_frame" json:"frame_number"`
	FramePath         string   `gorm:"type:varchar(512);not null" json:"frame_path"`
	Timestamp         *float64 `json:"timestamp"`
}
