package models

// AnnotationImage is a photo attached to an annotation.
type AnnotationImage struct {
	BaseModel

	AnnotationID    string   `gorm:"type:uuid;not null;index" json:"annotation_id"`
	ImagePath       string   `gorm:"type:varchar(512);not null" json:"image_path"`
	ImageName       string   `gorm:"type:varchar(255)" json:"image_name,omitempty"`
	ImageIdentifier string   `gorm:"type:varchar(255)" json:"image_identifier,omitempty"`
	ThumbnailPath   string   `gorm:"type:varchar(512)" json:"thumbnail_path,omitempty"`
	CameraPositionX *float64 `json:"camera_position_x"`
	CameraPositionY *float64 `json:"camera_position_y"`
	CameraPositionZ *float64 `json:"camera_position_z"`
	DisplayOrder    int      `gorm:"default:0" json:"display_order"`
}
