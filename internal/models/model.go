package models

import (
	"gorm.io/datatypes"

	"github.com/charlesng35/web3drender/internal/georef"
)

// Model types.
const (
	ModelTypeStatic     = "static"
	ModelTypeVolumetric = "volumetric_video"
)

// Model is an uploaded 3D asset and its optional georeferencing.
type Model struct {
	BaseModel

	UserID      string  `gorm:"type:uuid;not null;index" json:"user_id"`
	ProjectID   *string `gorm:"type:uuid;index" json:"project_id"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	FilePath    string  `gorm:"type:varchar(512);not null" json:"file_path"`
	FileSize    int64   `json:"file_size"`
	FileType    string  `gorm:"type:varchar(32);index" json:"file_type"`
	ModelType   string  `gorm:"type:varchar(32);not null;default:static" json:"model_type"`

	CRS             *string        `gorm:"column:crs;type:varchar(64)" json:"crs"`
	OriginLat       *float64       `json:"origin_lat"`
	OriginLon       *float64       `json:"origin_lon"`
	OriginAltitude  *float64       `json:"origin_altitude"`
	TransformMatrix datatypes.JSON `json:"transform_matrix,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`

	ProjectName string `gorm:"->;-:migration" json:"project_name,omitempty"`
}

// Origin returns the georeferencing anchor stored on the model.
func (m *Model) Origin() georef.Origin {
	return georef.Origin{Lat: m.OriginLat, Lon: m.OriginLon, Altitude: m.OriginAltitude}
}

// Georeferenced reports whether both origin coordinates are set.
func (m *Model) Georeferenced() bool {
	return m.Origin().Georeferenced()
}
