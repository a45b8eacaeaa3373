package models

// Annotation defaults.
const (
	AnnotationDefaultColor    = "#FF0000"
	AnnotationDefaultType     = "marker"
	AnnotationDefaultUnit     = "m"
	AnnotationDefaultPriority = "normal"
	AnnotationStatusActive    = "active"
)

// Annotation marks a point of interest on a model.
type Annotation struct {
	BaseModel

	ModelID     string `gorm:"type:uuid;not null;index" json:"model_id"`
	UserID      string `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string `gorm:"type:varchar(255)" json:"title,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	PositionX float64  `gorm:"not null" json:"position_x"`
	PositionY float64  `gorm:"not null" json:"position_y"`
	PositionZ float64  `gorm:"not null" json:"position_z"`
	NormalX   *float64 `json:"normal_x"`
	NormalY   *float64 `json:"normal_y"`
	NormalZ   *float64 `json:"normal_z"`

	Color            string   `gorm:"type:varchar(16);not null" json:"color"`
	AnnotationType   string   `gorm:"type:varchar(32);not null" json:"annotation_type"`
	MeasurementValue *float64 `json:"measurement_value"`
	MeasurementUnit  string   `gorm:"type:varchar(16)" json:"measurement_unit"`
	Priority         string   `gorm:"type:varchar(16);not null" json:"priority"`
	Status           string   `gorm:"type:varchar(16);not null" json:"status"`

	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Altitude      *float64 `json:"altitude"`
	Georeferenced bool     `gorm:"default:false" json:"georeferenced"`

	Images     []AnnotationImage `gorm:"foreignKey:AnnotationID;constraint:OnDelete:CASCADE" json:"images"`
	ImageCount int               `gorm:"-" json:"image_count"`
}
