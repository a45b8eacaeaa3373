package models

// Project status values.
const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

// Project groups uploaded models.
type Project struct {
	BaseModel

	UserID      string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string `gorm:"type:varchar(200);not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Status      string `gorm:"type:varchar(20);not null;default:active" json:"status"`
}
