package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/web3drender/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken indicates another account already uses the address.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "User with this email already exists", http.StatusConflict)
	// ErrProjectNotFound covers missing projects and projects owned by someone else.
	ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)
	// ErrModelNotFound covers missing models and models owned by someone else.
	ErrModelNotFound = apperrors.New("MODEL_NOT_FOUND", "Model not found", http.StatusNotFound)
	// ErrAnnotationNotFound covers missing or foreign annotations.
	ErrAnnotationNotFound = apperrors.New("ANNOTATION_NOT_FOUND", "Annotation not found", http.StatusNotFound)
	// ErrAnnotationImageNotFound covers missing or foreign annotation images.
	ErrAnnotationImageNotFound = apperrors.New("IMAGE_NOT_FOUND", "Image not found", http.StatusNotFound)
	// ErrPhotogrammetryProjectNotFound covers missing or foreign reconstruction jobs.
	ErrPhotogrammetryProjectNotFound = apperrors.New("PHOTOGRAMMETRY_PROJECT_NOT_FOUND", "Photogrammetry project not found", http.StatusNotFound)
	// ErrCameraNotFound covers missing or foreign camera viewpoints.
	ErrCameraNotFound = apperrors.New("CAMERA_NOT_FOUND", "Camera not found", http.StatusNotFound)
	// ErrVolumetricVideoNotFound covers missing or foreign volumetric videos.
	ErrVolumetricVideoNotFound = apperrors.New("VOLUMETRIC_VIDEO_NOT_FOUND", "Volumetric video not found", http.StatusNotFound)
	// ErrInvalidConversion indicates missing direction or coordinates for a conversion.
	ErrInvalidConversion = apperrors.New("INVALID_CONVERSION", "Invalid conversion parameters", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
