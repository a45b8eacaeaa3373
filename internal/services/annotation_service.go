package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/georef"
	"github.com/charlesng35/web3drender/internal/models"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
)

// CreateAnnotationInput describes a new annotation. Optional strings fall
// back to the annotation defaults when blank.
type CreateAnnotationInput struct {
	ModelID          string
	Title            string
	Description      string
	PositionX        *float64
	PositionY        *float64
	PositionZ        *float64
	NormalX          *float64
	NormalY          *float64
	NormalZ          *float64
	Color            string
	AnnotationType   string
	MeasurementValue *float64
	MeasurementUnit  string
	Priority         string
	Latitude         *float64
	Longitude        *float64
	Altitude         *float64
}

// UpdateAnnotationInput lists the mutable annotation fields. Nil means unchanged.
type UpdateAnnotationInput struct {
	Title            *string
	Description      *string
	PositionX        *float64
	PositionY        *float64
	PositionZ        *float64
	Color            *string
	Status           *string
	Priority         *string
	MeasurementValue *float64
	MeasurementUnit  *string
}

// AddImageInput attaches an image to an annotation.
type AddImageInput struct {
	ImagePath       string
	ImageName       string
	ImageIdentifier string
	ThumbnailPath   string
	CameraPositionX *float64
	CameraPositionY *float64
	CameraPositionZ *float64
	DisplayOrder    int
}

// AnnotationService manages annotations and their images.
type AnnotationService struct {
	db    *gorm.DB
	cache *cache.QueryCache
	ttls  cache.TTLs
}

// NewAnnotationService constructs an AnnotationService.
func NewAnnotationService(db *gorm.DB, queryCache *cache.QueryCache, ttls cache.TTLs) (*AnnotationService, error) {
	if db == nil {
		return nil, errors.New("annotation service: db is required")
	}
	return &AnnotationService{db: db, cache: queryCache, ttls: ttls}, nil
}

// ListByModel returns every annotation of an owned model, newest first, with
// images in display order.
func (s *AnnotationService) ListByModel(ctx context.Context, userID, modelID string) ([]models.Annotation, error) {
	ctx = ensureContext(ctx)

	if err := ensureModelOwned(ctx, s.db, userID, modelID); err != nil {
		return nil, err
	}

	return cache.Remember(s.cache, cache.AnnotationsKey(modelID), s.ttls.Annotation, func() ([]models.Annotation, error) {
		annotations := []models.Annotation{}
		err := s.withImages(s.db.WithContext(ctx)).
			Where("model_id = ?", modelID).
			Order("created_at DESC").Order("id DESC").
			Find(&annotations).Error
		if err != nil {
			return nil, fmt.Errorf("annotation service: list annotations: %w", err)
		}
		for i := range annotations {
			annotations[i].ImageCount = len(annotations[i].Images)
		}
		return annotations, nil
	})
}

// GeoJSON renders the georeferenced annotations of a model as a feature collection.
func (s *AnnotationService) GeoJSON(ctx context.Context, userID, modelID string) (*geojson.FeatureCollection, error) {
	annotations, err := s.ListByModel(ctx, userID, modelID)
	if err != nil {
		return nil, err
	}

	features := make([]georef.Feature, 0, len(annotations))
	for _, a := range annotations {
		if !a.Georeferenced || a.Latitude == nil || a.Longitude == nil {
			continue
		}
		features = append(features, georef.Feature{
			ID: a.ID,
			Coordinate: georef.GeoCoordinate{
				Latitude:  *a.Latitude,
				Longitude: *a.Longitude,
				Altitude:  valueOr(a.Altitude, 0),
			},
			Properties: map[string]interface{}{
				"title":           a.Title,
				"annotation_type": a.AnnotationType,
				"color":           a.Color,
				"priority":        a.Priority,
				"status":          a.Status,
				"image_count":     a.ImageCount,
			},
		})
	}

	fc := georef.FeatureCollection(features)
	if bound, ok := georef.Bound(features); ok {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc, nil
}

// Get loads an annotation created by the user.
func (s *AnnotationService) Get(ctx context.Context, userID, id string) (*models.Annotation, error) {
	ctx = ensureContext(ctx)

	var annotation models.Annotation
	err := s.withImages(s.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&annotation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnnotationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("annotation service: get annotation: %w", err)
	}
	annotation.ImageCount = len(annotation.Images)
	return &annotation, nil
}

// Create places an annotation on an owned model. When the model is
// georeferenced and no geographic position was supplied, one is derived
// from the local position.
func (s *AnnotationService) Create(ctx context.Context, userID string, input CreateAnnotationInput) (*models.Annotation, error) {
	ctx = ensureContext(ctx)

	modelID := strings.TrimSpace(input.ModelID)
	if modelID == "" {
		return nil, apperrors.NewBadRequest("model_id is required")
	}
	if input.PositionX == nil || input.PositionY == nil || input.PositionZ == nil {
		return nil, apperrors.NewBadRequest("position_x, position_y and position_z are required")
	}

	var model models.Model
	err := s.db.WithContext(ctx).
		Select("id", "origin_lat", "origin_lon", "origin_altitude").
		Where("id = ? AND user_id = ?", modelID, userID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("annotation service: load model: %w", err)
	}

	annotation := &models.Annotation{
		ModelID:          modelID,
		UserID:           userID,
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		PositionX:        *input.PositionX,
		PositionY:        *input.PositionY,
		PositionZ:        *input.PositionZ,
		NormalX:          input.NormalX,
		NormalY:          input.NormalY,
		NormalZ:          input.NormalZ,
		Color:            defaultString(input.Color, models.AnnotationDefaultColor),
		AnnotationType:   defaultString(input.AnnotationType, models.AnnotationDefaultType),
		MeasurementValue: input.MeasurementValue,
		MeasurementUnit:  defaultString(input.MeasurementUnit, models.AnnotationDefaultUnit),
		Priority:         defaultString(input.Priority, models.AnnotationDefaultPriority),
		Status:           models.AnnotationStatusActive,
		Latitude:         input.Latitude,
		Longitude:        input.Longitude,
		Altitude:         input.Altitude,
	}

	switch {
	case input.Latitude != nil && input.Longitude != nil:
		annotation.Georeferenced = true
	case model.Georeferenced():
		applyCoordinates(annotation, georef.Annotate(model.Origin(), annotationPoint(annotation)))
	}

	if err := s.db.WithContext(ctx).Create(annotation).Error; err != nil {
		return nil, fmt.Errorf("annotation service: create annotation: %w", err)
	}

	s.cache.Invalidate(cache.AnnotationsKey(modelID))
	annotation.Images = []models.AnnotationImage{}
	return annotation, nil
}

// Update applies a partial update. Moving a derived annotation on a
// georeferenced model recomputes its geographic position.
func (s *AnnotationService) Update(ctx context.Context, userID, id string, input UpdateAnnotationInput) (*models.Annotation, error) {
	ctx = ensureContext(ctx)

	annotation, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if title := trimmedPtr(input.Title); title != nil {
		updates["title"] = *title
	}
	if desc := trimmedPtr(input.Description); desc != nil {
		updates["description"] = *desc
	}
	if color := trimmedPtr(input.Color); color != nil && *color != "" {
		updates["color"] = *color
	}
	if status := trimmedPtr(input.Status); status != nil && *status != "" {
		updates["status"] = *status
	}
	if priority := trimmedPtr(input.Priority); priority != nil && *priority != "" {
		updates["priority"] = *priority
	}
	if input.MeasurementValue != nil {
		updates["measurement_value"] = *input.MeasurementValue
	}
	if unit := trimmedPtr(input.MeasurementUnit); unit != nil && *unit != "" {
		updates["measurement_unit"] = *unit
	}

	moved := false
	for column, value := range map[string]*float64{
		"position_x": input.PositionX,
		"position_y": input.PositionY,
		"position_z": input.PositionZ,
	} {
		if value != nil {
			updates[column] = *value
			moved = true
		}
	}

	if moved {
		var model models.Model
		if err := s.db.WithContext(ctx).
			Select("id", "origin_lat", "origin_lon", "origin_altitude").
			Where("id = ?", annotation.ModelID).
			Take(&model).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("annotation service: load model: %w", err)
		}
		if model.Georeferenced() {
			point := georef.Point3D{
				X: valueOr(input.PositionX, annotation.PositionX),
				Y: valueOr(input.PositionY, annotation.PositionY),
				Z: valueOr(input.PositionZ, annotation.PositionZ),
			}
			coords := georef.Annotate(model.Origin(), point)
			updates["latitude"] = coords.Latitude
			updates["longitude"] = coords.Longitude
			updates["altitude"] = coords.Altitude
			updates["georeferenced"] = coords.Georeferenced
		}
	}

	if len(updates) == 0 {
		return annotation, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Annotation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("annotation service: update annotation: %w", err)
	}

	s.cache.Invalidate(cache.AnnotationsKey(annotation.ModelID))
	return s.Get(ctx, userID, id)
}

// Delete removes an annotation and its images.
func (s *AnnotationService) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)

	annotation, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("annotation_id = ?", id).Delete(&models.AnnotationImage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Annotation{}).Error
	})
	if err != nil {
		return fmt.Errorf("annotation service: delete annotation: %w", err)
	}

	s.cache.Invalidate(cache.AnnotationsKey(annotation.ModelID))
	return nil
}

// AddImage attaches an image to an annotation created by the user.
func (s *AnnotationService) AddImage(ctx context.Context, userID, annotationID string, input AddImageInput) (*models.AnnotationImage, error) {
	ctx = ensureContext(ctx)

	path := strings.TrimSpace(input.ImagePath)
	if path == "" {
		return nil, apperrors.NewBadRequest("image_path is required")
	}

	var annotation models.Annotation
	err := s.db.WithContext(ctx).
		Select("id", "model_id").
		Where("id = ? AND user_id = ?", annotationID, userID).
		Take(&annotation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnnotationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("annotation service: load annotation: %w", err)
	}

	image := &models.AnnotationImage{
		AnnotationID:    annotationID,
		ImagePath:       path,
		ImageName:       strings.TrimSpace(input.ImageName),
		ImageIdentifier: strings.TrimSpace(input.ImageIdentifier),
		ThumbnailPath:   strings.TrimSpace(input.ThumbnailPath),
		CameraPositionX: input.CameraPositionX,
		CameraPositionY: input.CameraPositionY,
		CameraPositionZ: input.CameraPositionZ,
		DisplayOrder:    input.DisplayOrder,
	}
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, fmt.Errorf("annotation service: add image: %w", err)
	}

	s.cache.Invalidate(cache.AnnotationsKey(annotation.ModelID))
	return image, nil
}

// DeleteImage removes an image whose annotation belongs to the user.
func (s *AnnotationService) DeleteImage(ctx context.Context, userID, imageID string) error {
	ctx = ensureContext(ctx)

	var owner struct {
		ModelID string
	}
	err := s.db.WithContext(ctx).Model(&models.AnnotationImage{}).
		Select("annotations.model_id AS model_id").
		Joins("JOIN annotations ON annotations.id = annotation_images.annotation_id").
		Where("annotation_images.id = ? AND annotations.user_id = ?", imageID, userID).
		Take(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAnnotationImageNotFound
	}
	if err != nil {
		return fmt.Errorf("annotation service: load image: %w", err)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", imageID).Delete(&models.AnnotationImage{}).Error; err != nil {
		return fmt.Errorf("annotation service: delete image: %w", err)
	}

	s.cache.Invalidate(cache.AnnotationsKey(owner.ModelID))
	return nil
}

func (s *AnnotationService) withImages(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order ASC").Order("created_at ASC")
	})
}

func annotationPoint(a *models.Annotation) georef.Point3D {
	return georef.Point3D{X: a.PositionX, Y: a.PositionY, Z: a.PositionZ}
}

func applyCoordinates(a *models.Annotation, coords georef.AnnotationCoordinates) {
	a.Latitude = coords.Latitude
	a.Longitude = coords.Longitude
	a.Altitude = coords.Altitude
	a.Georeferenced = coords.Georeferenced
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
