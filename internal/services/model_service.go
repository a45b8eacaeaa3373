package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/models"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
)

// CreateModelInput describes a stored upload to register as a model.
type CreateModelInput struct {
	ProjectID       string
	Name            string
	Description     string
	FilePath        string
	FileSize        int64
	FileType        string
	ModelType       string
	CRS             *string
	OriginLat       *float64
	OriginLon       *float64
	OriginAltitude  *float64
	TransformMatrix json.RawMessage
	Metadata        json.RawMessage
}

// UpdateModelInput captures editable model attributes. A nil pointer means
// unchanged; an empty ProjectID detaches the model from its project.
type UpdateModelInput struct {
	Name        *string
	Description *string
	ProjectID   *string
}

// ModelStats summarises a user's models.
type ModelStats struct {
	TotalModels int64 `json:"total_models"`
	TotalSize   int64 `json:"total_size"`
	UniqueTypes int64 `json:"unique_types"`
}

// ModelService manages uploaded model records.
type ModelService struct {
	db    *gorm.DB
	cache *cache.QueryCache
	ttls  cache.TTLs
}

// NewModelService constructs a ModelService.
func NewModelService(db *gorm.DB, queryCache *cache.QueryCache, ttls cache.TTLs) (*ModelService, error) {
	if db == nil {
		return nil, errors.New("model service: db is required")
	}
	return &ModelService{db: db, cache: queryCache, ttls: ttls}, nil
}

// List returns one page of the user's models, newest first, with project names.
func (s *ModelService) List(ctx context.Context, userID string, req PageRequest) (*Page[models.Model], error) {
	ctx = ensureContext(ctx)
	req = req.normalise()

	key := cache.ModelListKey(userID, req.Page, req.Limit)
	return cache.Remember(s.cache, key, s.ttls.List, func() (*Page[models.Model], error) {
		page := &Page[models.Model]{Page: req.Page, Limit: req.Limit, Items: []models.Model{}}

		p := pool.New().WithErrors().WithContext(ctx)
		p.Go(func(ctx context.Context) error {
			return s.db.WithContext(ctx).Model(&models.Model{}).
				Where("user_id = ?", userID).
				Count(&page.Total).Error
		})
		p.Go(func(ctx context.Context) error {
			return s.withProjectName(s.db.WithContext(ctx)).
				Where("models.user_id = ?", userID).
				Order("models.created_at DESC").Order("models.id DESC").
				Offset(req.offset()).Limit(req.Limit).
				Find(&page.Items).Error
		})
		if err := p.Wait(); err != nil {
			return nil, fmt.Errorf("model service: list models: %w", err)
		}
		return page, nil
	})
}

// Get loads a model owned by the user.
func (s *ModelService) Get(ctx context.Context, userID, id string) (*models.Model, error) {
	ctx = ensureContext(ctx)

	var model models.Model
	err := s.withProjectName(s.db.WithContext(ctx)).
		Where("models.id = ? AND models.user_id = ?", id, userID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("model service: get model: %w", err)
	}
	return &model, nil
}

// Stats counts a user's models, their total size and distinct file types.
func (s *ModelService) Stats(ctx context.Context, userID string) (*ModelStats, error) {
	ctx = ensureContext(ctx)

	var stats ModelStats
	err := s.db.WithContext(ctx).Model(&models.Model{}).
		Select("COUNT(*) AS total_models, COALESCE(SUM(file_size), 0) AS total_size, COUNT(DISTINCT file_type) AS unique_types").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("model service: stats: %w", err)
	}
	return &stats, nil
}

// Create registers an uploaded file inside one of the user's projects.
func (s *ModelService) Create(ctx context.Context, userID string, input CreateModelInput) (*models.Model, error) {
	ctx = ensureContext(ctx)

	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return nil, apperrors.NewBadRequest("project_id is required")
	}
	if strings.TrimSpace(input.FilePath) == "" {
		return nil, apperrors.NewBadRequest("file path is required")
	}
	if err := s.ensureProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	modelType := strings.TrimSpace(input.ModelType)
	if modelType == "" {
		modelType = models.ModelTypeStatic
	}

	model := &models.Model{
		UserID:          userID,
		ProjectID:       &projectID,
		Name:            strings.TrimSpace(input.Name),
		Description:     strings.TrimSpace(input.Description),
		FilePath:        input.FilePath,
		FileSize:        input.FileSize,
		FileType:        strings.ToLower(strings.TrimSpace(input.FileType)),
		ModelType:       modelType,
		CRS:             trimmedPtr(input.CRS),
		OriginLat:       input.OriginLat,
		OriginLon:       input.OriginLon,
		OriginAltitude:  input.OriginAltitude,
		TransformMatrix: jsonColumn(input.TransformMatrix),
		Metadata:        jsonColumn(input.Metadata),
	}
	if model.Name == "" {
		model.Name = input.FilePath
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("model service: create model: %w", err)
	}

	s.invalidate(userID)
	return s.Get(ctx, userID, model.ID)
}

// Update applies name, description and project changes.
func (s *ModelService) Update(ctx context.Context, userID, id string, input UpdateModelInput) (*models.Model, error) {
	ctx = ensureContext(ctx)

	model, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := trimmedPtr(input.Name); name != nil {
		if *name == "" {
			return nil, apperrors.NewBadRequest("model name cannot be empty")
		}
		updates["name"] = *name
	}
	if desc := trimmedPtr(input.Description); desc != nil {
		updates["description"] = *desc
	}
	if input.ProjectID != nil {
		projectID := optionalID(*input.ProjectID)
		if projectID != nil {
			if err := s.ensureProject(ctx, userID, *projectID); err != nil {
				return nil, err
			}
		}
		updates["project_id"] = projectID
	}
	if len(updates) == 0 {
		return model, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Model{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("model service: update model: %w", err)
	}

	s.invalidate(userID)
	return s.Get(ctx, userID, id)
}

// Delete removes a model and every record hanging off it. The deleted model
// is returned so the caller can remove its file.
func (s *ModelService) Delete(ctx context.Context, userID, id string) (*models.Model, error) {
	ctx = ensureContext(ctx)

	model, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		annotationIDs := tx.Model(&models.Annotation{}).Select("id").Where("model_id = ?", id)
		if err := tx.Where("annotation_id IN (?)", annotationIDs).Delete(&models.AnnotationImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("model_id = ?", id).Delete(&models.Annotation{}).Error; err != nil {
			return err
		}

		videoIDs := tx.Model(&models.VolumetricVideo{}).Select("id").Where("model_id = ?", id)
		if err := tx.Where("volumetric_video_id IN (?)", videoIDs).Delete(&models.VolumetricVideoFrame{}).Error; err != nil {
			return err
		}
		for _, dependent := range []any{&models.VolumetricVideo{}, &models.PhotogrammetryProject{}, &models.CameraViewpoint{}} {
			if err := tx.Where("model_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}

		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Model{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrModelNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("model service: delete model: %w", err)
	}

	s.invalidate(userID)
	s.cache.Invalidate(cache.AnnotationsKey(id))
	return model, nil
}

// Owned reports whether the model exists and belongs to the user.
func (s *ModelService) Owned(ctx context.Context, userID, id string) error {
	return ensureModelOwned(ensureContext(ctx), s.db, userID, id)
}

func (s *ModelService) ensureProject(ctx context.Context, userID, projectID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("model service: verify project: %w", err)
	}
	if count == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *ModelService) withProjectName(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.Model{}).
		Select("models.*, projects.name AS project_name").
		Joins("LEFT JOIN projects ON projects.id = models.project_id")
}

func (s *ModelService) invalidate(userID string) {
	s.cache.Invalidate(cache.ModelListPattern(userID))
	s.cache.Invalidate(cache.UserStatsKey(userID))
}

// ensureModelOwned returns ErrModelNotFound unless the user owns the model.
func ensureModelOwned(ctx context.Context, db *gorm.DB, userID, modelID string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Model{}).
		Where("id = ? AND user_id = ?", modelID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("verify model ownership: %w", err)
	}
	if count == 0 {
		return ErrModelNotFound
	}
	return nil
}
