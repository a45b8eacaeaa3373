package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/models"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
)

var projectStatuses = map[string]struct{}{
	models.ProjectStatusActive:   {},
	models.ProjectStatusArchived: {},
}

// CreateProjectInput captures the fields of a new project.
type CreateProjectInput struct {
	Name        string
	Description string
}

// UpdateProjectInput describes mutable project fields. A nil pointer indicates no change.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *string
}

// ProjectService manages a user's projects.
type ProjectService struct {
	db    *gorm.DB
	cache *cache.QueryCache
	ttls  cache.TTLs
}

// NewProjectService constructs a project service once a database handle is supplied.
func NewProjectService(db *gorm.DB, queryCache *cache.QueryCache, ttls cache.TTLs) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{db: db, cache: queryCache, ttls: ttls}, nil
}

// List returns one page of the user's projects, newest first.
func (s *ProjectService) List(ctx context.Context, userID string, req PageRequest) (*Page[models.Project], error) {
	ctx = ensureContext(ctx)
	req = req.normalise()

	key := cache.ProjectListKey(userID, req.Page, req.Limit)
	return cache.Remember(s.cache, key, s.ttls.List, func() (*Page[models.Project], error) {
		page := &Page[models.Project]{Page: req.Page, Limit: req.Limit, Items: []models.Project{}}

		p := pool.New().WithErrors().WithContext(ctx)
		p.Go(func(ctx context.Context) error {
			return s.db.WithContext(ctx).Model(&models.Project{}).
				Where("user_id = ?", userID).
				Count(&page.Total).Error
		})
		p.Go(func(ctx context.Context) error {
			return s.db.WithContext(ctx).
				Where("user_id = ?", userID).
				Order("created_at DESC").Order("id DESC").
				Offset(req.offset()).Limit(req.Limit).
				Find(&page.Items).Error
		})
		if err := p.Wait(); err != nil {
			return nil, fmt.Errorf("project service: list projects: %w", err)
		}
		return page, nil
	})
}

// Get loads a project owned by the user.
func (s *ProjectService) Get(ctx context.Context, userID, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get project: %w", err)
	}
	return &project, nil
}

// Exists reports whether the user owns the project.
func (s *ProjectService) Exists(ctx context.Context, userID, id string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("project service: verify ownership: %w", err)
	}
	return count > 0, nil
}

// Create persists a new active project.
func (s *ProjectService) Create(ctx context.Context, userID string, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("project name is required")
	}

	project := &models.Project{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      models.ProjectStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}

	s.invalidate(userID)
	return project, nil
}

// Update applies the supplied changes to a project owned by the user.
func (s *ProjectService) Update(ctx context.Context, userID, id string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	project, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := trimmedPtr(input.Name); name != nil {
		if *name == "" {
			return nil, apperrors.NewBadRequest("project name cannot be empty")
		}
		updates["name"] = *name
	}
	if desc := trimmedPtr(input.Description); desc != nil {
		updates["description"] = *desc
	}
	if status := trimmedPtr(input.Status); status != nil {
		normalised := strings.ToLower(*status)
		if _, ok := projectStatuses[normalised]; !ok {
			return nil, apperrors.NewBadRequest("status must be active or archived")
		}
		updates["status"] = normalised
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := s.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("project service: update project: %w", err)
	}

	s.invalidate(userID)
	// project names appear in model listings
	s.cache.Invalidate(cache.ModelListPattern(userID))
	return s.Get(ctx, userID, id)
}

// Delete removes a project and detaches its models.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProjectNotFound
		}
		return tx.Model(&models.Model{}).
			Where("project_id = ? AND user_id = ?", id, userID).
			Update("project_id", nil).Error
	})
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("project service: delete project: %w", err)
	}

	s.invalidate(userID)
	s.cache.Invalidate(cache.ModelListPattern(userID))
	return nil
}

func (s *ProjectService) invalidate(userID string) {
	s.cache.Invalidate(cache.ProjectListPattern(userID))
	s.cache.Invalidate(cache.UserStatsKey(userID))
}
