package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/models"
	"github.com/charlesng35/web3drender/pkg/crypto"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
)

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateProfileInput enumerates mutable profile attributes. Nil means unchanged.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

// UserStats aggregates what a user has stored.
type UserStats struct {
	TotalProjects int64 `json:"total_projects"`
	TotalModels   int64 `json:"total_models"`
	TotalStorage  int64 `json:"total_storage"`
}

// UserService manages accounts, credentials and per-user statistics.
type UserService struct {
	db           *gorm.DB
	cache        *cache.QueryCache
	ttls         cache.TTLs
	passwordCost int
	now          func() time.Time
}

// UserServiceOption customises a UserService.
type UserServiceOption func(*UserService)

// WithPasswordCost overrides the bcrypt cost used for new passwords.
func WithPasswordCost(cost int) UserServiceOption {
	return func(s *UserService) {
		if cost > 0 {
			s.passwordCost = cost
		}
	}
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, queryCache *cache.QueryCache, ttls cache.TTLs, opts ...UserServiceOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	svc := &UserService{
		db:           db,
		cache:        queryCache,
		ttls:         ttls,
		passwordCost: crypto.PasswordCost,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates an account with a hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	email := models.NormaliseEmail(input.Email)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if input.Password == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("user service: check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := crypto.HashPasswordWithCost(input.Password, s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{Name: name, Email: email, Password: hashed}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies credentials and records the login time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", models.NormaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now
	return &user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile persists name and email changes.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := trimmedPtr(input.Name); name != nil && *name != "" && *name != user.Name {
		updates["name"] = *name
	}
	if input.Email != nil {
		if email := models.NormaliseEmail(*input.Email); email != "" && email != user.Email {
			updates["email"] = email
		}
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Stats returns the cached project, model and storage totals of a user.
func (s *UserService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	ctx = ensureContext(ctx)

	return cache.Remember(s.cache, cache.UserStatsKey(userID), s.ttls.List, func() (*UserStats, error) {
		var (
			stats     UserStats
			modelsAgg struct {
				Count int64
				Size  int64
			}
		)

		p := pool.New().WithErrors().WithContext(ctx)
		p.Go(func(ctx context.Context) error {
			return s.db.WithContext(ctx).Model(&models.Project{}).
				Where("user_id = ?", userID).
				Count(&stats.TotalProjects).Error
		})
		p.Go(func(ctx context.Context) error {
			return s.db.WithContext(ctx).Model(&models.Model{}).
				Select("COUNT(*) AS count, COALESCE(SUM(file_size), 0) AS size").
				Where("user_id = ?", userID).
				Scan(&modelsAgg).Error
		})
		if err := p.Wait(); err != nil {
			return nil, fmt.Errorf("user service: stats: %w", err)
		}

		stats.TotalModels = modelsAgg.Count
		stats.TotalStorage = modelsAgg.Size
		return &stats, nil
	})
}
