package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/web3drender/internal/models"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
)

const (
	defaultFrameLimit = 100
	maxFrameLimit     = 1000
)

// CreateVolumetricVideoInput describes a frame sequence attached to a model.
type CreateVolumetricVideoInput struct {
	VideoPath        string
	FrameCount       *int
	FPS              *float64
	ResolutionWidth  *int
	ResolutionHeight *int
	Format           string
	Metadata         json.RawMessage
}

// FrameQuery selects a window of frames. Start and End are inclusive.
type FrameQuery struct {
	Start *int
	End   *int
	Limit int
}

// FrameInput stores one frame of a video.
type FrameInput struct {
	FrameNumber *int
	FramePath   string
	Timestamp   *float64
}

// VolumetricVideoService manages volumetric videos and their frames.
type VolumetricVideoService struct {
	db *gorm.DB
}

// NewVolumetricVideoService constructs a VolumetricVideoService.
func NewVolumetricVideoService(db *gorm.DB) (*VolumetricVideoService, error) {
	if db == nil {
		return nil, errors.New("volumetric video service: db is required")
	}
	return &VolumetricVideoService{db: db}, nil
}

// Create registers a video on an owned model.
func (s *VolumetricVideoService) Create(ctx context.Context, userID, modelID string, input CreateVolumetricVideoInput) (*models.VolumetricVideo, error) {
	ctx = ensureContext(ctx)

	path := strings.TrimSpace(input.VideoPath)
	if path == "" {
		return nil, apperrors.NewBadRequest("video_path is required")
	}
	if err := ensureModelOwned(ctx, s.db, userID, modelID); err != nil {
		return nil, err
	}

	video := &models.VolumetricVideo{
		ModelID:          modelID,
		UserID:           userID,
		VideoPath:        path,
		FrameCount:       input.FrameCount,
		FPS:              input.FPS,
		ResolutionWidth:  input.ResolutionWidth,
		ResolutionHeight: input.ResolutionHeight,
		Format:           defaultString(input.Format, models.DefaultVolumetricFormat),
		Metadata:         jsonColumn(input.Metadata),
	}
	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		return nil, fmt.Errorf("volumetric video service: create video: %w", err)
	}
	return video, nil
}

// Get loads a video owned by the user.
func (s *VolumetricVideoService) Get(ctx context.Context, userID, id string) (*models.VolumetricVideo, error) {
	ctx = ensureContext(ctx)

	var video models.VolumetricVideo
	err := s.db.WithContext(ctx).First(&video, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVolumetricVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("volumetric video service: get video: %w", err)
	}
	return &video, nil
}

// Latest returns the most recently created video of an owned model.
func (s *VolumetricVideoService) Latest(ctx context.Context, userID, modelID string) (*models.VolumetricVideo, error) {
	ctx = ensureContext(ctx)

	if err := ensureModelOwned(ctx, s.db, userID, modelID); err != nil {
		return nil, err
	}

	var video models.VolumetricVideo
	err := s.db.WithContext(ctx).
		Where("model_id = ? AND user_id = ?", modelID, userID).
		Order("created_at DESC").Order("id DESC").
		Take(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVolumetricVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("volumetric video service: latest video: %w", err)
	}
	return &video, nil
}

// Delete removes a video and its frames.
func (s *VolumetricVideoService) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.VolumetricVideo{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVolumetricVideoNotFound
		}
		return tx.Where("volumetric_video_id = ?", id).Delete(&models.VolumetricVideoFrame{}).Error
	})
	if errors.Is(err, ErrVolumetricVideoNotFound) {
		return ErrVolumetricVideoNotFound
	}
	if err != nil {
		return fmt.Errorf("volumetric video service: delete video: %w", err)
	}
	return nil
}

// Frames returns frames of an owned video ordered by frame number.
func (s *VolumetricVideoService) Frames(ctx context.Context, userID, videoID string, query FrameQuery) ([]models.VolumetricVideoFrame, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, userID, videoID); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultFrameLimit
	}
	if limit > maxFrameLimit {
		limit = maxFrameLimit
	}

	tx := s.db.WithContext(ctx).Where("volumetric_video_id = ?", videoID)
	if query.Start != nil {
		tx = tx.Where("frame_number >= ?", *query.Start)
	}
	if query.End != nil {
		tx = tx.Where("frame_number <= ?", *query.End)
	}

	frames := []models.VolumetricVideoFrame{}
	if err := tx.Order("frame_number ASC").Limit(limit).Find(&frames).Error; err != nil {
		return nil, fmt.Errorf("volumetric video service: list frames: %w", err)
	}
	return frames, nil
}

// PutFrame inserts a frame or replaces the frame with the same number.
func (s *VolumetricVideoService) PutFrame(ctx context.Context, userID, videoID string, input FrameInput) (*models.VolumetricVideoFrame, error) {
	ctx = ensureContext(ctx)

	if input.FrameNumber == nil || *input.FrameNumber < 0 {
		return nil, apperrors.NewBadRequest("frame_number must be a non-negative integer")
	}
	path := strings.TrimSpace(input.FramePath)
	if path == "" {
		return nil, apperrors.NewBadRequest("frame_path is required")
	}
	if _, err := s.Get(ctx, userID, videoID); err != nil {
		return nil, err
	}

	frame := &models.VolumetricVideoFrame{
		VolumetricVideoID: videoID,
		FrameNumber:       *input.FrameNumber,
		FramePath:         path,
		Timestamp:         input.Timestamp,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "volumetric_video_id"}, {Name: "frame_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"frame_path", "timestamp", "updated_at"}),
	}).Create(frame).Error
	if err != nil {
		return nil, fmt.Errorf("volumetric video service: store frame: %w", err)
	}

	var stored models.VolumetricVideoFrame
	if err := s.db.WithContext(ctx).
		First(&stored, "volumetric_video_id = ? AND frame_number = ?", videoID, *input.FrameNumber).Error; err != nil {
		return nil, fmt.Errorf("volumetric video service: reload frame: %w", err)
	}
	return &stored, nil
}
