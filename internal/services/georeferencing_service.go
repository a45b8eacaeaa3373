package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/georef"
	"github.com/charlesng35/web3drender/internal/models"
	apperrors "github.com/charlesng35/web3drender/pkg/errors"
	"github.com/charlesng35/web3drender/pkg/metrics"
)

// Georeferencing is the georeferencing state of one model.
type Georeferencing struct {
	ModelID         string         `json:"model_id"`
	CRS             *string        `json:"crs"`
	OriginLat       *float64       `json:"origin_lat"`
	OriginLon       *float64       `json:"origin_lon"`
	OriginAltitude  *float64       `json:"origin_altitude"`
	TransformMatrix datatypes.JSON `json:"transform_matrix"`
	Georeferenced   bool           `json:"georeferenced"`
}

// Origin returns the anchor of the model's local frame.
func (g *Georeferencing) Origin() georef.Origin {
	return georef.Origin{Lat: g.OriginLat, Lon: g.OriginLon, Altitude: g.OriginAltitude}
}

// UpdateGeoreferencingInput replaces every georeferencing field. Nil clears a field.
type UpdateGeoreferencingInput struct {
	CRS             *string
	OriginLat       *float64
	OriginLon       *float64
	OriginAltitude  *float64
	TransformMatrix json.RawMessage
}

// GeoreferencingService reads, writes and applies model origins.
type GeoreferencingService struct {
	db    *gorm.DB
	cache *cache.QueryCache
}

// NewGeoreferencingService constructs a GeoreferencingService.
func NewGeoreferencingService(db *gorm.DB, queryCache *cache.QueryCache) (*GeoreferencingService, error) {
	if db == nil {
		return nil, errors.New("georeferencing service: db is required")
	}
	return &GeoreferencingService{db: db, cache: queryCache}, nil
}

// Get returns the georeferencing of a model owned by the user.
func (s *GeoreferencingService) Get(ctx context.Context, userID, modelID string) (*Georeferencing, error) {
	ctx = ensureContext(ctx)

	var model models.Model
	err := s.db.WithContext(ctx).
		Select("id", "crs", "origin_lat", "origin_lon", "origin_altitude", "transform_matrix").
		Where("id = ? AND user_id = ?", modelID, userID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("georeferencing service: load model: %w", err)
	}
	return georeferencingOf(&model), nil
}

// Update overwrites the CRS, origin and transform matrix of a model in one
// statement filtered by owner.
func (s *GeoreferencingService) Update(ctx context.Context, userID, modelID string, input UpdateGeoreferencingInput) (*Georeferencing, error) {
	ctx = ensureContext(ctx)

	var crs *string
	if trimmed := trimmedPtr(input.CRS); trimmed != nil && *trimmed != "" {
		crs = trimmed
	}

	res := s.db.WithContext(ctx).Model(&models.Model{}).
		Where("id = ? AND user_id = ?", modelID, userID).
		Updates(map[string]any{
			"crs":              crs,
			"origin_lat":       input.OriginLat,
			"origin_lon":       input.OriginLon,
			"origin_altitude":  input.OriginAltitude,
			"transform_matrix": jsonColumn(input.TransformMatrix),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("georeferencing service: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrModelNotFound
	}

	s.cache.Invalidate(cache.ModelListPattern(userID))
	return s.Get(ctx, userID, modelID)
}

// ConvertToGeographic maps a local point of the model to latitude, longitude
// and altitude.
func (s *GeoreferencingService) ConvertToGeographic(ctx context.Context, userID, modelID string, point georef.Point3D) (*georef.GeoCoordinate, error) {
	info, err := s.Get(ctx, userID, modelID)
	if err != nil {
		return nil, err
	}
	return toGeographic(info, point)
}

// ConvertToLocal maps a geographic position to the model's local frame.
func (s *GeoreferencingService) ConvertToLocal(ctx context.Context, userID, modelID string, geo georef.GeoCoordinate) (*georef.Point3D, error) {
	info, err := s.Get(ctx, userID, modelID)
	if err != nil {
		return nil, err
	}
	return toLocal(info, geo)
}

func toGeographic(info *Georeferencing, point georef.Point3D) (*georef.GeoCoordinate, error) {
	geo, ok := georef.ToGeographic(info.Origin(), point)
	if !ok {
		return nil, apperrors.ErrNotGeoreferenced
	}
	if !finite(geo.Latitude, geo.Longitude, geo.Altitude) {
		return nil, ErrInvalidConversion
	}
	metrics.CoordinateConversions.WithLabelValues("to_geographic").Inc()
	return &geo, nil
}

func toLocal(info *Georeferencing, geo georef.GeoCoordinate) (*georef.Point3D, error) {
	point, ok := georef.ToLocal(info.Origin(), geo)
	if !ok {
		return nil, apperrors.ErrNotGeoreferenced
	}
	if !finite(point.X, point.Y, point.Z) {
		return nil, ErrInvalidConversion
	}
	metrics.CoordinateConversions.WithLabelValues("to_local").Inc()
	return &point, nil
}

// finite reports whether every value can be rendered as a JSON number.
func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// ConversionDirection selects the target frame of a coordinate conversion.
type ConversionDirection string

// Supported conversion directions.
const (
	ToGeographic ConversionDirection = "to-geographic"
	ToLocal      ConversionDirection = "to-local"
)

// ConversionRequest carries either a local point or a geographic position.
type ConversionRequest struct {
	Direction ConversionDirection
	X, Y, Z   *float64
	Lat, Lon  *float64
	Altitude  *float64
}

// ConversionResult holds the outcome of Convert; exactly one side is set.
type ConversionResult struct {
	Geographic *georef.GeoCoordinate `json:"geographic,omitempty"`
	Local      *georef.Point3D       `json:"local,omitempty"`
}

// Convert checks ownership, then validates the request and dispatches it by
// direction. to-geographic needs x, y and z; to-local needs lat and lon,
// altitude defaults to 0. Results that overflow to Inf or NaN are rejected
// as invalid parameters.
func (s *GeoreferencingService) Convert(ctx context.Context, userID, modelID string, req ConversionRequest) (*ConversionResult, error) {
	info, err := s.Get(ctx, userID, modelID)
	if err != nil {
		return nil, err
	}

	switch ConversionDirection(strings.ToLower(string(req.Direction))) {
	case ToGeographic:
		if req.X == nil || req.Y == nil || req.Z == nil {
			return nil, ErrInvalidConversion
		}
		geo, err := toGeographic(info, georef.Point3D{X: *req.X, Y: *req.Y, Z: *req.Z})
		if err != nil {
			return nil, err
		}
		return &ConversionResult{Geographic: geo}, nil
	case ToLocal:
		if req.Lat == nil || req.Lon == nil {
			return nil, ErrInvalidConversion
		}
		point, err := toLocal(info, georef.GeoCoordinate{
			Latitude:  *req.Lat,
			Longitude: *req.Lon,
			Altitude:  valueOr(req.Altitude, 0),
		})
		if err != nil {
			return nil, err
		}
		return &ConversionResult{Local: point}, nil
	default:
		return nil, ErrInvalidConversion
	}
}

func georeferencingOf(model *models.Model) *Georeferencing {
	return &Georeferencing{
		ModelID:         model.ID,
		CRS:             model.CRS,
		OriginLat:       model.OriginLat,
		OriginLon:       model.OriginLon,
		OriginAltitude:  model.OriginAltitude,
		TransformMatrix: model.TransformMatrix,
		Georeferenced:   model.Georeferenced(),
	}
}

func valueOr(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}
