package georef

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one located item rendered into a FeatureCollection.
type Feature struct {
	ID         string
	Coordinate GeoCoordinate
	Properties map[string]interface{}
}

// FeatureCollection renders features as GeoJSON points. Altitude is exposed
// as the "altitude" property since orb points are two dimensional.
func FeatureCollection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		feature := geojson.NewFeature(orb.Point{f.Coordinate.Longitude, f.Coordinate.Latitude})
		if f.ID != "" {
			feature.ID = f.ID
		}
		for k, v := range f.Properties {
			feature.Properties[k] = v
		}
		feature.Properties["altitude"] = f.Coordinate.Altitude
		fc.Append(feature)
	}
	return fc
}

// Bound returns the bounding box of the features, or false when empty.
func Bound(features []Feature) (orb.Bound, bool) {
	if len(features) == 0 {
		return orb.Bound{}, false
	}
	points := make(orb.MultiPoint, 0, len(features))
	for _, f := range features {
		points = append(points, orb.Point{f.Coordinate.Longitude, f.Coordinate.Latitude})
	}
	return points.Bound(), true
}
