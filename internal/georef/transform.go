// Package georef converts between a model's local metric frame and
// geographic coordinates using a flat-earth approximation around the
// model's origin.
package georef

import "math"

// EarthRadius is the equatorial radius in metres applied regardless of CRS.
const EarthRadius = 6378137.0

// DefaultCRS is stored on models that never had a CRS assigned.
const DefaultCRS = "EPSG:4326"

// Origin anchors a model's local frame. Lat and Lon must both be set for the
// model to be georeferenced; Altitude is optional.
type Origin struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Altitude *float64 `json:"altitude"`
}

// Georeferenced reports whether the origin can anchor conversions.
func (o Origin) Georeferenced() bool {
	return o.Lat != nil && o.Lon != nil
}

// Point3D is a position in model-local metres. X points east, Y north.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GeoCoordinate is a geographic position in degrees with altitude in metres.
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// ToGeographic projects a local point onto geographic coordinates. It returns
// false when the origin is not georeferenced.
//
// The longitude offset divides by cos(origin latitude), so an origin at a pole
// yields an unbounded (possibly infinite) longitude.
func ToGeographic(origin Origin, point Point3D) (GeoCoordinate, bool) {
	if !origin.Georeferenced() {
		return GeoCoordinate{}, false
	}

	lat := *origin.Lat
	lon := *origin.Lon

	latOffset := degrees(point.Y / EarthRadius)
	lonOffset := degrees(point.X / (EarthRadius * math.Cos(radians(lat))))

	altitude := point.Z
	if origin.Altitude != nil {
		altitude = *origin.Altitude + point.Z
	}

	return GeoCoordinate{
		Latitude:  lat + latOffset,
		Longitude: lon + lonOffset,
		Altitude:  altitude,
	}, true
}

// ToLocal is the inverse of ToGeographic. It returns false when the origin is
// not georeferenced.
func ToLocal(origin Origin, geo GeoCoordinate) (Point3D, bool) {
	if !origin.Georeferenced() {
		return Point3D{}, false
	}

	lat := *origin.Lat
	lon := *origin.Lon

	y := radians(geo.Latitude-lat) * EarthRadius
	x := radians(geo.Longitude-lon) * EarthRadius * math.Cos(radians(lat))

	z := geo.Altitude
	if origin.Altitude != nil {
		z = geo.Altitude - *origin.Altitude
	}

	return Point3D{X: x, Y: y, Z: z}, true
}

// AnnotationCoordinates carries an annotation position in the local frame and,
// when the model is georeferenced, on the globe.
type AnnotationCoordinates struct {
	Local         Point3D  `json:"local"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Altitude      *float64 `json:"altitude,omitempty"`
	Georeferenced bool     `json:"georeferenced"`
}

// Annotate resolves the geographic position of an annotation placed at point.
func Annotate(origin Origin, point Point3D) AnnotationCoordinates {
	out := AnnotationCoordinates{Local: point}
	geo, ok := ToGeographic(origin, point)
	if !ok {
		return out
	}
	out.Latitude = &geo.Latitude
	out.Longitude = &geo.Longitude
	out.Altitude = &geo.Altitude
	out.Georeferenced = true
	return out
}
