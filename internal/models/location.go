package models

import "math"

// GeoJSONPoint is the only geometry type a cat location may have.
const GeoJSONPoint = "Point"

// Point is a GeoJSON point. Coordinates are [longitude, latitude].
type Point struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewPoint builds a GeoJSON point from a longitude and latitude.
func NewPoint(lng, lat float64) Point {
	return Point{
		Type:        GeoJSONPoint,
		Coordinates: []float64{lng, lat},
	}
}

// Lng returns the longitude, or 0 for a malformed point.
func (p Point) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Lat returns the latitude, or 0 for a malformed point.
func (p Point) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Valid reports whether p is a well-formed point on the globe.
func (p Point) Valid() bool {
	if p.Type != GeoJSONPoint || len(p.Coordinates) != 2 {
		return false
	}
	lng, lat := p.Coordinates[0], p.Coordinates[1]
	if math.IsNaN(lng) || math.IsNaN(lat) {
		return false
	}
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// BoundingBox is a rectangular search area in degrees.
type BoundingBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Normalize orders the edges so that South <= North and West <= East.
func (b BoundingBox) Normalize() BoundingBox {
	if b.South > b.North {
		b.South, b.North = b.North, b.South
	}
	if b.West > b.East {
		b.West, b.East = b.East, b.West
	}
	return b
}

// Valid reports whether every edge lies on the globe.
func (b BoundingBox) Valid() bool {
	for _, lat := range []float64{b.North, b.South} {
		if math.IsNaN(lat) || lat < -90 || lat > 90 {
			return false
		}
	}
	for _, lng := range []float64{b.East, b.West} {
		if math.IsNaN(lng) || lng < -180 || lng > 180 {
			return false
		}
	}
	return true
}

// HasArea reports whether the box spans a non-zero width and height.
// A degenerate ring is not a valid GeoJSON polygon.
func (b BoundingBox) HasArea() bool {
	return b.North != b.South && b.East != b.West
}

// Polygon returns the closed GeoJSON ring [[w,s],[w,n],[e,n],[e,s],[w,s]].
func (b BoundingBox) Polygon() [][][]float64 {
	return [][][]float64{{
		{b.West, b.South},
		{b.West, b.North},
		{b.East, b.North},
		{b.East, b.South},
		{b.West, b.South},
	}}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	if len(p.Coordinates) < 2 {
		return false
	}
	lng, lat := p.Lng(), p.Lat()
	return lng >= b.West && lng <= b.East && lat >= b.South && lat <= b.North
}
