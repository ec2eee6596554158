package geo

import "math"

// MetersPerDegree is the fixed planar conversion factor. All distances in
// this system are degree-space Euclidean values scaled by this constant;
// there is no great-circle math anywhere in the pipeline.
const MetersPerDegree = 111_000.0

// Point is a geographic coordinate in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Dist returns the planar Euclidean distance between two points, in degrees.
func Dist(a, b Point) float64 {
	dx := b.Lon - a.Lon
	dy := b.Lat - a.Lat
	return math.Sqrt(dx*dx + dy*dy)
}

// DistMeters returns the planar distance between two points in meters.
func DistMeters(a, b Point) float64 {
	return Dist(a, b) * MetersPerDegree
}

// PolylineLengthMeters returns the planar length of a polyline in meters:
// the sum of consecutive point distances in degrees times MetersPerDegree.
// Fewer than two points yields zero.
func PolylineLengthMeters(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	var deg float64
	for i := 1; i < len(points); i++ {
		deg += Dist(points[i-1], points[i])
	}
	return deg * MetersPerDegree
}
