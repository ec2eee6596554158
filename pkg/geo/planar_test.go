package geo

import (
	"math"
	"testing"
)

func TestDistMeters(t *testing.T) {
	tests := []struct {
		name             string
		a, b             Point
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "one degree of latitude",
			a:                Point{Lon: 0, Lat: 0},
			b:                Point{Lon: 0, Lat: 1},
			wantMeters:       111_000,
			tolerancePercent: 0,
		},
		{
			name:             "same point",
			a:                Point{Lon: 103.8198, Lat: 1.3521},
			b:                Point{Lon: 103.8198, Lat: 1.3521},
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name:             "diagonal degree",
			a:                Point{Lon: 0, Lat: 0},
			b:                Point{Lon: 1, Lat: 1},
			wantMeters:       math.Sqrt2 * 111_000,
			tolerancePercent: 0.001,
		},
		{
			name:             "tolerance-scale gap (~55m)",
			a:                Point{Lon: 0, Lat: 0},
			b:                Point{Lon: 0.0005, Lat: 0},
			wantMeters:       55.5,
			tolerancePercent: 0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistMeters(tt.a, tt.b)
			diff := math.Abs(got - tt.wantMeters)
			limit := tt.wantMeters * tt.tolerancePercent / 100
			if diff > limit {
				t.Errorf("DistMeters = %f, want %f (±%f)", got, tt.wantMeters, limit)
			}
		})
	}
}

func TestPolylineLengthMeters(t *testing.T) {
	// Two collinear one-degree legs: 2° × 111,000 m/°.
	line := []Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}, {Lon: 0, Lat: 2}}
	got := PolylineLengthMeters(line)
	if math.Abs(got-222_000) > 1e-6 {
		t.Errorf("PolylineLengthMeters = %f, want 222000", got)
	}

	// Intermediate points on a straight line do not change the length.
	dense := []Point{{0, 0}, {0, 0.25}, {0, 0.5}, {0, 1.5}, {0, 2}}
	if d := PolylineLengthMeters(dense); math.Abs(d-222_000) > 1e-6 {
		t.Errorf("dense PolylineLengthMeters = %f, want 222000", d)
	}
}

func TestPolylineLengthDegenerate(t *testing.T) {
	if got := PolylineLengthMeters(nil); got != 0 {
		t.Errorf("nil polyline length = %f, want 0", got)
	}
	if got := PolylineLengthMeters([]Point{{Lon: 1, Lat: 1}}); got != 0 {
		t.Errorf("single point length = %f, want 0", got)
	}
}
