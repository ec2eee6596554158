package roads

import (
	"errors"

	"go.uber.org/zap"

	"roadnet/pkg/geo"
)

// ErrDegenerateGeometry marks a polyline with fewer than 2 points. Such
// lines cannot form an edge and are skipped during ingestion.
var ErrDegenerateGeometry = errors.New("degenerate geometry: fewer than 2 points")

// UnknownClassification labels segments whose source carries no road label.
const UnknownClassification = "Unknown"

// Segment is one road-network edge candidate: the original polyline plus
// the attributes routing needs. Immutable after ingestion.
type Segment struct {
	ID             int64
	Points         []geo.Point
	Classification string
	LengthMeters   float64
}

// RawLine is a polyline with attributes, before validation. LengthMeters
// is optional; when zero or negative the planar length of Points is used.
type RawLine struct {
	Points         []geo.Point
	Classification string
	LengthMeters   float64
}

// Ingest converts raw polylines into Segment records with stable ids
// assigned in input order. Degenerate lines (<2 points) are skipped and
// counted; a bad line never aborts the rest of the batch.
func Ingest(lines []RawLine, log *zap.Logger) []Segment {
	segments := make([]Segment, 0, len(lines))
	skipped := 0

	for _, line := range lines {
		seg, err := NewSegment(int64(len(segments)), line)
		if err != nil {
			skipped++
			continue
		}
		segments = append(segments, seg)
	}

	if skipped > 0 {
		log.Warn("skipped degenerate geometries",
			zap.Int("skipped", skipped),
			zap.Int("kept", len(segments)))
	}
	return segments
}

// NewSegment validates one raw line and builds a Segment.
func NewSegment(id int64, line RawLine) (Segment, error) {
	if len(line.Points) < 2 {
		return Segment{}, ErrDegenerateGeometry
	}

	class := line.Classification
	if class == "" {
		class = UnknownClassification
	}

	length := line.LengthMeters
	if length <= 0 {
		length = geo.PolylineLengthMeters(line.Points)
	}

	return Segment{
		ID:             id,
		Points:         line.Points,
		Classification: class,
		LengthMeters:   length,
	}, nil
}

// Start returns the first point of the segment polyline.
func (s *Segment) Start() geo.Point { return s.Points[0] }

// End returns the last point of the segment polyline.
func (s *Segment) End() geo.Point { return s.Points[len(s.Points)-1] }
