package roads

import (
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"roadnet/pkg/geo"
)

// ClassificationProperty is the feature property carrying the road label.
const ClassificationProperty = "road_classification_number"

// LoadGeoJSON reads a GeoJSON FeatureCollection file and ingests every
// LineString and MultiLineString feature as road segments. Each part of a
// MultiLineString becomes its own segment.
func LoadGeoJSON(path string, log *zap.Logger) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read geojson")
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	segments := FromFeatureCollection(fc, log)
	log.Info("geojson loaded",
		zap.String("path", path),
		zap.Int("features", len(fc.Features)),
		zap.Int("segments", len(segments)))
	return segments, nil
}

// FromFeatureCollection extracts road segments from parsed GeoJSON.
// Features without line geometry are ignored.
func FromFeatureCollection(fc *geojson.FeatureCollection, log *zap.Logger) []Segment {
	var lines []RawLine

	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		class := featureClassification(f)

		switch {
		case f.Geometry.IsLineString():
			lines = append(lines, RawLine{
				Points:         toPoints(f.Geometry.LineString),
				Classification: class,
			})
		case f.Geometry.IsMultiLineString():
			for _, part := range f.Geometry.MultiLineString {
				lines = append(lines, RawLine{
					Points:         toPoints(part),
					Classification: class,
				})
			}
		}
	}

	return Ingest(lines, log)
}

func featureClassification(f *geojson.Feature) string {
	if class, err := f.PropertyString(ClassificationProperty); err == nil && class != "" {
		return class
	}
	return UnknownClassification
}

// toPoints converts GeoJSON [lon, lat] positions. Positions with fewer
// than 2 ordinates are dropped.
func toPoints(coords [][]float64) []geo.Point {
	points := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		points = append(points, geo.Point{Lon: c[0], Lat: c[1]})
	}
	return points
}
