// Package osm loads drivable ways from OpenStreetMap PBF extracts as road
// segments.
package osm

import (
	"context"
	"io"
	"os"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
)

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// wayClassification labels a way by its route number ("A1", "M4") when
// tagged, falling back to the highway class.
func wayClassification(tags osm.Tags) string {
	if ref := tags.Find("ref"); ref != "" {
		return ref
	}
	if hw := tags.Find("highway"); hw != "" {
		return hw
	}
	return roads.UnknownClassification
}

// wayInfo holds parsed way data collected during pass 1.
type wayInfo struct {
	NodeIDs        []osm.NodeID
	Classification string
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only ways with every point inside the box are kept.
type BBox struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLon == 0 && b.MaxLon == 0 && b.MinLat == 0 && b.MaxLat == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(p geo.Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, keep only ways fully inside this box
}

// LoadFile reads an OSM PBF extract and returns its drivable ways as road
// segments. It matches roads.LoaderFunc so a Store can serve .osm.pbf files.
func LoadFile(path string, log *zap.Logger) ([]roads.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open osm pbf")
	}
	defer f.Close()

	return Parse(context.Background(), f, log)
}

// Parse reads OSM PBF data and returns one road segment per drivable way.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, log *zap.Logger, opts ...ParseOptions) ([]roads.Segment, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: scan ways to collect referenced node IDs and way info.
	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) {
			continue
		}
		if len(w.Nodes) < 2 {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{
			NodeIDs:        nodeIDs,
			Classification: wayClassification(w.Tags),
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, errors.Wrap(err, "scan ways")
	}
	scanner.Close()

	log.Info("osm ways scanned",
		zap.Int("ways", len(ways)),
		zap.Int("referenced_nodes", len(referenced)))

	// Pass 2: scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seek for node pass")
	}

	coords := make(map[osm.NodeID]geo.Point, len(referenced))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		coords[n.ID] = geo.Point{Lon: n.Lon, Lat: n.Lat}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, errors.Wrap(err, "scan nodes")
	}
	scanner.Close()

	log.Info("osm nodes resolved", zap.Int("nodes", len(coords)))

	// Turn ways into raw polylines. Ways referencing nodes missing from the
	// extract are dropped whole rather than split.
	var lines []roads.RawLine
	var missingCoords, outsideBBox int

wayLoop:
	for _, w := range ways {
		points := make([]geo.Point, len(w.NodeIDs))
		for i, id := range w.NodeIDs {
			p, ok := coords[id]
			if !ok {
				missingCoords++
				continue wayLoop
			}
			if useBBox && !opt.BBox.Contains(p) {
				outsideBBox++
				continue wayLoop
			}
			points[i] = p
		}
		lines = append(lines, roads.RawLine{
			Points:         points,
			Classification: w.Classification,
		})
	}

	if missingCoords > 0 {
		log.Warn("ways dropped for missing node coordinates", zap.Int("ways", missingCoords))
	}
	if outsideBBox > 0 {
		log.Info("ways outside bounding box", zap.Int("ways", outsideBBox))
	}

	return roads.Ingest(lines, log), nil
}
