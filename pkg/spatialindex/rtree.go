// Package spatialindex wraps an in-memory R-tree over road segment
// bounding boxes, used to answer map viewport queries.
package spatialindex

import (
	"sort"

	"github.com/tidwall/rtree"

	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
)

// Index is an immutable R-tree over the bounding boxes of a segment
// slice. Values are positions into that slice.
type Index struct {
	tr   rtree.RTreeG[int]
	size int
}

// NewIndex builds an index over segments. The caller keeps ownership of
// the slice; results of Search are positions into it.
func NewIndex(segments []roads.Segment) *Index {
	idx := &Index{size: len(segments)}
	for i := range segments {
		min, max := bounds(segments[i].Points)
		idx.tr.Insert(min, max, i)
	}
	return idx
}

// Len returns the number of indexed segments.
func (idx *Index) Len() int { return idx.size }

// Search returns the positions of segments whose bounding box intersects
// the query box, in ascending position order. A positive limit caps the
// result after ordering, so truncation is deterministic.
func (idx *Index) Search(minLon, minLat, maxLon, maxLat float64, limit int) []int {
	var hits []int
	idx.tr.Search(
		[2]float64{minLon, minLat},
		[2]float64{maxLon, maxLat},
		func(min, max [2]float64, pos int) bool {
			hits = append(hits, pos)
			return true
		},
	)
	sort.Ints(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func bounds(points []geo.Point) (min, max [2]float64) {
	min = [2]float64{points[0].Lon, points[0].Lat}
	max = min
	for _, p := range points[1:] {
		if p.Lon < min[0] {
			min[0] = p.Lon
		}
		if p.Lat < min[1] {
			min[1] = p.Lat
		}
		if p.Lon > max[0] {
			max[0] = p.Lon
		}
		if p.Lat > max[1] {
			max[1] = p.Lat
		}
	}
	return min, max
}
