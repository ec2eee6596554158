package routing

import (
	"math"

	"roadnet/pkg/geo"
	"roadnet/pkg/graph"
)

// DefaultMaxNodeDistance is the default search radius, in degrees, when
// resolving a query point to a graph node.
const DefaultMaxNodeDistance = 0.5

// NearestNode scans all nodes for the one closest to p in planar degree
// distance, considering only nodes within maxDistance degrees. Returns
// the node, its distance in degrees, or ErrNoNearbyNode when nothing
// qualifies. Ties keep the lower node index.
func NearestNode(g *graph.Graph, p geo.Point, maxDistance float64) (uint32, float64, error) {
	best := noNode
	bestDist := math.Inf(1)

	for u := uint32(0); u < g.NumNodes; u++ {
		d := geo.Dist(p, g.NodeCoord(u))
		if d < bestDist && d <= maxDistance {
			best = u
			bestDist = d
		}
	}

	if best == noNode {
		return 0, 0, ErrNoNearbyNode
	}
	return best, bestDist, nil
}
