package routing

import (
	"sort"

	geojson "github.com/paulmach/go.geojson"

	"roadnet/pkg/geo"
	"roadnet/pkg/graph"
)

// BuildRouteGeometry assembles the display geometry for a node path.
// The literal query points bracket the route. Each arc contributes its
// segment points oriented in travel direction, dropping the joint point
// on all but the first arc so consecutive arcs do not repeat it.
// Connector arcs contribute the coordinate of the node they lead to.
func BuildRouteGeometry(g *graph.Graph, path []uint32, start, end geo.Point) *RouteResult {
	coords := make([][]float64, 0, len(path)+2)
	coords = append(coords, []float64{start.Lon, start.Lat})

	var total float64
	roadSet := make(map[string]struct{})

	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		arc, ok := g.FindArc(u, v)
		if !ok {
			// Paths come from the same graph, so a missing arc means a
			// corrupted path. Degrade to the bare node position.
			coords = append(coords, []float64{g.NodeLon[v], g.NodeLat[v]})
			continue
		}
		total += g.Weight[arc]

		seg := g.Segment(arc)
		if seg == nil {
			roadSet[graph.ConnectorClassification] = struct{}{}
			coords = append(coords, []float64{g.NodeLon[v], g.NodeLat[v]})
			continue
		}

		roadSet[seg.Classification] = struct{}{}
		pts := seg.Points
		n := len(pts)
		skip := 1
		if i == 0 {
			skip = 0
		}
		for k := skip; k < n; k++ {
			idx := k
			if !g.Forward[arc] {
				idx = n - 1 - k
			}
			coords = append(coords, []float64{pts[idx].Lon, pts[idx].Lat})
		}
	}

	coords = append(coords, []float64{end.Lon, end.Lat})

	roadsUsed := make([]string, 0, len(roadSet))
	for r := range roadSet {
		roadsUsed = append(roadsUsed, r)
	}
	sort.Strings(roadsUsed)

	return &RouteResult{
		Geometry:       geojson.NewLineStringGeometry(coords),
		DistanceMeters: total,
		Roads:          roadsUsed,
		NodeCount:      len(path),
	}
}
