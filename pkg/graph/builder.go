package graph

import (
	"math"

	"go.uber.org/zap"

	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
)

// DefaultTolerance is the endpoint-snapping tolerance in degrees (~222m
// under the planar distance model).
const DefaultTolerance = 0.002

// coordPrecision quantizes endpoint coordinates for node identity.
// Endpoints equal to 6 decimal places resolve to the same node.
const coordPrecision = 1e6

// nodeKey identifies a node by its quantized endpoint coordinate.
type nodeKey struct {
	lon, lat int64
}

func keyOf(p geo.Point) nodeKey {
	return nodeKey{
		lon: int64(math.Round(p.Lon * coordPrecision)),
		lat: int64(math.Round(p.Lat * coordPrecision)),
	}
}

// pairKey identifies an undirected node pair, normalized so that
// (u, v) and (v, u) collide.
type pairKey struct {
	lo, hi uint32
}

func pairOf(u, v uint32) pairKey {
	if u > v {
		u, v = v, u
	}
	return pairKey{lo: u, hi: v}
}

// edgeRec is one undirected edge before CSR emission. tail and head keep
// the segment orientation: the segment polyline runs tail to head.
type edgeRec struct {
	tail, head uint32
	weight     float64
	seg        int32
}

// Assemble builds the full, possibly multi-component graph from road
// segments. Nodes are resolved from segment endpoints, one edge is added
// per segment, then endpoints that nearly touch are linked with synthetic
// connector edges so that crossing datasets join up.
//
// Between the same node pair the last segment wins; connectors never
// replace an existing edge. The result is deterministic for a given
// segment order.
func Assemble(segments []roads.Segment, tolerance float64, log *zap.Logger) *Graph {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	// Endpoint resolution. The first-encountered coordinate becomes the
	// node's representative position.
	nodeIdx := make(map[nodeKey]uint32)
	var nodeLon, nodeLat []float64

	addNode := func(p geo.Point) uint32 {
		k := keyOf(p)
		if idx, ok := nodeIdx[k]; ok {
			return idx
		}
		idx := uint32(len(nodeLon))
		nodeIdx[k] = idx
		nodeLon = append(nodeLon, p.Lon)
		nodeLat = append(nodeLat, p.Lat)
		return idx
	}

	pairIdx := make(map[pairKey]int)
	var edges []edgeRec
	trivialLoops := 0

	for i := range segments {
		s := &segments[i]
		tail := addNode(s.Start())
		head := addNode(s.End())

		if tail == head && len(s.Points) == 2 {
			// A two-point segment collapsing onto one node carries no
			// usable geometry.
			trivialLoops++
			continue
		}

		rec := edgeRec{tail: tail, head: head, weight: s.LengthMeters, seg: int32(i)}
		key := pairOf(tail, head)
		if at, ok := pairIdx[key]; ok {
			edges[at] = rec
			continue
		}
		pairIdx[key] = len(edges)
		edges = append(edges, rec)
	}

	numNodes := uint32(len(nodeLon))
	segmentEdges := len(edges)

	// Connector pass: bucket nodes on a tolerance-sized grid and link
	// near-coincident endpoints within each bucket. Buckets are visited
	// in creation order, members in node-id order, so connector ids are
	// stable across runs.
	type bucketKey struct {
		lon, lat int64
	}

	buckets := make(map[bucketKey][]uint32)
	var bucketOrder []bucketKey
	for u := uint32(0); u < numNodes; u++ {
		k := bucketKey{
			lon: int64(math.Round(nodeLon[u] / tolerance)),
			lat: int64(math.Round(nodeLat[u] / tolerance)),
		}
		if _, ok := buckets[k]; !ok {
			bucketOrder = append(bucketOrder, k)
		}
		buckets[k] = append(buckets[k], u)
	}

	maxMeters := tolerance * geo.MetersPerDegree
	connectors := 0
	for _, k := range bucketOrder {
		members := buckets[k]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				u, v := members[i], members[j]
				key := pairOf(u, v)
				if _, ok := pairIdx[key]; ok {
					continue
				}
				d := geo.DistMeters(
					geo.Point{Lon: nodeLon[u], Lat: nodeLat[u]},
					geo.Point{Lon: nodeLon[v], Lat: nodeLat[v]},
				)
				if d > maxMeters {
					continue
				}
				pairIdx[key] = len(edges)
				edges = append(edges, edgeRec{tail: u, head: v, weight: d, seg: NoSegment})
				connectors++
			}
		}
	}

	g := emitCSR(numNodes, nodeLon, nodeLat, edges, segments)

	log.Info("graph assembled",
		zap.Uint32("nodes", numNodes),
		zap.Int("segment_edges", segmentEdges),
		zap.Int("connectors", connectors),
		zap.Int("trivial_loops_dropped", trivialLoops))
	return g
}

// emitCSR lays the edge list out as CSR arcs: two per edge, one for
// self-loops, placed in edge insertion order per node.
func emitCSR(numNodes uint32, nodeLon, nodeLat []float64, edges []edgeRec, segments []roads.Segment) *Graph {
	firstOut := make([]uint32, numNodes+1)
	for _, e := range edges {
		firstOut[e.tail+1]++
		if e.tail != e.head {
			firstOut[e.head+1]++
		}
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	numArcs := firstOut[numNodes]
	head := make([]uint32, numArcs)
	weight := make([]float64, numArcs)
	edgeSeg := make([]int32, numArcs)
	forward := make([]bool, numArcs)

	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])

	place := func(from, to uint32, w float64, seg int32, fwd bool) {
		p := pos[from]
		head[p] = to
		weight[p] = w
		edgeSeg[p] = seg
		forward[p] = fwd
		pos[from] = p + 1
	}

	for _, e := range edges {
		place(e.tail, e.head, e.weight, e.seg, true)
		if e.tail != e.head {
			place(e.head, e.tail, e.weight, e.seg, false)
		}
	}

	return &Graph{
		NumNodes: numNodes,
		NumEdges: uint32(len(edges)),
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
		EdgeSeg:  edgeSeg,
		Forward:  forward,
		NodeLon:  nodeLon,
		NodeLat:  nodeLat,
		Segments: segments,
	}
}

// BuildRoutable assembles the graph and restricts it to its largest
// connected component, the form the route engine operates on.
func BuildRoutable(segments []roads.Segment, tolerance float64, log *zap.Logger) *Graph {
	full := Assemble(segments, tolerance, log)
	component := LargestComponent(full)
	routable := FilterToComponent(full, component)

	log.Info("routable graph ready",
		zap.Uint32("nodes", routable.NumNodes),
		zap.Uint32("edges", routable.NumEdges),
		zap.Int("segments", len(routable.Segments)),
		zap.Uint32("nodes_dropped", full.NumNodes-routable.NumNodes))
	return routable
}
