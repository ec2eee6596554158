package graph

import (
	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
)

// NoSegment is the EdgeSeg value for synthetic connector arcs, which have
// no source segment polyline.
const NoSegment = int32(-1)

// ConnectorClassification labels connector arcs in route results.
const ConnectorClassification = "connection"

// noArc marks "arc not found" in lookups.
const noArc = ^uint32(0)

// Graph is an undirected road network in CSR (Compressed Sparse Row)
// form. Every undirected edge is stored as two directed arcs, except
// self-loops which get a single arc.
type Graph struct {
	NumNodes uint32
	NumEdges uint32 // undirected edge count; len(Head) is the arc count

	FirstOut []uint32  // len: NumNodes + 1; arcs from node u are FirstOut[u]..FirstOut[u+1]
	Head     []uint32  // len: arc count; target node per arc
	Weight   []float64 // len: arc count; traversal cost in meters
	EdgeSeg  []int32   // len: arc count; index into Segments, or NoSegment
	Forward  []bool    // len: arc count; segment points run tail-to-head when true

	NodeLon []float64 // len: NumNodes
	NodeLat []float64 // len: NumNodes

	// Segments referenced by EdgeSeg, carrying geometry and attributes.
	Segments []roads.Segment
}

// EdgesFrom returns the range of arc indices originating at node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// NumArcs returns the directed arc count.
func (g *Graph) NumArcs() uint32 {
	return uint32(len(g.Head))
}

// NodeCoord returns the representative coordinate of node u.
func (g *Graph) NodeCoord(u uint32) geo.Point {
	return geo.Point{Lon: g.NodeLon[u], Lat: g.NodeLat[u]}
}

// FindArc returns the index of an arc from u to v. When parallel arcs
// exist the first in CSR order wins.
func (g *Graph) FindArc(u, v uint32) (uint32, bool) {
	start, end := g.EdgesFrom(u)
	for e := start; e < end; e++ {
		if g.Head[e] == v {
			return e, true
		}
	}
	return noArc, false
}

// Segment returns the source segment of arc e, or nil for connectors.
func (g *Graph) Segment(e uint32) *roads.Segment {
	if g.EdgeSeg[e] == NoSegment {
		return nil
	}
	return &g.Segments[g.EdgeSeg[e]]
}
