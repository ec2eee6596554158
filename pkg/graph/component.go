package graph

import "roadnet/pkg/roads"

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient, max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node indices of the largest connected
// component, in ascending order. When several components tie on size the
// one containing the smallest node index wins.
func LargestComponent(g *Graph) []uint32 {
	if g.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(g.NumNodes)

	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, g.Head[e])
		}
	}

	// Strict > keeps the first maximal component encountered, which is
	// the one with the smallest member index.
	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := uint32(0); i < g.NumNodes; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := uint32(0); i < g.NumNodes; i++ {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}

	return nodes
}

// FilterToComponent creates a new graph containing only the given nodes
// and the arcs between them. Node indices are remapped to a dense range
// and the segment table is compacted to segments still referenced.
func FilterToComponent(g *Graph, nodes []uint32) *Graph {
	if len(nodes) == 0 {
		return &Graph{}
	}

	oldToNew := make(map[uint32]uint32, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	numNodes := uint32(len(nodes))

	type arc struct {
		from, to uint32
		weight   float64
		seg      int32
		forward  bool
	}
	var arcs []arc
	var numEdges uint32

	referenced := make([]bool, len(g.Segments))

	for _, oldU := range nodes {
		start, end := g.EdgesFrom(oldU)
		for e := start; e < end; e++ {
			newV, ok := oldToNew[g.Head[e]]
			if !ok {
				continue
			}
			newU := oldToNew[oldU]

			if seg := g.EdgeSeg[e]; seg != NoSegment {
				referenced[seg] = true
			}

			arcs = append(arcs, arc{
				from:    newU,
				to:      newV,
				weight:  g.Weight[e],
				seg:     g.EdgeSeg[e],
				forward: g.Forward[e],
			})
			// Each pair appears as two arcs, self-loops as one.
			if newU <= newV {
				numEdges++
			}
		}
	}

	// Compact the segment table, keeping referenced segments in their
	// original order.
	segMap := make(map[int32]int32)
	var keptSegs []int32
	for i, used := range referenced {
		if used {
			segMap[int32(i)] = int32(len(keptSegs))
			keptSegs = append(keptSegs, int32(i))
		}
	}
	for i := range arcs {
		if arcs[i].seg != NoSegment {
			arcs[i].seg = segMap[arcs[i].seg]
		}
	}

	numArcs := uint32(len(arcs))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numArcs)
	weight := make([]float64, numArcs)
	edgeSeg := make([]int32, numArcs)
	forward := make([]bool, numArcs)

	for _, a := range arcs {
		firstOut[a.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])
	for _, a := range arcs {
		idx := pos[a.from]
		head[idx] = a.to
		weight[idx] = a.weight
		edgeSeg[idx] = a.seg
		forward[idx] = a.forward
		pos[a.from]++
	}

	nodeLon := make([]float64, numNodes)
	nodeLat := make([]float64, numNodes)
	for newIdx, oldIdx := range nodes {
		nodeLon[newIdx] = g.NodeLon[oldIdx]
		nodeLat[newIdx] = g.NodeLat[oldIdx]
	}

	segments := make([]roads.Segment, len(keptSegs))
	for newIdx, oldIdx := range keptSegs {
		segments[newIdx] = g.Segments[oldIdx]
	}

	return &Graph{
		NumNodes: numNodes,
		NumEdges: numEdges,
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
