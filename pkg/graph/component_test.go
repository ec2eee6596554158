package graph

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	// Initially all separate.
	for i := uint32(0); i < 5; i++ {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	// Union 0 and 1.
	uf.Union(0, 1)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should be in same set")
	}

	// Union 2 and 3.
	uf.Union(2, 3)
	if uf.Find(2) != uf.Find(3) {
		t.Error("2 and 3 should be in same set")
	}

	// 0 and 2 should be different.
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}

	// Union the two groups.
	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
}

// chain builds segments joining the given points end to end.
func chain(class string, startID int64, pts ...geo.Point) []roads.Segment {
	segments := make([]roads.Segment, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		segments = append(segments, lineSegment(startID+int64(i-1), class, pts[i-1], pts[i]))
	}
	return segments
}

func TestLargestComponent(t *testing.T) {
	// A 5-node chain and a 3-node chain, far apart.
	segments := chain("big", 0,
		geo.Point{Lon: 0, Lat: 0},
		geo.Point{Lon: 1, Lat: 0},
		geo.Point{Lon: 2, Lat: 0},
		geo.Point{Lon: 3, Lat: 0},
		geo.Point{Lon: 4, Lat: 0},
	)
	segments = append(segments, chain("small", 10,
		geo.Point{Lon: 50, Lat: 50},
		geo.Point{Lon: 51, Lat: 50},
		geo.Point{Lon: 52, Lat: 50},
	)...)

	g := Assemble(segments, DefaultTolerance, zap.NewNop())
	nodes := LargestComponent(g)

	if len(nodes) != 5 {
		t.Fatalf("LargestComponent has %d nodes, want 5", len(nodes))
	}
	// The big chain was assembled first, so its nodes carry the low ids.
	for i, n := range nodes {
		if n != uint32(i) {
			t.Errorf("nodes[%d] = %d, want %d", i, n, i)
		}
	}
}

func TestLargestComponentTieBreak(t *testing.T) {
	// Two components of equal size: the one containing the smallest
	// node index must win.
	segments := []roads.Segment{
		lineSegment(0, "first", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1, Lat: 0}),
		lineSegment(1, "second", geo.Point{Lon: 50, Lat: 50}, geo.Point{Lon: 51, Lat: 50}),
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())
	nodes := LargestComponent(g)

	if len(nodes) != 2 {
		t.Fatalf("LargestComponent has %d nodes, want 2", len(nodes))
	}
	if nodes[0] != 0 || nodes[1] != 1 {
		t.Errorf("tie should keep the component of node 0, got %v", nodes)
	}
}

func TestLargestComponentDropsIsland(t *testing.T) {
	// A 10-node ladder and a single stranded node (from a trivial loop
	// segment). Reduction keeps exactly the 10 mesh nodes.
	segments := chain("mesh", 0,
		geo.Point{Lon: 0, Lat: 0},
		geo.Point{Lon: 1, Lat: 0},
		geo.Point{Lon: 2, Lat: 0},
		geo.Point{Lon: 3, Lat: 0},
		geo.Point{Lon: 4, Lat: 0},
	)
	segments = append(segments, chain("mesh", 10,
		geo.Point{Lon: 0, Lat: 1},
		geo.Point{Lon: 1, Lat: 1},
		geo.Point{Lon: 2, Lat: 1},
		geo.Point{Lon: 3, Lat: 1},
		geo.Point{Lon: 4, Lat: 1},
	)...)
	segments = append(segments,
		lineSegment(20, "rung", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 0, Lat: 1}),
		lineSegment(21, "rung", geo.Point{Lon: 4, Lat: 0}, geo.Point{Lon: 4, Lat: 1}),
		roads.Segment{
			ID:             22,
			Points:         []geo.Point{{Lon: 80, Lat: 80}, {Lon: 80, Lat: 80}},
			Classification: "island",
		},
	)

	g := Assemble(segments, DefaultTolerance, zap.NewNop())
	if g.NumNodes != 11 {
		t.Fatalf("assembled NumNodes = %d, want 11", g.NumNodes)
	}

	filtered := FilterToComponent(g, LargestComponent(g))
	if filtered.NumNodes != 10 {
		t.Errorf("reduced NumNodes = %d, want 10", filtered.NumNodes)
	}
	for _, s := range filtered.Segments {
		if s.Classification == "island" {
			t.Error("island segment survived reduction")
		}
	}
}

func TestFilterToComponent(t *testing.T) {
	// Triangle plus an isolated pair.
	segments := []roads.Segment{
		lineSegment(0, "tri", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1, Lat: 0}),
		lineSegment(1, "tri", geo.Point{Lon: 1, Lat: 0}, geo.Point{Lon: 1, Lat: 1}),
		lineSegment(2, "tri", geo.Point{Lon: 1, Lat: 1}, geo.Point{Lon: 0, Lat: 0}),
		lineSegment(3, "pair", geo.Point{Lon: 50, Lat: 50}, geo.Point{Lon: 51, Lat: 50}),
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())
	nodes := LargestComponent(g)
	filtered := FilterToComponent(g, nodes)
	checkCSR(t, filtered)

	if filtered.NumNodes != 3 {
		t.Fatalf("filtered NumNodes = %d, want 3", filtered.NumNodes)
	}
	if filtered.NumEdges != 3 {
		t.Fatalf("filtered NumEdges = %d, want 3", filtered.NumEdges)
	}

	// Only the triangle's segments survive, in their original order.
	if len(filtered.Segments) != 3 {
		t.Fatalf("kept %d segments, want 3", len(filtered.Segments))
	}
	for i, s := range filtered.Segments {
		if s.ID != int64(i) {
			t.Errorf("segment %d has id %d, want %d", i, s.ID, i)
		}
		if s.Classification != "tri" {
			t.Errorf("segment %d classification %q, want tri", i, s.Classification)
		}
	}

	// EdgeSeg references must point into the compacted table.
	for e, s := range filtered.EdgeSeg {
		if s == NoSegment {
			t.Errorf("arc %d unexpectedly a connector", e)
			continue
		}
		if int(s) >= len(filtered.Segments) {
			t.Errorf("arc %d references segment %d, table has %d", e, s, len(filtered.Segments))
		}
	}

	// Arc weights cover each triangle edge twice.
	want := 2 * (filtered.Segments[0].LengthMeters +
		filtered.Segments[1].LengthMeters +
		filtered.Segments[2].LengthMeters)
	var total float64
	for _, w := range filtered.Weight {
		total += w
	}
	if math.Abs(total-want) > 1e-6 {
		t.Errorf("total arc weight = %f, want %f", total, want)
	}
}

func TestFilterToComponentPreservesOrientation(t *testing.T) {
	segments := []roads.Segment{
		lineSegment(0, "A", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1, Lat: 0}),
		lineSegment(1, "iso", geo.Point{Lon: 50, Lat: 50}, geo.Point{Lon: 51, Lat: 50}),
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())
	filtered := FilterToComponent(g, LargestComponent(g))

	arc, ok := filtered.FindArc(0, 1)
	if !ok {
		t.Fatal("arc 0->1 missing")
	}
	if !filtered.Forward[arc] {
		t.Error("arc 0->1 should run forward along the segment")
	}
	back, ok := filtered.FindArc(1, 0)
	if !ok {
		t.Fatal("arc 1->0 missing")
	}
	if filtered.Forward[back] {
		t.Error("arc 1->0 should run backward along the segment")
	}
}

func TestFilterToComponentEmptyGraph(t *testing.T) {
	g := &Graph{}
	nodes := LargestComponent(g)
	if nodes != nil {
		t.Errorf("expected nil for empty graph, got %v", nodes)
	}

	filtered := FilterToComponent(g, nil)
	if filtered.NumNodes != 0 || filtered.NumEdges != 0 {
		t.Errorf("expected empty graph, got %d nodes, %d edges", filtered.NumNodes, filtered.NumEdges)
	}
}
