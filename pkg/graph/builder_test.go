package graph

import (
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
)

// lineSegment builds a test segment with its planar length.
func lineSegment(id int64, class string, pts ...geo.Point) roads.Segment {
	return roads.Segment{
		ID:             id,
		Points:         pts,
		Classification: class,
		LengthMeters:   geo.PolylineLengthMeters(pts),
	}
}

func checkCSR(t *testing.T, g *Graph) {
	t.Helper()
	if len(g.FirstOut) != int(g.NumNodes)+1 {
		t.Fatalf("FirstOut length %d, want %d", len(g.FirstOut), g.NumNodes+1)
	}
	for i := uint32(1); i <= g.NumNodes; i++ {
		if g.FirstOut[i] < g.FirstOut[i-1] {
			t.Errorf("FirstOut not monotonic at %d: %d < %d", i, g.FirstOut[i], g.FirstOut[i-1])
		}
	}
	if g.FirstOut[g.NumNodes] != g.NumArcs() {
		t.Errorf("FirstOut[%d]=%d != arc count %d", g.NumNodes, g.FirstOut[g.NumNodes], g.NumArcs())
	}
	for i, h := range g.Head {
		if h >= g.NumNodes {
			t.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, g.NumNodes)
		}
	}
}

func TestAssembleSharedEndpoint(t *testing.T) {
	// Two segments meeting exactly at (1, 0):
	//
	//   (0,0) ---- (1,0) ---- (2,0)
	//
	// The shared endpoint must resolve to a single node, no connectors.
	segments := []roads.Segment{
		lineSegment(0, "M1", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1, Lat: 0}),
		lineSegment(1, "M1", geo.Point{Lon: 1, Lat: 0}, geo.Point{Lon: 2, Lat: 0}),
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())
	checkCSR(t, g)

	if g.NumNodes != 3 {
		t.Fatalf("NumNodes = %d, want 3", g.NumNodes)
	}
	if g.NumEdges != 2 {
		t.Fatalf("NumEdges = %d, want 2", g.NumEdges)
	}
	for _, s := range g.EdgeSeg {
		if s == NoSegment {
			t.Error("unexpected connector arc")
		}
	}

	var totalWeight float64
	for _, w := range g.Weight {
		totalWeight += w
	}
	// Each undirected edge is two arcs, so the arc weights sum to twice
	// the segment lengths.
	want := 4 * geo.MetersPerDegree
	if math.Abs(totalWeight-want) > 1e-6 {
		t.Errorf("total arc weight = %f, want %f", totalWeight, want)
	}
}

func TestAssembleEndpointRounding(t *testing.T) {
	// Endpoints equal to 6 decimal places are the same node.
	segments := []roads.Segment{
		lineSegment(0, "A", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1.0000004, Lat: 0}),
		lineSegment(1, "B", geo.Point{Lon: 1.0000001, Lat: 0}, geo.Point{Lon: 2, Lat: 0}),
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())

	if g.NumNodes != 3 {
		t.Fatalf("NumNodes = %d, want 3 (endpoints should merge)", g.NumNodes)
	}
	if g.NumEdges != 2 {
		t.Fatalf("NumEdges = %d, want 2", g.NumEdges)
	}
}

func TestAssembleConnectorWithinTolerance(t *testing.T) {
	// Two disjoint segments whose facing endpoints are 0.001 degrees
	// apart (111m, inside the 0.002-degree tolerance). A connector edge
	// must link them.
	segments := []roads.Segment{
		lineSegment(0, "A", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 0.9995, Lat: 0}),
		lineSegment(1, "B", geo.Point{Lon: 1.0005, Lat: 0}, geo.Point{Lon: 2, Lat: 0}),
	}

	g := Assemble(segments, 0.002, zap.NewNop())
	checkCSR(t, g)

	if g.NumNodes != 4 {
		t.Fatalf("NumNodes = %d, want 4", g.NumNodes)
	}
	if g.NumEdges != 3 {
		t.Fatalf("NumEdges = %d, want 3 (2 segments + 1 connector)", g.NumEdges)
	}

	found := false
	for e, s := range g.EdgeSeg {
		if s != NoSegment {
			continue
		}
		found = true
		if math.Abs(g.Weight[e]-0.001*geo.MetersPerDegree) > 1e-6 {
			t.Errorf("connector weight = %f, want %f", g.Weight[e], 0.001*geo.MetersPerDegree)
		}
	}
	if !found {
		t.Error("no connector arc emitted")
	}
}

func TestAssembleNoConnectorBeyondTolerance(t *testing.T) {
	// Facing endpoints share a tolerance bucket diagonally but sit
	// further apart than tolerance degrees in meters. No connector.
	segments := []roads.Segment{
		lineSegment(0, "A", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 0.9992, Lat: -0.0008}),
		lineSegment(1, "B", geo.Point{Lon: 1.0008, Lat: 0.0008}, geo.Point{Lon: 2, Lat: 0}),
	}

	g := Assemble(segments, 0.002, zap.NewNop())

	if g.NumEdges != 2 {
		t.Fatalf("NumEdges = %d, want 2 (no connector)", g.NumEdges)
	}
	for _, s := range g.EdgeSeg {
		if s == NoSegment {
			t.Error("unexpected connector arc")
		}
	}
}

func TestAssembleLastSegmentWins(t *testing.T) {
	// Two segments between the same endpoints: the later one replaces
	// the earlier edge entirely.
	segments := []roads.Segment{
		lineSegment(0, "old", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1, Lat: 0}),
		{
			ID:             1,
			Points:         []geo.Point{{Lon: 0, Lat: 0}, {Lon: 0.5, Lat: 0.3}, {Lon: 1, Lat: 0}},
			Classification: "new",
			LengthMeters:   50,
		},
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())

	if g.NumEdges != 1 {
		t.Fatalf("NumEdges = %d, want 1", g.NumEdges)
	}
	for e := range g.Head {
		if g.EdgeSeg[e] != 1 {
			t.Errorf("arc %d references segment %d, want 1", e, g.EdgeSeg[e])
		}
		if g.Weight[e] != 50 {
			t.Errorf("arc %d weight = %f, want 50", e, g.Weight[e])
		}
	}
}

func TestAssembleConnectorNeverReplaces(t *testing.T) {
	// A short segment whose own endpoints are inside tolerance of each
	// other: the connector pass must not touch the existing edge.
	segments := []roads.Segment{
		lineSegment(0, "short", geo.Point{Lon: 0.0002, Lat: 0}, geo.Point{Lon: 0.0008, Lat: 0}),
	}

	g := Assemble(segments, 0.002, zap.NewNop())

	if g.NumEdges != 1 {
		t.Fatalf("NumEdges = %d, want 1", g.NumEdges)
	}
	for e := range g.Head {
		if g.EdgeSeg[e] == NoSegment {
			t.Error("connector replaced a segment edge")
		}
	}
}

func TestAssembleTrivialLoopDropped(t *testing.T) {
	segments := []roads.Segment{
		{
			ID:             0,
			Points:         []geo.Point{{Lon: 1, Lat: 1}, {Lon: 1, Lat: 1}},
			Classification: "loop",
			LengthMeters:   0,
		},
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())

	if g.NumNodes != 1 {
		t.Errorf("NumNodes = %d, want 1", g.NumNodes)
	}
	if g.NumEdges != 0 {
		t.Errorf("NumEdges = %d, want 0", g.NumEdges)
	}
}

func TestAssembleRingKept(t *testing.T) {
	// A ring with real geometry stays as a single self-loop arc.
	segments := []roads.Segment{
		lineSegment(0, "ring",
			geo.Point{Lon: 0, Lat: 0},
			geo.Point{Lon: 0.5, Lat: 0.5},
			geo.Point{Lon: 0, Lat: 1},
			geo.Point{Lon: 0, Lat: 0}),
	}

	g := Assemble(segments, DefaultTolerance, zap.NewNop())
	checkCSR(t, g)

	if g.NumNodes != 1 {
		t.Fatalf("NumNodes = %d, want 1", g.NumNodes)
	}
	if g.NumEdges != 1 {
		t.Fatalf("NumEdges = %d, want 1", g.NumEdges)
	}
	if g.NumArcs() != 1 {
		t.Fatalf("self-loop stored as %d arcs, want 1", g.NumArcs())
	}
	if g.Head[0] != 0 {
		t.Errorf("self-loop head = %d, want 0", g.Head[0])
	}
}

func TestAssembleEmpty(t *testing.T) {
	g := Assemble(nil, DefaultTolerance, zap.NewNop())

	if g.NumNodes != 0 {
		t.Errorf("NumNodes = %d, want 0", g.NumNodes)
	}
	if g.NumEdges != 0 {
		t.Errorf("NumEdges = %d, want 0", g.NumEdges)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	segments := []roads.Segment{
		lineSegment(0, "A", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1, Lat: 0}),
		lineSegment(1, "B", geo.Point{Lon: 1.001, Lat: 0}, geo.Point{Lon: 2, Lat: 0}),
		lineSegment(2, "C", geo.Point{Lon: 2.0005, Lat: 0}, geo.Point{Lon: 3, Lat: 0}),
		lineSegment(3, "D", geo.Point{Lon: 5, Lat: 5}, geo.Point{Lon: 6, Lat: 5}),
	}

	first := Assemble(segments, 0.002, zap.NewNop())
	second := Assemble(segments, 0.002, zap.NewNop())

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same input produced different graphs")
	}
}

func TestBuildRoutableKeepsLargestComponent(t *testing.T) {
	// A 3-segment chain and a disjoint single segment. Only the chain
	// survives.
	segments := []roads.Segment{
		lineSegment(0, "A", geo.Point{Lon: 0, Lat: 0}, geo.Point{Lon: 1, Lat: 0}),
		lineSegment(1, "A", geo.Point{Lon: 1, Lat: 0}, geo.Point{Lon: 2, Lat: 0}),
		lineSegment(2, "A", geo.Point{Lon: 2, Lat: 0}, geo.Point{Lon: 3, Lat: 0}),
		lineSegment(3, "island", geo.Point{Lon: 50, Lat: 50}, geo.Point{Lon: 51, Lat: 50}),
	}

	g := BuildRoutable(segments, DefaultTolerance, zap.NewNop())
	checkCSR(t, g)

	if g.NumNodes != 4 {
		t.Fatalf("NumNodes = %d, want 4", g.NumNodes)
	}
	if g.NumEdges != 3 {
		t.Fatalf("NumEdges = %d, want 3", g.NumEdges)
	}
	if len(g.Segments) != 3 {
		t.Fatalf("kept %d segments, want 3", len(g.Segments))
	}
	for _, s := range g.Segments {
		if s.Classification == "island" {
			t.Error("island segment survived component filter")
		}
	}
}
