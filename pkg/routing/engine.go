package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"

	"roadnet/pkg/geo"
	"roadnet/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points,
// including when a query point resolves to no graph node.
var ErrNoRoute = errors.New("no route found")

// ErrNoNearbyNode is returned by NearestNode when no graph node lies
// within the search radius.
var ErrNoNearbyNode = errors.New("no graph node within range")

// ErrGraphNotReady means the routable graph is unavailable, typically
// because its build failed.
var ErrGraphNotReady = errors.New("road network not ready")

// RouteResult is the output of a route query.
type RouteResult struct {
	Geometry       *geojson.Geometry // LineString in [lon, lat] order
	DistanceMeters float64
	Roads          []string // sorted, deduplicated road labels traversed
	NodeCount      int      // graph nodes on the path
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end geo.Point) (*RouteResult, error)
}

// GraphSource yields the routable graph, preparing it first if needed.
type GraphSource interface {
	// Graph returns the routable graph, blocking while it is prepared.
	Graph() (*graph.Graph, error)
	// Ready reports the graph without triggering preparation.
	Ready() (*graph.Graph, bool)
}

// StaticGraph is a GraphSource over an already-built graph.
type StaticGraph struct {
	G *graph.Graph
}

func (s StaticGraph) Graph() (*graph.Graph, error) { return s.G, nil }

func (s StaticGraph) Ready() (*graph.Graph, bool) { return s.G, true }

// LazyGraph builds the graph exactly once, on first use. Concurrent
// callers block until the single build finishes. A failed build is
// remembered and every later call reports ErrGraphNotReady with the
// original cause.
type LazyGraph struct {
	build func() (*graph.Graph, error)
	once  sync.Once
	done  atomic.Bool
	g     *graph.Graph
	err   error
}

// NewLazyGraph wraps a build function in a once-only GraphSource.
func NewLazyGraph(build func() (*graph.Graph, error)) *LazyGraph {
	return &LazyGraph{build: build}
}

func (l *LazyGraph) Graph() (*graph.Graph, error) {
	l.once.Do(func() {
		l.g, l.err = l.build()
		l.done.Store(true)
	})
	if l.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphNotReady, l.err)
	}
	return l.g, nil
}

func (l *LazyGraph) Ready() (*graph.Graph, bool) {
	if !l.done.Load() || l.err != nil {
		return nil, false
	}
	return l.g, true
}

// Engine implements Router over a GraphSource: it resolves the query
// points to graph nodes, runs Dijkstra and assembles the display
// geometry.
type Engine struct {
	source          GraphSource
	maxNodeDistance float64 // nearest-node search radius in degrees
	log             *zap.Logger
}

// NewEngine creates a routing engine. A non-positive maxNodeDistance
// selects DefaultMaxNodeDistance.
func NewEngine(source GraphSource, maxNodeDistance float64, log *zap.Logger) *Engine {
	if maxNodeDistance <= 0 {
		maxNodeDistance = DefaultMaxNodeDistance
	}
	return &Engine{
		source:          source,
		maxNodeDistance: maxNodeDistance,
		log:             log,
	}
}

// Route computes the shortest route between two coordinates. The
// returned geometry starts and ends on the literal query points.
func (e *Engine) Route(ctx context.Context, start, end geo.Point) (*RouteResult, error) {
	g, err := e.source.Graph()
	if err != nil {
		return nil, err
	}

	startNode, startOffset, err := NearestNode(g, start, e.maxNodeDistance)
	if err != nil {
		return nil, fmt.Errorf("%w: start point has no node within %g degrees", ErrNoRoute, e.maxNodeDistance)
	}
	endNode, endOffset, err := NearestNode(g, end, e.maxNodeDistance)
	if err != nil {
		return nil, fmt.Errorf("%w: end point has no node within %g degrees", ErrNoRoute, e.maxNodeDistance)
	}

	e.log.Debug("query endpoints resolved",
		zap.Uint32("start_node", startNode),
		zap.Float64("start_offset_deg", startOffset),
		zap.Uint32("end_node", endNode),
		zap.Float64("end_offset_deg", endOffset))

	path, _, err := ShortestPath(ctx, g, startNode, endNode)
	if err != nil {
		return nil, err
	}

	result := BuildRouteGeometry(g, path, start, end)
	e.log.Debug("route computed",
		zap.Int("nodes", result.NodeCount),
		zap.Float64("distance_m", result.DistanceMeters))
	return result, nil
}
