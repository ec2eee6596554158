package api

import geojson "github.com/paulmach/go.geojson"

// RouteRequest is the JSON body for POST /api/route.
type RouteRequest struct {
	Start *PointJSON `json:"start" validate:"required"`
	End   *PointJSON `json:"end" validate:"required"`

	// IncludePolyline adds an encoded polyline of the route geometry.
	IncludePolyline bool `json:"include_polyline"`
}

// PointJSON represents a lat/lng pair in JSON.
type PointJSON struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	Route    *geojson.Geometry `json:"route"`
	Distance float64           `json:"distance"`
	Roads    []string          `json:"roads"`
	Nodes    int               `json:"nodes"`
	Polyline string            `json:"polyline,omitempty"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NetworkInfo summarizes the routable graph for health reporting.
type NetworkInfo struct {
	Ready    bool   `json:"ready"`
	Nodes    uint32 `json:"nodes,omitempty"`
	Edges    uint32 `json:"edges,omitempty"`
	Segments int    `json:"segments,omitempty"`
}

// HealthResponse is the JSON response for GET /api/health.
type HealthResponse struct {
	Status    string         `json:"status"`
	DataCache map[string]int `json:"data_cache"`
	Network   NetworkInfo    `json:"network"`
}

// StatsResponse is the JSON response for GET /api/stats.
type StatsResponse struct {
	NumNodes    uint32 `json:"num_nodes"`
	NumEdges    uint32 `json:"num_edges"`
	NumSegments int    `json:"num_segments"`
}
