package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	geojson "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"

	"roadnet/pkg/geo"
	"roadnet/pkg/roads"
	"roadnet/pkg/routing"
	"roadnet/pkg/spatialindex"
)

// maxRouteBody caps the POST /api/route body. Two points never need more.
const maxRouteBody = 1024

// Handlers holds the HTTP handlers and their shared state.
type Handlers struct {
	router      routing.Router
	graphs      routing.GraphSource
	store       *roads.Store
	maxFeatures int
	log         *zap.Logger

	validate *validator.Validate
	trans    ut.Translator

	mu      sync.Mutex
	indexes map[string]*spatialindex.Index
}

// NewHandlers wires the handler set. maxFeatures caps the feature count a
// single data request may return; non-positive means 10000.
func NewHandlers(router routing.Router, graphs routing.GraphSource, store *roads.Store, maxFeatures int, log *zap.Logger) *Handlers {
	if maxFeatures <= 0 {
		maxFeatures = 10000
	}

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = entranslations.RegisterDefaultTranslations(validate, trans)

	return &Handlers{
		router:      router,
		graphs:      graphs,
		store:       store,
		maxFeatures: maxFeatures,
		log:         log,
		validate:    validate,
		trans:       trans,
		indexes:     make(map[string]*spatialindex.Index),
	}
}

// HandleRoute computes a shortest route between the two points in the
// request body.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRouteBody)

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, ve := range verrs {
				msgs = append(msgs, ve.Translate(h.trans))
			}
			writeError(w, http.StatusBadRequest, strings.Join(msgs, "; "))
		} else {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}

	start := geo.Point{Lon: req.Start.Lng, Lat: req.Start.Lat}
	end := geo.Point{Lon: req.End.Lng, Lat: req.End.Lat}

	result, err := h.router.Route(r.Context(), start, end)
	if err != nil {
		h.routeError(w, err)
		return
	}

	resp := RouteResponse{
		Route:    result.Geometry,
		Distance: result.DistanceMeters,
		Roads:    result.Roads,
		Nodes:    result.NodeCount,
	}
	if req.IncludePolyline {
		resp.Polyline = encodePolyline(result.Geometry)
	}
	writeJSON(w, http.StatusOK, resp)
}

// routeError maps routing failures to HTTP statuses.
func (h *Handlers) routeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrNoRoute):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, routing.ErrGraphNotReady):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "road network not ready")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "route computation timed out")
	default:
		h.log.Error("route query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleData serves a dataset's segments as a GeoJSON FeatureCollection,
// optionally clipped to a bbox=minLon,minLat,maxLon,maxLat viewport.
func (h *Handlers) HandleData(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	name := p.ByName("dataset")

	ds, err := h.store.Load(name)
	if err != nil {
		if errors.Is(err, roads.ErrUnknownDataset) {
			writeError(w, http.StatusNotFound, "unknown dataset: "+name)
			return
		}
		h.log.Error("dataset load failed", zap.String("dataset", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load dataset")
		return
	}

	if zoom := r.URL.Query().Get("zoom"); zoom != "" {
		if z, err := strconv.Atoi(zoom); err == nil {
			h.log.Debug("viewport zoom", zap.String("dataset", name), zap.Int("zoom", z))
		}
	}

	var positions []int
	if minLon, minLat, maxLon, maxLat, ok := parseBBox(r.URL.Query().Get("bbox")); ok {
		positions = h.indexFor(ds).Search(minLon, minLat, maxLon, maxLat, h.maxFeatures)
	} else {
		n := len(ds.Segments)
		if n > h.maxFeatures {
			n = h.maxFeatures
		}
		positions = make([]int, n)
		for i := range positions {
			positions[i] = i
		}
	}

	fc := geojson.NewFeatureCollection()
	for _, pos := range positions {
		seg := &ds.Segments[pos]
		coords := make([][]float64, len(seg.Points))
		for i, pt := range seg.Points {
			coords[i] = []float64{pt.Lon, pt.Lat}
		}
		f := geojson.NewLineStringFeature(coords)
		f.ID = seg.ID
		f.SetProperty(roads.ClassificationProperty, seg.Classification)
		f.SetProperty("length_meters", seg.LengthMeters)
		fc.AddFeature(f)
	}
	writeJSON(w, http.StatusOK, fc)
}

// HandleHealth reports service liveness, the dataset cache and whether the
// routable graph is ready. It never triggers a graph build.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := HealthResponse{
		Status:    "ok",
		DataCache: h.store.CacheInfo(),
	}
	if g, ready := h.graphs.Ready(); ready {
		resp.Network = NetworkInfo{
			Ready:    true,
			Nodes:    g.NumNodes,
			Edges:    g.NumEdges,
			Segments: len(g.Segments),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStats reports the routable graph dimensions.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	g, ready := h.graphs.Ready()
	if !ready {
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "road network not ready")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		NumNodes:    g.NumNodes,
		NumEdges:    g.NumEdges,
		NumSegments: len(g.Segments),
	})
}

// indexFor returns the dataset's spatial index, building it on first use.
func (h *Handlers) indexFor(ds *roads.Dataset) *spatialindex.Index {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := h.indexes[ds.Name]
	if !ok {
		idx = spatialindex.NewIndex(ds.Segments)
		h.indexes[ds.Name] = idx
		h.log.Info("spatial index built",
			zap.String("dataset", ds.Name),
			zap.Int("segments", idx.Len()))
	}
	return idx
}

// parseBBox parses "minLon,minLat,maxLon,maxLat". Swapped bounds are
// normalized; malformed input reports ok=false and is treated as no filter.
func parseBBox(raw string) (minLon, minLat, maxLon, maxLat float64, ok bool) {
	if raw == "" {
		return 0, 0, 0, 0, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, false
	}
	var vals [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		vals[i] = v
	}
	if vals[0] > vals[2] {
		vals[0], vals[2] = vals[2], vals[0]
	}
	if vals[1] > vals[3] {
		vals[1], vals[3] = vals[3], vals[1]
	}
	return vals[0], vals[1], vals[2], vals[3], true
}

// encodePolyline renders a LineString geometry as a Google encoded
// polyline, which wants (lat, lng) pairs.
func encodePolyline(g *geojson.Geometry) string {
	if g == nil || !g.IsLineString() {
		return ""
	}
	latLng := make([][]float64, len(g.LineString))
	for i, c := range g.LineString {
		latLng[i] = []float64{c[1], c[0]}
	}
	return string(polyline.EncodeCoords(latLng))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Too late to change the status line here.
		_ = err
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
