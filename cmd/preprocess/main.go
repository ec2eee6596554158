// Command preprocess builds a routable graph snapshot from a road dataset
// so the server can start without assembling the network itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"roadnet/pkg/graph"
	"roadnet/pkg/logger"
	"roadnet/pkg/osm"
	"roadnet/pkg/roads"
)

func main() {
	input := flag.String("input", "", "Path to a .geojson or .osm.pbf road dataset")
	output := flag.String("output", "network.bin", "Output snapshot path")
	bbox := flag.String("bbox", "", "Bounding box filter for OSM input: minLon,minLat,maxLon,maxLat")
	tolerance := flag.Float64("tolerance", graph.DefaultTolerance, "Endpoint snapping tolerance in degrees")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.geojson|file.osm.pbf> [--output network.bin] [--bbox minLon,minLat,maxLon,maxLat] [--tolerance 0.002]")
		os.Exit(1)
	}

	log, err := logger.New("development")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	started := time.Now()

	segments, err := loadSegments(*input, *bbox, log)
	if err != nil {
		log.Fatal("load dataset", zap.Error(err))
	}
	log.Info("dataset loaded", zap.String("input", *input), zap.Int("segments", len(segments)))

	g := graph.BuildRoutable(segments, *tolerance, log)

	if err := graph.WriteBinary(*output, g); err != nil {
		log.Fatal("write snapshot", zap.Error(err))
	}

	info, err := os.Stat(*output)
	if err != nil {
		log.Fatal("stat snapshot", zap.Error(err))
	}
	log.Info("snapshot written",
		zap.String("output", *output),
		zap.Int64("bytes", info.Size()),
		zap.Duration("elapsed", time.Since(started).Round(time.Millisecond)))
}

func loadSegments(input, bbox string, log *zap.Logger) ([]roads.Segment, error) {
	switch {
	case strings.HasSuffix(input, ".geojson"):
		if bbox != "" {
			log.Warn("bbox filter only applies to OSM input, ignoring")
		}
		return roads.LoadGeoJSON(input, log)

	case strings.HasSuffix(input, ".pbf"):
		var opts osm.ParseOptions
		if bbox != "" {
			box, err := parseBBox(bbox)
			if err != nil {
				return nil, err
			}
			opts.BBox = box
			log.Info("bounding box filter",
				zap.Float64("min_lon", box.MinLon), zap.Float64("min_lat", box.MinLat),
				zap.Float64("max_lon", box.MaxLon), zap.Float64("max_lat", box.MaxLat))
		}

		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return osm.Parse(context.Background(), f, log, opts)

	default:
		return nil, fmt.Errorf("unsupported input format: %s", input)
	}
}

func parseBBox(s string) (osm.BBox, error) {
	var box osm.BBox
	_, err := fmt.Sscanf(s, "%f,%f,%f,%f", &box.MinLon, &box.MinLat, &box.MaxLon, &box.MaxLat)
	if err != nil {
		return osm.BBox{}, fmt.Errorf("invalid bbox %q (expected minLon,minLat,maxLon,maxLat): %w", s, err)
	}
	return box, nil
}
