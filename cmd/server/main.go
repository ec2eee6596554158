// Command server runs the road routing HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"roadnet/pkg/api"
	"roadnet/pkg/config"
	"roadnet/pkg/graph"
	"roadnet/pkg/logger"
	"roadnet/pkg/osm"
	"roadnet/pkg/roads"
	"roadnet/pkg/routing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store := roads.NewStore(cfg.DataDir, log)
	store.Register(".osm.pbf", osm.LoadFile)

	source, err := graphSource(cfg, store, log)
	if err != nil {
		log.Fatal("graph source", zap.Error(err))
	}

	engine := routing.NewEngine(source, cfg.PathfindingTolerance, log)
	handlers := api.NewHandlers(engine, source, store, cfg.MaxFeatures, log)

	scfg := api.DefaultConfig(cfg.Addr())
	scfg.Timeout = cfg.APITimeout
	scfg.MaxConcurrent = cfg.MaxConcurrentRoutes
	scfg.RateLimitRPS = cfg.RateLimitRPS

	srv := api.NewServer(scfg, handlers, log)
	if err := api.ListenAndServe(srv, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// graphSource picks between a prebuilt snapshot and building the routable
// network from the configured dataset on first use.
func graphSource(cfg *config.Config, store *roads.Store, log *zap.Logger) (routing.GraphSource, error) {
	if cfg.GraphSnapshot != "" {
		g, err := graph.ReadBinary(cfg.GraphSnapshot)
		if err != nil {
			return nil, errors.Wrapf(err, "load snapshot %s", cfg.GraphSnapshot)
		}
		log.Info("graph snapshot loaded",
			zap.String("path", cfg.GraphSnapshot),
			zap.Uint32("nodes", g.NumNodes),
			zap.Uint32("edges", g.NumEdges))
		return routing.StaticGraph{G: g}, nil
	}

	dataset := cfg.RoutingDataset
	tolerance := cfg.NetworkTolerance
	return routing.NewLazyGraph(func() (*graph.Graph, error) {
		ds, err := store.Load(dataset)
		if err != nil {
			return nil, errors.Wrapf(err, "load dataset %s", dataset)
		}
		return graph.BuildRoutable(ds.Segments, tolerance, log), nil
	}), nil
}
