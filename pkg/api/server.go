package api

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr          string
	Timeout       time.Duration // per-request budget for route computation
	MaxConcurrent int           // in-flight request cap
	RateLimitRPS  float64       // global requests per second
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// DefaultConfig returns server settings suitable for a small deployment.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:          addr,
		Timeout:       10 * time.Second,
		MaxConcurrent: 64,
		RateLimitRPS:  50,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
}

// NewServer assembles the router, the middleware chain and the HTTP server.
func NewServer(cfg ServerConfig, handlers *Handlers, log *zap.Logger) *http.Server {
	router := httprouter.New()
	router.POST("/api/route", handlers.HandleRoute)
	router.GET("/api/data/:dataset", handlers.HandleData)
	router.GET("/api/health", handlers.HandleHealth)
	router.GET("/api/stats", handlers.HandleStats)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})

	chain := alice.New(
		corsHandler.Handler,
		RecoverPanic(log),
		RealIP,
		Logger(log),
		EnforceJSONHandler,
		Limit(cfg.RateLimitRPS),
		MaxInFlight(cfg.MaxConcurrent),
		Timeout(cfg.Timeout),
	).Then(router)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      chain,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe runs the server until SIGINT/SIGTERM, then drains it with
// a 10 second grace period.
func ListenAndServe(srv *http.Server, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
