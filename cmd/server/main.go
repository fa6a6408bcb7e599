// Package main is the entry point for the DEX stats API, a read-only
// aggregation service over on-chain vault state and subgraph history,
// consumed by the analytics dashboard.
package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/meterfi/dex-stats-api/internal/chains"
	"github.com/meterfi/dex-stats-api/internal/config"
	"github.com/meterfi/dex-stats-api/internal/contract"
	"github.com/meterfi/dex-stats-api/internal/model"
	"github.com/meterfi/dex-stats-api/internal/otel"
	"github.com/meterfi/dex-stats-api/internal/series"
	"github.com/meterfi/dex-stats-api/internal/snapshot"
	"github.com/meterfi/dex-stats-api/internal/subgraph"
)

const version = "1.0.0"

// ChainReader exposes the single-value contract reads the handlers need.
type ChainReader interface {
	TotalSupply(ctx context.Context, chain chains.ChainID, key string) (*big.Int, error)
	LastPrice(ctx context.Context, chain chains.ChainID, key string) (*big.Int, error)
}

// SnapshotService builds per-request market snapshots.
type SnapshotService interface {
	TokenEntries(ctx context.Context, chain chains.ChainID) ([]model.TokenEntry, error)
	FeesSummary(ctx context.Context, chain chains.ChainID) (model.FeesSummary, error)
}

// VolumeService answers volume and action history queries.
type VolumeService interface {
	HourlyVolumes(ctx context.Context) ([]model.VolumeEntry, error)
	DailyVolumes(ctx context.Context) ([]model.VolumeEntry, error)
	TotalVolumes(ctx context.Context) ([]model.VolumeEntry, error)
	Actions(ctx context.Context, account string) ([]model.ActionEntry, error)
}

// CandleService serves price candles from the background-refreshed store.
type CandleService interface {
	PricesLimit(limit int, preferable chains.ChainID, symbol, period string) []model.Candle
	LastUpdated() int64
}

// Server holds the wired collaborators and the HTTP plumbing.
type Server struct {
	config    config.Config
	reader    ChainReader
	snapshots SnapshotService
	volumes   VolumeService
	candles   CandleService

	router    *mux.Router
	server    *http.Server
	metrics   *serverMetrics
	rateLimit *rate.Limiter
}

// serverMetrics holds the Prometheus instruments for the API surface.
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// registerMetrics sets up metrics collection on the given registerer.
func registerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexstats_requests_total",
				Help: "Total number of API requests processed",
			},
			[]string{"route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dexstats_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexstats_request_errors_total",
				Help: "Total number of failed API requests",
			},
			[]string{"route"},
		),
	}
	reg.MustRegister(m.requestCounter, m.requestDuration, m.requestErrors)
	return m
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using system environment")
	}
	setupLogging()

	cfg := config.Load()
	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	registry := chains.NewRegistry(cfg.Endpoints)
	reader := contract.NewReader(registry, cfg.RequestTimeout)
	graphs := subgraph.NewSet(registry, cfg.RequestTimeout, cfg.SubgraphRetryMax)

	store := series.NewCandleStore(graphs,
		[]chains.ChainID{chains.Metertest, chains.Avalanche}, cfg.CandleQueryLimit)
	if err := store.Start(context.Background(), cfg.CandleRefreshSpec); err != nil {
		logrus.Fatalf("starting candle store: %v", err)
	}
	defer store.Stop()

	server := NewServer(cfg,
		reader,
		snapshot.NewBuilder(reader),
		series.NewService(graphs),
		store,
		prometheus.DefaultRegisterer,
	)
	server.Start()
}

// setupLogging configures the logging for the application.
func setupLogging() {
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// NewServer wires the collaborators into a routed server instance.
func NewServer(cfg config.Config, reader ChainReader, snapshots SnapshotService,
	volumes VolumeService, candles CandleService, reg prometheus.Registerer) *Server {

	s := &Server{
		config:    cfg,
		reader:    reader,
		snapshots: snapshots,
		volumes:   volumes,
		candles:   candles,
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}
	if cfg.EnableMetrics {
		s.metrics = registerMetrics(reg)
	}
	s.routes()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"metrics":     cfg.EnableMetrics,
	}).Info("Server initialized")
	return s
}

// routes sets up the API routes.
func (s *Server) routes() {
	s.router = mux.NewRouter()
	s.router.Use(s.observe)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/gmx_supply", s.api("gmx_supply", s.handleSupply)).Methods(http.MethodGet)
	api.HandleFunc("/ui_version", s.api("ui_version", s.handleUIVersion)).Methods(http.MethodGet)
	api.HandleFunc("/tokens", s.api("tokens", s.handleTokens)).Methods(http.MethodGet)
	api.HandleFunc("/fees_summary", s.api("fees_summary", s.handleFeesSummary)).Methods(http.MethodGet)
	api.HandleFunc("/hourly_volume", s.api("hourly_volume", s.handleHourlyVolume)).Methods(http.MethodGet)
	api.HandleFunc("/daily_volume", s.api("daily_volume", s.handleDailyVolume)).Methods(http.MethodGet)
	api.HandleFunc("/total_volume", s.api("total_volume", s.handleTotalVolume)).Methods(http.MethodGet)
	api.HandleFunc("/actions", s.api("actions", s.handleActions)).Methods(http.MethodGet)
	api.HandleFunc("/prices", s.api("prices", s.handlePrices)).Methods(http.MethodGet)
	api.HandleFunc("/candles/{symbol}", s.api("candles", s.handleCandles)).Methods(http.MethodGet)
	api.HandleFunc("/position_stats", s.api("position_stats", s.handlePositionStats)).Methods(http.MethodGet)
	api.HandleFunc("/orders_indices", s.api("orders_indices", s.handleOrdersIndices)).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// observe applies rate limiting and records request metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimit.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		ctx, span := otel.Tracer().Start(r.Context(), r.URL.Path)
		defer span.End()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		if s.metrics != nil {
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			s.metrics.requestCounter.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			s.metrics.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Start begins the HTTP server and sets up graceful shutdown.
func (s *Server) Start() {
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)

	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}
