package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/meetpoint/internal/config"
	"github.com/example/meetpoint/internal/enrich"
	httpapi "github.com/example/meetpoint/internal/http"
	"github.com/example/meetpoint/internal/ingest"
	"github.com/example/meetpoint/internal/logging"
	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/places"
	"github.com/example/meetpoint/internal/resolver"
	"github.com/example/meetpoint/internal/session"
	"github.com/example/meetpoint/internal/solver"
	"github.com/example/meetpoint/internal/storage"
	"github.com/example/meetpoint/internal/travel"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	// storage: Postgres when configured, in-memory otherwise
	var store storage.SessionStore
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			if err := runMigrations(cfg.PGDSN); err != nil {
				logger.Error("migration failed", "err", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN, cfg.SessionTTL)
		if err != nil {
			logger.Error("postgres unavailable", "err", err)
			os.Exit(1)
		}
		defer ps.Close()
		store = ps
	} else {
		store = storage.NewMemoryStore(cfg.SessionTTL)
		logger.Warn("PG_DSN not set, using in-memory store")
	}

	// travel-time lookups: OSRM behind a Redis or in-memory cache
	var travelClient travel.Client
	if cfg.OSRMEndpoint != "" {
		travelClient = travel.NewOSRMClient(cfg.OSRMEndpoint)
	} else {
		logger.Warn("OSRM_ENDPOINT not set, midpoints will be geographic only")
	}
	var travelCache travel.Cache
	if cfg.RedisAddr != "" {
		rc := travel.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.TravelCacheTTL)
		defer rc.Close()
		travelCache = rc
	} else {
		travelCache = travel.NewMemoryCache(cfg.TravelCacheTTL)
	}

	var placesClient places.Client
	if cfg.PlacesEndpoint != "" && cfg.PlacesAPIKey != "" {
		placesClient = places.NewHTTPClient(cfg.PlacesEndpoint, cfg.PlacesAPIKey)
	} else {
		logger.Warn("place search not configured, sessions will complete without venues")
	}
	var enrichClient enrich.Client
	if cfg.EnrichEndpoint != "" {
		enrichClient = enrich.NewHTTPClient(cfg.EnrichEndpoint, cfg.EnrichAPIKey)
	}

	var events session.EventSink
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		events = kp
	}

	svc := &session.Service{
		Store: store,
		Solver: &solver.Service{
			Travel:               travelClient,
			Cache:                travelCache,
			MaxIterations:        cfg.SolverMaxIterations,
			ConvergenceThreshold: cfg.SolverThreshold,
			Damping:              cfg.SolverDamping,
			LongDistanceSeconds:  cfg.LongDistanceSeconds,
			Logger:               logger,
		},
		Resolver: &resolver.Service{
			Places:            placesClient,
			Enrich:            enrichClient,
			InitialRadius:     cfg.InitialRadiusMeters,
			MaxRadius:         cfg.MaxRadiusMeters,
			RadiusMultiplier:  cfg.RadiusMultiplier,
			MinVenues:         cfg.MinVenues,
			MaxVenues:         cfg.MaxVenues,
			MinRating:         cfg.MinRating,
			MinReviews:        cfg.MinReviews,
			RelaxedMinRating:  cfg.RelaxedMinRating,
			RelaxedMinReviews: cfg.RelaxedMinReviews,
			Categories:        cfg.VenueCategories,
			Logger:            logger,
		},
		Events:      events,
		Logger:      logger,
		DefaultMode: models.TravelMode(cfg.DefaultTravelMode),
	}
	if !svc.DefaultMode.Known() {
		logger.Error("invalid DEFAULT_TRAVEL_MODE", "mode", cfg.DefaultTravelMode)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(logger, svc, cfg.BaseURL),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("meetpoint listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_tables.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
