package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/farmville-istec/farmville/internal/auth"
	"github.com/farmville-istec/farmville/internal/cache"
	"github.com/farmville-istec/farmville/internal/circuitbreaker"
	"github.com/farmville-istec/farmville/internal/client"
	"github.com/farmville-istec/farmville/internal/config"
	httphandler "github.com/farmville-istec/farmville/internal/http"
	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/observability"
	"github.com/farmville-istec/farmville/internal/service"
	"github.com/farmville-istec/farmville/internal/store"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	aiClient, err := client.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.OpenAIModel, cfg.OpenAITimeout)
	if err != nil {
		logger.Fatal("openai client", zap.Error(err))
	}

	geoDirectory, err := client.NewGeoDirectoryClient(cfg.GeoAPIURL, cfg.LocationAPITimeout)
	if err != nil {
		logger.Fatal("geo directory client", zap.Error(err))
	}
	geocoder, err := client.NewMapboxClient(cfg.MapboxAccessToken, cfg.MapboxAPIURL, cfg.LocationAPITimeout)
	if err != nil {
		logger.Fatal("mapbox client", zap.Error(err))
	}

	var weatherCache cache.Store[models.WeatherRecord]
	var agroCache cache.Store[models.SuggestionReport]
	var locationCache cache.Store[models.LocationData]
	var cachePing func() error
	switch cfg.CacheBackend {
	case "memcached":
		wc := cache.NewMemcached[models.WeatherRecord](cfg.MemcachedAddrs, "weather", cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		weatherCache = wc
		agroCache = cache.NewMemcached[models.SuggestionReport](cfg.MemcachedAddrs, "agro", cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		locationCache = cache.NewMemcached[models.LocationData](cfg.MemcachedAddrs, "location", cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		cachePing = wc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		weatherCache = cache.NewInMemory[models.WeatherRecord]()
		agroCache = cache.NewInMemory[models.SuggestionReport]()
		locationCache = cache.NewInMemory[models.LocationData]()
		logger.Info("cache backend: in_memory")
	}

	var breaker *circuitbreaker.CircuitBreaker
	if cfg.BreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Timeout:          cfg.BreakerTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.CircuitBreakerTransitionsTotal.WithLabelValues("openai", from.String(), to.String()).Inc()
				observability.CircuitBreakerState.WithLabelValues("openai").Set(float64(to))
			},
		})
		observability.CircuitBreakerState.WithLabelValues("openai").Set(0)
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.BreakerFailureThreshold),
			zap.Duration("timeout", cfg.BreakerTimeout))
	}

	weatherService := service.NewWeatherService(weatherClient, weatherCache, cfg.WeatherCacheTTL)
	agroService := service.NewAgroService(aiClient, agroCache, cfg.AgroCacheTTL, breaker)
	orchestrator := service.NewOrchestrator(weatherService, agroService)
	locationService := service.NewLocationService(geoDirectory, geocoder, locationCache, cfg.LocationCacheTTL)

	alerts := service.NewAlertObserver(logger)
	agroService.Attach(alerts)

	var users store.UserStore
	var terrains store.TerrainStore
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := store.InitSchema(context.Background(), pool); err != nil {
			logger.Fatal("postgres schema", zap.Error(err))
		}
		users = store.NewPostgresUserStore(pool)
		terrains = store.NewPostgresTerrainStore(pool)
		logger.Info("store backend: postgres")
	} else {
		users = store.NewMemoryUserStore()
		terrains = store.NewMemoryTerrainStore()
		logger.Warn("store backend: in-memory (no DATABASE_URL); data is not persisted")
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenExpiry)
	if err != nil {
		logger.Fatal("token manager", zap.Error(err))
	}

	handler := httphandler.NewHandler(httphandler.Config{
		Weather:        weatherService,
		Agro:           agroService,
		Orchestrator:   orchestrator,
		Locations:      locationService,
		Alerts:         alerts,
		Users:          users,
		Terrains:       terrains,
		Tokens:         tokens,
		Logger:         logger,
		LocationMaxLen: cfg.LocationMaxLength,
		CachePing:      cachePing,
	})

	if cfg.WarmCache && len(cfg.TrackedLocations) > 0 {
		specs := make([]models.LocationSpec, len(cfg.TrackedLocations))
		for i, loc := range cfg.TrackedLocations {
			specs[i] = models.LocationSpec{Name: loc.Name, Latitude: loc.Latitude, Longitude: loc.Longitude}
		}
		warmer := cache.NewWarmer(weatherService, logger)
		if cfg.WarmInterval > 0 {
			// WarmPeriodic warms once before its first tick, so no separate
			// startup pass is needed.
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), specs, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		} else {
			warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := warmer.Warm(warmCtx, specs); err != nil {
				logger.Warn("cache warming failed", zap.Error(err))
			}
			warmCancel()
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	authRouter := router.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", handler.Register).Methods("POST")
	authRouter.HandleFunc("/login", handler.Login).Methods("POST")
	profileRouter := authRouter.PathPrefix("/profile").Subrouter()
	profileRouter.Use(httphandler.AuthMiddleware(tokens))
	profileRouter.HandleFunc("", handler.Profile).Methods("GET")

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(httphandler.RateLimitMiddleware(limiter))
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/batch", handler.BatchWeather).Methods("POST")
	weatherRouter.HandleFunc("/{location}", handler.GetWeather).Methods("GET")

	agroRouter := router.PathPrefix("/agro").Subrouter()
	agroRouter.Use(httphandler.AuthMiddleware(tokens))
	agroRouter.Use(httphandler.RateLimitMiddleware(limiter))
	agroRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	agroRouter.HandleFunc("/analyze", handler.Analyze).Methods("POST")
	agroRouter.HandleFunc("/quick-analyze", handler.QuickAnalyze).Methods("POST")
	agroRouter.HandleFunc("/bulk-analyze", handler.BulkAnalyze).Methods("POST")
	agroRouter.HandleFunc("/cache-info", handler.GetCacheInfo).Methods("GET")
	agroRouter.HandleFunc("/cache-clear", handler.ClearCaches).Methods("POST")
	agroRouter.HandleFunc("/observer-stats", handler.GetObserverStats).Methods("GET")

	locationRouter := router.PathPrefix("/locations").Subrouter()
	locationRouter.Use(httphandler.AuthMiddleware(tokens))
	locationRouter.Use(httphandler.RateLimitMiddleware(limiter))
	locationRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	locationRouter.HandleFunc("/districts", handler.GetDistricts).Methods("GET")
	locationRouter.HandleFunc("/municipalities", handler.GetMunicipalities).Methods("GET")
	locationRouter.HandleFunc("/parishes", handler.GetParishes).Methods("GET")
	locationRouter.HandleFunc("/coordinates", handler.GetParishCoordinates).Methods("GET")
	locationRouter.HandleFunc("/hierarchy", handler.GetLocationHierarchy).Methods("GET")
	locationRouter.HandleFunc("/weather", handler.GetLocationWeather).Methods("GET")
	locationRouter.HandleFunc("/geocode", handler.GeocodeAddress).Methods("GET")
	locationRouter.HandleFunc("/reverse", handler.ReverseGeocode).Methods("GET")
	locationRouter.HandleFunc("/search", handler.SearchLocations).Methods("GET")

	terrainRouter := router.PathPrefix("/terrains").Subrouter()
	terrainRouter.Use(httphandler.AuthMiddleware(tokens))
	terrainRouter.HandleFunc("", handler.CreateTerrain).Methods("POST")
	terrainRouter.HandleFunc("", handler.ListTerrains).Methods("GET")
	terrainRouter.HandleFunc("/{id}", handler.GetTerrain).Methods("GET")
	terrainRouter.HandleFunc("/{id}", handler.UpdateTerrain).Methods("PUT")
	terrainRouter.HandleFunc("/{id}", handler.DeleteTerrain).Methods("DELETE")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
