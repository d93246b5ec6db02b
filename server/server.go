package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dropfm/cache"
	"dropfm/config"
	"dropfm/core/auth"
	"dropfm/core/chart"
	"dropfm/core/discover"
	"dropfm/core/feed"
	"dropfm/core/scheduler"
	"dropfm/core/track"
	"dropfm/db"
	"dropfm/logger"
	"dropfm/model"
	"dropfm/repository"
	"dropfm/storage"

	"github.com/gorilla/mux"
)

// Start initializes all dependencies and runs the HTTP server until a
// termination signal arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: "logs/dropfm.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.User{}, &model.Follow{}); err != nil {
		logger.Fatal("Failed to migrate models", logger.ErrorField(err))
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	blobs, err := storage.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize blob store", logger.ErrorField(err))
	}

	trackRepo := repository.NewMySQLTrackRepository()
	userRepo := repository.NewGormUserRepository(db.GormDB)
	followRepo := repository.NewGormFollowRepository(db.GormDB)
	chartCache := cache.NewRedisChartCache(cache.RedisClient)

	trackSvc := track.NewService(trackRepo, blobs, cfg.DefaultCoverURL)
	chartSvc := chart.NewService(trackRepo, chartCache, cfg.ChartCacheTTL)
	discoverSvc := discover.NewService(trackRepo)
	feedSvc := feed.NewService(trackRepo, followRepo, userRepo)
	sweeps := scheduler.New(trackRepo, blobs, scheduler.Config{
		Retention:       cfg.TrackRetention,
		ExpireInterval:  cfg.ExpireSweepInterval,
		DeleteInterval:  cfg.DeleteSweepInterval,
		DefaultCoverURL: cfg.DefaultCoverURL,
	})

	apiHandler := NewAPIHandler(trackSvc, chartSvc, discoverSvc, feedSvc, sweeps, userRepo, followRepo, cfg)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth endpoints
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Track lifecycle endpoints
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/current", apiHandler.AuthMiddleware(apiHandler.CurrentTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/vote", apiHandler.AuthMiddleware(apiHandler.VoteTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateTrackHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)

	// Read paths: charts and discovery work anonymously, the feed doesn't.
	router.HandleFunc("/api/charts/{genre}", apiHandler.GetChartHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/discover/{genre}", apiHandler.DiscoverHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/feed", apiHandler.AuthMiddleware(apiHandler.FeedHandler)).Methods(http.MethodGet)

	// Follow graph
	router.HandleFunc("/api/users/{id}/follow", apiHandler.AuthMiddleware(apiHandler.FollowHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/users/{id}/follow", apiHandler.AuthMiddleware(apiHandler.UnfollowHandler)).Methods(http.MethodDelete)

	// External sweep triggers for cron/serverless deployments
	router.HandleFunc("/api/cron/expire", apiHandler.CronExpireHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/api/cron/delete", apiHandler.CronDeleteHandler).Methods(http.MethodGet, http.MethodPost)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Background sweeps run for the lifetime of the server.
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	go sweeps.Start(sweepCtx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")
	stopSweeps()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
