package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/fernwick/camtrapbackend/config"
	"github.com/fernwick/camtrapbackend/database"
	"github.com/fernwick/camtrapbackend/handlers"
	"github.com/fernwick/camtrapbackend/inference"
	"github.com/fernwick/camtrapbackend/media"
	"github.com/fernwick/camtrapbackend/pipeline"
	"github.com/fernwick/camtrapbackend/repository"
	"github.com/fernwick/camtrapbackend/tracking"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.ObjectStorePath, cfg.CropsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	imageRepo := repository.NewImageRepository(db)
	speciesRepo := repository.NewSpeciesRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	detectionRepo := repository.NewDetectionRepository(db)

	objectStore, err := media.NewLocalObjectStore(cfg.ObjectStorePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize object store: %v", err)
	}
	assetSubDirs := map[media.AssetType]string{
		media.AssetTypeCrop: filepath.Base(cfg.CropsPath),
	}
	assetStore, err := media.NewLocalStorage(cfg.AssetStoragePath, assetSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize asset store: %v", err)
	}

	detector, classifier := buildInferenceBackends(cfg)

	var tracker tracking.Tracker
	if cfg.TrackingURL != "" {
		tracker = tracking.NewHTTPTracker(cfg.TrackingURL)
		log.Printf("Tracking updates will be sent to %s", cfg.TrackingURL)
	} else {
		tracker = tracking.LogTracker{}
		log.Println("No tracking endpoint configured; updates go to the process log")
	}
	asyncTracker := tracking.NewAsyncTracker(tracker, cfg.PipelineQueueSize)
	defer asyncTracker.Stop()

	orchestrator := pipeline.NewOrchestrator(cfg, imageRepo, speciesRepo, locationRepo,
		objectStore, assetStore, detector, classifier, asyncTracker)

	log.Printf("Initializing pipeline worker pool (Workers: %d, Queue Size: %d)...",
		cfg.NumPipelineWorkers, cfg.PipelineQueueSize)
	processor := pipeline.NewProcessor(orchestrator, cfg.PipelineQueueSize, cfg.NumPipelineWorkers)
	defer processor.Stop()

	if cfg.StatsRefreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.StatsRefreshInterval)
			defer ticker.Stop()
			for range ticker.C {
				if err := database.RefreshStatistics(db); err != nil {
					log.Printf("ERROR: scheduled statistics refresh failed: %v", err)
				}
			}
		}()
		log.Printf("Statistics refresh scheduled every %s", cfg.StatsRefreshInterval)
	}

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Reading uploads from: %s", cfg.ObjectStorePath)
	log.Printf("Storing detection crops in: %s", cfg.CropsPath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	notificationHandler := &handlers.NotificationHandler{Processor: processor}
	imageHandler := &handlers.ImageHandler{ImageRepo: imageRepo, DetectionRepo: detectionRepo}
	detectionHandler := &handlers.DetectionHandler{DetectionRepo: detectionRepo}
	speciesHandler := &handlers.SpeciesHandler{SpeciesRepo: speciesRepo}
	locationHandler := &handlers.LocationHandler{LocationRepo: locationRepo}
	statsHandler := &handlers.StatsHandler{DB: db}

	r.Route("/api", func(r chi.Router) {
		r.Post("/notifications", notificationHandler.IngestNotification)

		r.Route("/images", func(r chi.Router) {
			r.Get("/", imageHandler.ListImages)
			r.Route("/{image_id}", func(r chi.Router) {
				r.Get("/", imageHandler.GetImage)
				r.Delete("/", imageHandler.DeleteImage)
			})
		})

		r.Route("/detections", func(r chi.Router) {
			r.Get("/", detectionHandler.ListDetections)
			r.Route("/{detection_id}", func(r chi.Router) {
				r.Get("/", detectionHandler.GetDetection)
				r.Put("/verify", detectionHandler.UpdateVerification)
			})
		})

		r.Route("/species", func(r chi.Router) {
			r.Get("/", speciesHandler.ListSpecies)
			r.Put("/", speciesHandler.UpsertSpecies)
			r.Get("/{species_id}", speciesHandler.GetSpecies)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locationHandler.ListLocations)
			r.Put("/", locationHandler.UpsertLocation)
			r.Get("/{camera_id}", locationHandler.GetLocation)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/locations", statsHandler.ListLocationStats)
			r.Get("/species", statsHandler.ListSpeciesStats)
			r.Post("/refresh", statsHandler.RefreshStats)
		})

		cropsSubDir := filepath.Base(cfg.CropsPath)
		r.Get(fmt.Sprintf("/%s/*", cropsSubDir), handlers.AssetServer(cfg.AssetStoragePath, cropsSubDir))
		log.Printf("Registered crop server at /api/%s/*", cropsSubDir)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

// buildInferenceBackends prefers the remote endpoints when configured and
// falls back to the local DNN models otherwise.
func buildInferenceBackends(cfg config.Config) (inference.Detector, inference.Classifier) {
	var detector inference.Detector
	if cfg.DetectorURL != "" {
		log.Printf("Using remote detector at %s", cfg.DetectorURL)
		detector = inference.NewHTTPDetector(cfg.DetectorURL)
	} else {
		log.Printf("Loading local detector model from %s", cfg.DetectorModelPath)
		detector = inference.NewDNNDetector(cfg.DetectorModelPath)
	}

	var classifier inference.Classifier
	if cfg.ClassifierURL != "" {
		log.Printf("Using remote classifier at %s", cfg.ClassifierURL)
		classifier = inference.NewHTTPClassifier(cfg.ClassifierURL)
	} else {
		log.Printf("Loading local classifier model from %s", cfg.ClassifierModelPath)
		classifier = inference.NewDNNClassifier(cfg.ClassifierModelPath, cfg.TaxonomyPath)
	}
	return detector, classifier
}
