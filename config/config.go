package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const DefaultCropsSubDir = "crops"

const (
	defaultDetectionThreshold      = 0.6
	defaultClassificationThreshold = 0.5

	defaultPipelineQueueSize  = 200
	defaultNumPipelineWorkers = 4

	defaultInvocationTimeout = 5 * time.Minute
	defaultAdapterRetries    = 3
	defaultRetryBaseDelay    = 2 * time.Second

	defaultStatsRefreshInterval = 15 * time.Minute
)

type Config struct {
	// database path
	DatabasePath string

	// object storage root (bucket directories live under it)
	ObjectStorePath string

	// generated asset storage (detection crops)
	AssetStoragePath string
	CropsPath        string // full-calculated path for crops

	// inference thresholds
	DetectionThreshold      float64
	ClassificationThreshold float64

	// worker settings
	PipelineQueueSize  int
	NumPipelineWorkers int

	// per-invocation timeout and adapter retry policy
	InvocationTimeout time.Duration
	AdapterRetries    int
	RetryBaseDelay    time.Duration

	// local model paths (DNN); empty disables the local backend
	DetectorModelPath   string
	ClassifierModelPath string
	TaxonomyPath        string

	// remote inference endpoints; set to prefer remote over local
	DetectorURL   string
	ClassifierURL string

	// external tracking store endpoint; empty logs updates locally
	TrackingURL string

	// materialized statistics refresh cadence; 0 disables the schedule
	StatsRefreshInterval time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil || val < 0 || val > 1 {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(envVar string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %s. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "camtrap.db")

	objectStore := getEnvOrDefault("OBJECT_STORE_PATH", filepath.Join(".", "uploads"))
	absObjectStore, err := filepath.Abs(objectStore)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for object store '%s': %w", objectStore, err)
	}

	assetStorage := getEnvOrDefault("ASSET_STORAGE_PATH", filepath.Join(".", "asset_storage"))
	absAssetStorage, err := filepath.Abs(assetStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for asset storage '%s': %w", assetStorage, err)
	}

	cropsSubDir := getEnvOrDefault("CROPS_SUBDIR", DefaultCropsSubDir)
	absCropsPath := filepath.Join(absAssetStorage, cropsSubDir)

	cfg := Config{
		DatabasePath:     dbPath,
		ObjectStorePath:  absObjectStore,
		AssetStoragePath: absAssetStorage,
		CropsPath:        absCropsPath,

		DetectionThreshold:      getEnvFloatOrDefault("DETECTION_THRESHOLD", defaultDetectionThreshold),
		ClassificationThreshold: getEnvFloatOrDefault("CLASSIFICATION_THRESHOLD", defaultClassificationThreshold),

		PipelineQueueSize:  getEnvIntOrDefault("PIPELINE_QUEUE_SIZE", defaultPipelineQueueSize),
		NumPipelineWorkers: getEnvIntOrDefault("NUM_PIPELINE_WORKERS", defaultNumPipelineWorkers),

		InvocationTimeout: getEnvDurationOrDefault("INVOCATION_TIMEOUT", defaultInvocationTimeout),
		AdapterRetries:    getEnvIntOrDefault("ADAPTER_RETRIES", defaultAdapterRetries),
		RetryBaseDelay:    getEnvDurationOrDefault("RETRY_BASE_DELAY", defaultRetryBaseDelay),

		DetectorModelPath:   getEnvOrDefault("DETECTOR_MODEL_PATH", ""),
		ClassifierModelPath: getEnvOrDefault("CLASSIFIER_MODEL_PATH", ""),
		TaxonomyPath:        getEnvOrDefault("TAXONOMY_PATH", ""),

		DetectorURL:   getEnvOrDefault("DETECTOR_URL", ""),
		ClassifierURL: getEnvOrDefault("CLASSIFIER_URL", ""),

		TrackingURL: getEnvOrDefault("TRACKING_URL", ""),

		StatsRefreshInterval: getEnvDurationOrDefault("STATS_REFRESH_INTERVAL", defaultStatsRefreshInterval),
	}

	return cfg, nil
}
