package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration for the nutrition label server
type Config struct {
	// Auth
	AuthToken string

	// Food database snapshot (local DuckDB engine)
	SnapshotURL  string
	DataDir      string
	ParquetPath  string
	MetadataPath string
	LockFile     string

	// Remote FoodData Central API (used when FDC_API_KEY is set)
	FDCBaseURL string
	FDCApiKey  string

	// Record store
	StorePath string

	// Discrepancy tolerance for override review
	DiscrepancyFloor   float64
	DiscrepancyPercent float64

	// Behavior toggles
	DisableRemoteCheck bool
	IgnoreLock         bool

	// Server
	Port string
}

// Load reads configuration from environment variables
func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		AuthToken:          getEnv("AUTH_TOKEN", "super-secret-token"),
		SnapshotURL:        getEnv("FDC_SNAPSHOT_URL", "https://fdc.nal.usda.gov/fdc-datasets/foundation-sr-legacy.parquet"),
		DataDir:            dataDir,
		ParquetPath:        getEnv("PARQUET_PATH", filepath.Join(dataDir, "fooddata.parquet")),
		MetadataPath:       getEnv("METADATA_PATH", filepath.Join(dataDir, "metadata.json")),
		LockFile:           getEnv("LOCK_FILE", filepath.Join(dataDir, "refresh.lock")),
		FDCBaseURL:         getEnv("FDC_API_URL", "https://api.nal.usda.gov/fdc"),
		FDCApiKey:          os.Getenv("FDC_API_KEY"),
		StorePath:          getEnv("STORE_PATH", filepath.Join(dataDir, "labels.db")),
		DiscrepancyFloor:   getEnvFloat("DISCREPANCY_FLOOR", 2),
		DiscrepancyPercent: getEnvFloat("DISCREPANCY_PERCENT", 0.05),
		DisableRemoteCheck: os.Getenv("DISABLE_REMOTE_CHECK") == "true",
		IgnoreLock:         os.Getenv("IGNORE_LOCK") == "true",
		Port:               getEnv("PORT", "8080"),
	}
}

// UseRemoteLookup reports whether ingredient lookups should go to the
// FoodData Central API instead of the local snapshot.
func (c *Config) UseRemoteLookup() bool {
	return c.FDCApiKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
