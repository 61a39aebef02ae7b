package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

var configEnvVars = []string{
	"AUTH_TOKEN", "FDC_SNAPSHOT_URL", "DATA_DIR", "PARQUET_PATH",
	"METADATA_PATH", "LOCK_FILE", "FDC_API_URL", "FDC_API_KEY",
	"STORE_PATH", "DISCREPANCY_FLOOR", "DISCREPANCY_PERCENT",
	"DISABLE_REMOTE_CHECK", "IGNORE_LOCK", "PORT",
}

func withCleanEnv(t *testing.T, envVars map[string]string, fn func()) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}
	fn()
}

func TestLoad_Defaults(t *testing.T) {
	withCleanEnv(t, nil, func() {
		cfg := Load()

		assert.Equal(t, "super-secret-token", cfg.AuthToken)
		assert.Equal(t, "./data", cfg.DataDir)
		assert.Equal(t, "data/fooddata.parquet", cfg.ParquetPath)
		assert.Equal(t, "data/metadata.json", cfg.MetadataPath)
		assert.Equal(t, "data/refresh.lock", cfg.LockFile)
		assert.Equal(t, "data/labels.db", cfg.StorePath)
		assert.Equal(t, "https://api.nal.usda.gov/fdc", cfg.FDCBaseURL)
		assert.Equal(t, "", cfg.FDCApiKey)
		assert.Equal(t, 2.0, cfg.DiscrepancyFloor)
		assert.Equal(t, 0.05, cfg.DiscrepancyPercent)
		assert.False(t, cfg.DisableRemoteCheck)
		assert.False(t, cfg.IgnoreLock)
		assert.Equal(t, "8080", cfg.Port)
	})
}

func TestLoad_CustomValues(t *testing.T) {
	withCleanEnv(t, map[string]string{
		"AUTH_TOKEN":           "custom-token",
		"DATA_DIR":             "/custom/data",
		"FDC_API_KEY":          "demo-key",
		"DISCREPANCY_FLOOR":    "1.5",
		"DISCREPANCY_PERCENT":  "0.02",
		"DISABLE_REMOTE_CHECK": "true",
		"PORT":                 "3000",
	}, func() {
		cfg := Load()

		assert.Equal(t, "custom-token", cfg.AuthToken)
		assert.Equal(t, "/custom/data", cfg.DataDir)
		assert.Equal(t, "/custom/data/fooddata.parquet", cfg.ParquetPath)
		assert.Equal(t, "/custom/data/labels.db", cfg.StorePath)
		assert.Equal(t, "demo-key", cfg.FDCApiKey)
		assert.Equal(t, 1.5, cfg.DiscrepancyFloor)
		assert.Equal(t, 0.02, cfg.DiscrepancyPercent)
		assert.True(t, cfg.DisableRemoteCheck)
		assert.Equal(t, "3000", cfg.Port)
	})
}

func TestLoad_InvalidFloatFallsBack(t *testing.T) {
	withCleanEnv(t, map[string]string{
		"DISCREPANCY_FLOOR": "not-a-number",
	}, func() {
		cfg := Load()
		assert.Equal(t, 2.0, cfg.DiscrepancyFloor)
	})
}

func TestUseRemoteLookup(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.UseRemoteLookup())

	cfg.FDCApiKey = "demo-key"
	assert.True(t, cfg.UseRemoteLookup())
}
