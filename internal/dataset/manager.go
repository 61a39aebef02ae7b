// Package dataset keeps the local FoodData Central parquet snapshot
// present and fresh. Downloads are coordinated through a lock file so
// concurrent instances don't fetch the snapshot twice.
package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gather-kitchen/nutrition-label-server/internal/config"
)

// Metadata describes the snapshot currently on disk.
type Metadata struct {
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size"`
}

// Manager handles snapshot downloading and metadata management.
type Manager struct {
	snapshotURL  string
	parquetPath  string
	metadataPath string
	lockPath     string
	config       *config.Config
	log          *slog.Logger
}

// NewManager creates a snapshot manager from configuration.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		snapshotURL:  cfg.SnapshotURL,
		parquetPath:  cfg.ParquetPath,
		metadataPath: cfg.MetadataPath,
		lockPath:     cfg.LockFile,
		config:       cfg,
		log:          logger,
	}
}

// EnsureSnapshot makes sure a usable snapshot exists locally, downloading
// or refreshing it when needed.
func (m *Manager) EnsureSnapshot(ctx context.Context) error {
	start := time.Now()
	m.log.Info("Ensuring snapshot is available", "parquet_path", m.parquetPath)

	if _, err := os.Stat(m.parquetPath); err == nil {
		if m.config.DisableRemoteCheck {
			m.log.Info("Remote checks disabled, using local snapshot", "duration", time.Since(start))
			return nil
		}

		upToDate, err := m.isUpToDate(ctx)
		if err != nil {
			m.log.Warn("Failed to verify snapshot freshness", "error", err)
		}
		if upToDate {
			m.log.Info("Snapshot is up-to-date", "duration", time.Since(start))
			return nil
		}
	}

	if err := m.downloadWithLock(ctx); err != nil {
		return fmt.Errorf("failed to download snapshot: %w", err)
	}

	m.log.Info("Snapshot ensured", "duration", time.Since(start))
	return nil
}

// isUpToDate compares local metadata against a HEAD request to the
// snapshot URL: ETag when both sides have one, size otherwise.
func (m *Manager) isUpToDate(ctx context.Context) (bool, error) {
	localMeta, err := m.loadMetadata()
	if err != nil {
		m.log.Debug("No local metadata found", "error", err)
		return false, nil
	}

	remoteMeta, err := m.remoteMetadata(ctx)
	if err != nil {
		return false, err
	}

	if remoteMeta.ETag != "" && localMeta.ETag != "" {
		return remoteMeta.ETag == localMeta.ETag, nil
	}
	return remoteMeta.Size == localMeta.Size, nil
}

func (m *Manager) remoteMetadata(ctx context.Context) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.snapshotURL, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HEAD request failed with status: %d", resp.StatusCode)
	}

	return &Metadata{
		ETag: resp.Header.Get("ETag"),
		Size: resp.ContentLength,
	}, nil
}

// downloadWithLock downloads the snapshot while holding the lock file.
// When another instance holds it, this one waits for that download to
// land instead of duplicating it.
func (m *Manager) downloadWithLock(ctx context.Context) error {
	if m.config.IgnoreLock {
		if _, err := os.Stat(m.lockPath); err == nil {
			m.log.Warn("IGNORE_LOCK enabled, removing existing lock file", "lock_path", m.lockPath)
			if err := os.Remove(m.lockPath); err != nil {
				m.log.Warn("Failed to remove lock file", "error", err)
			}
		}
	}

	lockFile, err := acquireLock(m.lockPath)
	if err != nil {
		if !m.config.IgnoreLock {
			m.log.Info("Another instance is downloading, waiting", "lock_path", m.lockPath)
			return m.waitForDownload(ctx)
		}
		m.log.Warn("IGNORE_LOCK enabled but lock unavailable, proceeding anyway", "error", err)
	}
	if lockFile != nil {
		defer releaseLock(lockFile, m.lockPath)
	}

	if err := os.MkdirAll(filepath.Dir(m.parquetPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmpPath := m.parquetPath + ".tmp"
	if err := m.downloadFile(ctx, tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	sha, err := fileSHA256(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to compute SHA256: %w", err)
	}
	stat, err := os.Stat(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to stat file: %w", err)
	}

	etag := ""
	if remoteMeta, err := m.remoteMetadata(ctx); err == nil {
		etag = remoteMeta.ETag
	}
	if err := m.saveMetadata(&Metadata{
		SHA256:       sha,
		DownloadedAt: time.Now().UTC(),
		ETag:         etag,
		Size:         stat.Size(),
	}); err != nil {
		m.log.Warn("Failed to save metadata", "error", err)
	}

	if err := os.Rename(tmpPath, m.parquetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	m.log.Info("Snapshot downloaded", "size", stat.Size(), "sha256", sha[:16]+"...")
	return nil
}

func (m *Manager) downloadFile(ctx context.Context, filePath string) error {
	start := time.Now()
	m.log.Info("Downloading snapshot", "url", m.snapshotURL, "path", filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.snapshotURL, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		return err
	}

	m.log.Info("Download completed", "bytes", written, "duration", time.Since(start))
	return nil
}

func (m *Manager) waitForDownload(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	timeout := time.After(10 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("timeout waiting for download by other instance")
		case <-ticker.C:
			if _, err := os.Stat(m.parquetPath); err == nil {
				m.log.Info("Snapshot now available after other instance completed")
				return nil
			}
		}
	}
}

func (m *Manager) loadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(m.metadataPath)
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Manager) saveMetadata(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.metadataPath, data, 0644)
}

// acquireLock takes an exclusive lock via O_CREATE|O_EXCL.
func acquireLock(lockPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
}

func releaseLock(f *os.File, lockPath string) {
	f.Close()
	os.Remove(lockPath)
}

func fileSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
