package dataset

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gather-kitchen/nutrition-label-server/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		SnapshotURL:  url,
		DataDir:      dir,
		ParquetPath:  filepath.Join(dir, "fooddata.parquet"),
		MetadataPath: filepath.Join(dir, "fooddata.meta.json"),
		LockFile:     filepath.Join(dir, "fooddata.lock"),
	}
}

func TestEnsureSnapshotDownloads(t *testing.T) {
	content := []byte("parquet-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc123"`)
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "13")
			return
		}
		w.Write(content)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	m := NewManager(cfg, testLogger())

	err := m.EnsureSnapshot(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.ParquetPath)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	meta, err := m.loadMetadata()
	require.NoError(t, err)
	assert.Equal(t, `"abc123"`, meta.ETag)
	assert.Equal(t, int64(len(content)), meta.Size)
	assert.NotEmpty(t, meta.SHA256)
}

func TestEnsureSnapshotSkipsWhenUpToDate(t *testing.T) {
	downloads := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"stable"`)
		if r.Method == http.MethodHead {
			return
		}
		downloads++
		w.Write([]byte("snapshot"))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	m := NewManager(cfg, testLogger())

	require.NoError(t, m.EnsureSnapshot(context.Background()))
	require.NoError(t, m.EnsureSnapshot(context.Background()))

	assert.Equal(t, 1, downloads, "matching ETag should prevent a second download")
}

func TestEnsureSnapshotRedownloadsOnETagChange(t *testing.T) {
	downloads := 0
	etag := `"v1"`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etag)
		if r.Method == http.MethodHead {
			return
		}
		downloads++
		w.Write([]byte("snapshot-" + etag))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	m := NewManager(cfg, testLogger())

	require.NoError(t, m.EnsureSnapshot(context.Background()))
	etag = `"v2"`
	require.NoError(t, m.EnsureSnapshot(context.Background()))

	assert.Equal(t, 2, downloads)
}

func TestEnsureSnapshotDisableRemoteCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when remote checks are disabled")
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.DisableRemoteCheck = true
	require.NoError(t, os.WriteFile(cfg.ParquetPath, []byte("existing"), 0644))

	m := NewManager(cfg, testLogger())
	require.NoError(t, m.EnsureSnapshot(context.Background()))
}

func TestEnsureSnapshotDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	m := NewManager(cfg, testLogger())

	err := m.EnsureSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download snapshot")

	_, statErr := os.Stat(cfg.ParquetPath)
	assert.True(t, os.IsNotExist(statErr), "failed download should not leave a snapshot behind")
}

func TestIgnoreLockRemovesStaleLock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("snapshot"))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.IgnoreLock = true
	require.NoError(t, os.WriteFile(cfg.LockFile, []byte{}, 0644))

	m := NewManager(cfg, testLogger())
	require.NoError(t, m.EnsureSnapshot(context.Background()))

	_, err := os.Stat(cfg.LockFile)
	assert.True(t, os.IsNotExist(err), "lock should be released after download")
}
