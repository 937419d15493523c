package testsupport

import (
	"path/filepath"
	"testing"

	"montage/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CatalogDB = filepath.Join(base, "catalog.db")
	cfg.Paths.LockFile = filepath.Join(base, "montaged.lock")
	cfg.TTS.BaseURL = "http://127.0.0.1:0"
	return &cfg
}
