package testsupport

import (
	"testing"

	"montage/internal/catalog"
	"montage/internal/config"
)

// NewCatalog opens a fresh catalog store on the config's database path and
// closes it when the test finishes.
func NewCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.Paths.CatalogDB)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog: %v", err)
		}
	})
	return store
}
