package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/internal/catalogdb"
)

// OpenCatalogDB opens a private in-memory SQLite database with the catalog
// schema and seeds it with c (which may be nil). The database is closed when
// the test ends.
func OpenCatalogDB(t *testing.T, c *catalogdb.Catalog) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := catalogdb.Open(catalogdb.DialectSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("failed to open catalog db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := catalogdb.CreateSchema(ctx, db); err != nil {
		t.Fatalf("failed to create catalog schema: %v", err)
	}
	if err := catalogdb.Seed(ctx, db, c); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
	return db
}

// FixturePath joins filename onto the calling package's testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// LoadCatalog reads a catalog fixture from path.
func LoadCatalog(t *testing.T, path string) *catalogdb.Catalog {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read catalog fixture %s: %v", path, err)
	}
	var c catalogdb.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("failed to decode catalog fixture %s: %v", path, err)
	}
	return &c
}

// DemoCatalog returns the catalog bundled with the binary.
func DemoCatalog(t *testing.T) *catalogdb.Catalog {
	t.Helper()

	c, err := catalogdb.DemoCatalog()
	if err != nil {
		t.Fatalf("failed to load demo catalog: %v", err)
	}
	return c
}
