// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/parser"
	"github.com/starford/munin/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "munin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteNote renders a note into the given store and returns its path.
func WriteNote(t *testing.T, store storage.Provider, n *models.Note) string {
	t.Helper()
	if n.Created.IsZero() {
		n.Created = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	}
	if n.Updated.IsZero() {
		n.Updated = n.Created
	}
	if n.EntryCount == 0 {
		n.EntryCount = 1
	}
	if n.Status == "" {
		n.Status = models.StatusActive
	}
	if err := store.Write(n.Path, parser.Render(n)); err != nil {
		t.Fatal(err)
	}
	return n.Path
}

// ReadNote reads and parses the note at path from the store.
func ReadNote(t *testing.T, store storage.Provider, path string) *models.Note {
	t.Helper()
	data, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	return parser.Parse(path, "", data)
}

// FixedClock returns a clock function pinned to a deterministic instant.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
