package index

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/munin/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "munin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:       "errors/hello.md",
		Category:   "errors",
		Title:      "Hello World",
		Slug:       "hello",
		Checksum:   "abc123",
		Tags:       []string{"go", "test"},
		EntryCount: 1,
		Status:     "active",
		UpdatedAt:  time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("errors/hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	// Upsert with a new checksum replaces, never duplicates.
	row.Checksum = "def456"
	if err := db.UpsertNote(row, "updated body"); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, _ = db.GetChecksum("errors/hello.md")
	if cs != "def456" {
		t.Errorf("checksum = %q, want %q", cs, "def456")
	}
	all, _ := db.AllChecksums()
	if len(all) != 1 {
		t.Errorf("checksums = %v, want 1 row", all)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "errors/del.md", Checksum: "x", UpdatedAt: time.Now()}, "body")

	if err := db.DeleteNote("errors/del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("errors/del.md")
	if cs != "" {
		t.Errorf("checksum after delete = %q, want empty", cs)
	}
}

func TestListNotes_FilterAndPagination(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []NoteRow{
		{Path: "errors/a.md", Category: "errors", Title: "A", Checksum: "1", Tags: []string{"auth"}, UpdatedAt: base.Add(1 * time.Hour)},
		{Path: "errors/b.md", Category: "errors", Title: "B", Checksum: "2", UpdatedAt: base.Add(3 * time.Hour)},
		{Path: "patterns/c.md", Category: "patterns", Title: "C", Checksum: "3", Tags: []string{"auth"}, UpdatedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range rows {
		if err := db.UpsertNote(r, "body"); err != nil {
			t.Fatal(err)
		}
	}

	got, total, err := db.ListNotes(50, 0, "errors", "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("total = %d, rows = %d", total, len(got))
	}
	// Newest first.
	if got[0].Path != "errors/b.md" {
		t.Errorf("order = %q, %q", got[0].Path, got[1].Path)
	}

	got, total, err = db.ListNotes(50, 0, "", "auth")
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("tag filter total = %d", total)
	}
	for _, r := range got {
		if len(r.Tags) == 0 || r.Tags[0] != "auth" {
			t.Errorf("row %s tags = %v", r.Path, r.Tags)
		}
	}

	got, total, err = db.ListNotes(1, 1, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(got) != 1 {
		t.Errorf("pagination: total = %d, rows = %d", total, len(got))
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{
		Path: "errors/timeout.md", Category: "errors", Title: "Connection Timeout",
		Checksum: "1", UpdatedAt: time.Now(),
	}, "The database connection pool exhausts under load.")
	_ = db.UpsertNote(NoteRow{
		Path: "patterns/retry.md", Category: "patterns", Title: "Retry Policy",
		Checksum: "2", UpdatedAt: time.Now(),
	}, "Exponential backoff with jitter.")

	hits, err := db.Search("connection", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "errors/timeout.md" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store := storage.NewMemory()
	_ = store.Write("errors/auth.md", []byte("---\ntitle: Auth Bug\ncategory: errors\n---\nbody\n"))
	_ = store.Write("errors/stale.md", []byte("---\ntitle: Stale\n---\nbody\n"))

	if err := Sync(db, store, testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	all, _ := db.AllChecksums()
	if len(all) != 2 {
		t.Fatalf("indexed = %v, want 2", all)
	}

	// Removing a file on disk removes it from the index on the next sync.
	_ = store.Delete("errors/stale.md")
	if err := Sync(db, store, testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	all, _ = db.AllChecksums()
	if len(all) != 1 {
		t.Errorf("indexed after delete = %v", all)
	}
	if _, ok := all["errors/auth.md"]; !ok {
		t.Error("surviving note missing from index")
	}
}
