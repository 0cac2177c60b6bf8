package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/munin/internal/apperr"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("errors/note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("errors/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestRead_NotFound(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("errors/missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWrite_NoTempLeftovers(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("patterns/a.md", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(s.root, "patterns"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "a.md" {
			t.Errorf("unexpected file after write: %s", e.Name())
		}
	}
}

func TestPathTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../outside.md", "a/../../outside.md", "/etc/passwd"} {
		if err := s.Write(p, []byte("x")); !errors.Is(err, apperr.ErrPathEscape) {
			t.Errorf("Write(%q) err = %v, want ErrPathEscape", p, err)
		}
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrPathEscape) {
			t.Errorf("Read(%q) err = %v, want ErrPathEscape", p, err)
		}
		if s.Exists(p) {
			t.Errorf("Exists(%q) = true", p)
		}
	}
}

func TestList_SkipsDotDirsAndNonMarkdown(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("errors/a.md", []byte("a"))
	_ = s.Write("errors/.archive/old.md", []byte("old"))
	_ = s.Write("errors/readme.txt", []byte("txt"))

	files, err := s.List("errors")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0].Path != "errors/a.md" {
		t.Errorf("files = %+v, want just errors/a.md", files)
	}
	if files[0].Checksum == "" {
		t.Error("checksum not populated")
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("knowledge/old.md", []byte("content"))
	if err := s.Move("knowledge/old.md", "knowledge/.archive/old.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if s.Exists("knowledge/old.md") {
		t.Error("source still exists after move")
	}
	got, err := s.Read("knowledge/.archive/old.md")
	if err != nil || string(got) != "content" {
		t.Errorf("moved file: %q, %v", got, err)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("research/del.md", []byte("bye"))
	if err := s.Delete("research/del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("research/del.md") {
		t.Error("file exists after delete")
	}
}
