package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/munin/internal/checksum"
	"github.com/starford/munin/internal/parser"
	"github.com/starford/munin/internal/storage"
	"github.com/starford/munin/internal/vault"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	infos, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Path] = struct{}{}

		if checksums[info.Path] == info.Checksum {
			continue
		}

		data, err := store.Read(info.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", info.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, info.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", info.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, notePath string, data []byte) error {
	n := parser.Parse(notePath, vault.CategoryOf(notePath), data)
	return db.UpsertNote(NoteRow{
		Path:       notePath,
		Category:   string(n.Category),
		Title:      n.Title,
		Slug:       strings.TrimSuffix(path.Base(notePath), ".md"),
		Checksum:   checksum.Sum(data),
		Tags:       n.Tags,
		Aliases:    n.Aliases,
		EntryCount: n.EntryCount,
		Status:     string(n.Status),
		UpdatedAt:  n.Updated,
	}, n.Body)
}
