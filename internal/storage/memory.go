package storage

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/checksum"
)

// Memory is an in-memory Provider used by tests that exercise matching
// and mutation logic without disk I/O.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	now   func() time.Time
}

// NewMemory creates an empty in-memory vault.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		now:   time.Now,
	}
}

func cleanRel(p string) (string, error) {
	c := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if strings.HasPrefix(c, "../") || strings.HasPrefix(c, "/") || c == ".." {
		return "", fmt.Errorf("storage: %s: %w", p, apperr.ErrPathEscape)
	}
	return c, nil
}

// List returns metadata for every .md file under dir, skipping entries
// inside dot-directories, sorted by path.
func (m *Memory) List(dir string) ([]FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := ""
	if dir != "" {
		c, err := cleanRel(dir)
		if err != nil {
			return nil, err
		}
		prefix = c + "/"
	}

	var out []FileInfo
	for p, data := range m.files {
		if !strings.HasPrefix(p, prefix) || !strings.HasSuffix(p, ".md") {
			continue
		}
		if hidden(p) {
			continue
		}
		out = append(out, FileInfo{
			Path:      p,
			Checksum:  checksum.Sum(data),
			UpdatedAt: m.now(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func hidden(p string) bool {
	for _, seg := range strings.Split(path.Dir(p), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func (m *Memory) Read(p string) ([]byte, error) {
	c, err := cleanRel(p)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[c]
	if !ok {
		return nil, fmt.Errorf("storage: %s: %w", p, apperr.ErrNotFound)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *Memory) Write(p string, content []byte) error {
	c, err := cleanRel(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(content))
	copy(cp, content)
	m.files[c] = cp
	return nil
}

func (m *Memory) Delete(p string) error {
	c, err := cleanRel(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[c]; !ok {
		return fmt.Errorf("storage: %s: %w", p, apperr.ErrNotFound)
	}
	delete(m.files, c)
	return nil
}

func (m *Memory) Move(oldPath, newPath string) error {
	o, err := cleanRel(oldPath)
	if err != nil {
		return err
	}
	n, err := cleanRel(newPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[o]
	if !ok {
		return fmt.Errorf("storage: %s: %w", oldPath, apperr.ErrNotFound)
	}
	m.files[n] = data
	delete(m.files, o)
	return nil
}

func (m *Memory) Exists(p string) bool {
	c, err := cleanRel(p)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[c]
	return ok
}
