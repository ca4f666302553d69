package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store is the on-disk persistence for a Repository: one JSON file per
// pattern, grouped into a subdirectory per status, written transactionally
// via write-to-temp-then-rename (§4.2).
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore roots persistence at dir (typically .drift/patterns).
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger.With("component", "pattern-store")}
}

func (s *Store) statusDir(status Status) string {
	return filepath.Join(s.root, string(status))
}

func (s *Store) patternPath(p Pattern) string {
	name := p.ID
	if name == "" {
		name = p.Name
	}
	return filepath.Join(s.statusDir(p.Status), sanitizeFilename(name)+".json")
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "-")
	return replacer.Replace(name)
}

// LoadAll reads every pattern JSON file under root's status subdirectories.
// Unreadable or malformed files are skipped with a warning rather than
// failing the whole load.
func (s *Store) LoadAll(ctx context.Context) ([]Pattern, error) {
	var out []Pattern
	statuses := []Status{StatusDiscovered, StatusApproved, StatusIgnored}
	for _, status := range statuses {
		dir := s.statusDir(status)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			s.logger.Warn("could not read status directory", "dir", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				s.logger.Warn("could not read pattern file", "path", path, "error", err)
				continue
			}
			var p Pattern
			if err := json.Unmarshal(data, &p); err != nil {
				s.logger.Warn("could not parse pattern file", "path", path, "error", err)
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// SaveAll writes every pattern to its status directory, one file at a
// time, each via write-to-temp-then-rename so a crash mid-write never
// leaves a half-written pattern file behind.
func (s *Store) SaveAll(ctx context.Context, patterns []Pattern) error {
	dirs := map[Status]bool{}
	for _, p := range patterns {
		dirs[p.Status] = true
	}
	for status := range dirs {
		if err := os.MkdirAll(s.statusDir(status), 0o755); err != nil {
			return fmt.Errorf("pattern store: mkdir %s: %w", s.statusDir(status), err)
		}
	}

	for _, p := range patterns {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.saveOne(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveOne(p Pattern) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("pattern store: marshal %s: %w", p.ID, err)
	}
	final := s.patternPath(p)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("pattern store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("pattern store: rename %s -> %s: %w", tmp, final, err)
	}
	return nil
}

// DeleteFile removes the persisted file for a pattern that no longer
// belongs to status (e.g. after a status transition moved it elsewhere).
func (s *Store) DeleteFile(p Pattern) error {
	path := s.patternPath(p)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pattern store: remove %s: %w", path, err)
	}
	return nil
}
