package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LoadConfig reads .drift/config.json. A missing file is not an error
// callers should treat as corruption; use Exists() to distinguish an
// uninitialized workspace from one whose config failed to parse.
func (l *Layout) LoadConfig() (Config, error) {
	raw, err := os.ReadFile(l.ConfigPath())
	if err != nil {
		return Config{}, fmt.Errorf("workspace: read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("workspace: parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to .drift/config.json, updating UpdatedAt.
func (l *Layout) SaveConfig(cfg Config) error {
	cfg.UpdatedAt = time.Now().UTC()
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("workspace: marshal config: %w", err)
	}
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return fmt.Errorf("workspace: create workspace root: %w", err)
	}
	if err := os.WriteFile(l.ConfigPath(), raw, 0o644); err != nil {
		return fmt.Errorf("workspace: write config: %w", err)
	}
	return nil
}

// Exists reports whether a .drift/config.json already exists under root.
func (l *Layout) Exists() bool {
	_, err := os.Stat(l.ConfigPath())
	return err == nil
}

// Init creates the full .drift/ directory tree and writes a fresh
// config.json if one is not already present.
func (l *Layout) Init(driftVersion string) error {
	dirs := []string{
		l.root,
		l.PatternsDir("discovered"),
		l.PatternsDir("approved"),
		l.PatternsDir("ignored"),
		l.CallgraphShardsDir(),
		l.ViewsDir(),
		l.SnapshotsDir(),
		l.CacheDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("workspace: create %s: %w", filepath.Base(d), err)
		}
	}
	if l.Exists() {
		return nil
	}
	return l.SaveConfig(DefaultConfig(driftVersion))
}
