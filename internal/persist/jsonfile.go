package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"konto/internal/core"
)

// JSONGateway stores snapshots as a single pretty-printed JSON file. Saves
// go through a temp file in the same directory followed by a rename, so a
// reader always sees either the old snapshot or the new one.
type JSONGateway struct {
	path string
	now  func() time.Time
}

func NewJSONGateway(path string) *JSONGateway {
	return &JSONGateway{path: path, now: time.Now}
}

// WithClock overrides the timestamp source used for backup names.
func (g *JSONGateway) WithClock(now func() time.Time) *JSONGateway {
	g.now = now
	return g
}

func (g *JSONGateway) Save(_ context.Context, snap core.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return persistErr("save", fmt.Errorf("marshal snapshot: %w", err))
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return persistErr("save", fmt.Errorf("create data directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(g.path)+".tmp-*")
	if err != nil {
		return persistErr("save", fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return persistErr("save", fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return persistErr("save", fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return persistErr("save", fmt.Errorf("chmod temp file: %w", err))
	}
	if err := os.Rename(tmpName, g.path); err != nil {
		os.Remove(tmpName)
		return persistErr("save", fmt.Errorf("rename temp file: %w", err))
	}
	return nil
}

func (g *JSONGateway) Load(_ context.Context) (core.Snapshot, error) {
	data, err := os.ReadFile(g.path)
	if os.IsNotExist(err) {
		return core.Snapshot{}, persistErr("load", ErrNoSnapshot)
	}
	if err != nil {
		return core.Snapshot{}, persistErr("load", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.Snapshot{}, persistErr("load", fmt.Errorf("decode snapshot: %w", err))
	}
	return snap, nil
}

func (g *JSONGateway) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(g.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, persistErr("stat", err)
	}
	return true, nil
}

func (g *JSONGateway) Backup(_ context.Context) (string, error) {
	data, err := os.ReadFile(g.path)
	if os.IsNotExist(err) {
		return "", persistErr("backup", ErrNoSnapshot)
	}
	if err != nil {
		return "", persistErr("backup", err)
	}

	backupPath := fmt.Sprintf("%s.%s.bak", g.path, g.now().UTC().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", persistErr("backup", err)
	}
	return backupPath, nil
}

func (g *JSONGateway) Clear(_ context.Context) error {
	if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
		return persistErr("clear", err)
	}
	return nil
}
