package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Store persists memo indices between runs.
type Store interface {
	Load(ctx context.Context) (map[string]int, error)
	Save(ctx context.Context, indices map[string]int) error
}

// FileStore stores memo indices in a local JSON file.
type FileStore struct {
	Path string
}

type stateRecord struct {
	Indices   map[string]int `json:"indices"`
	UpdatedAt string         `json:"updated_at"`
}

func (s *FileStore) Load(ctx context.Context) (map[string]int, error) {
	if s == nil || s.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read probe state: %w", err)
	}

	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse probe state: %w", err)
	}
	return rec.Indices, nil
}

func (s *FileStore) Save(ctx context.Context, indices map[string]int) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create probe state dir: %w", err)
		}
	}

	rec := stateRecord{
		Indices:   indices,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal probe state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write probe state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename probe state: %w", err)
	}
	return nil
}

// StateTable is the subset of the Postgres store used for memo state.
type StateTable interface {
	LoadProbeState(ctx context.Context, name string) (map[string]int, error)
	SaveProbeState(ctx context.Context, name string, indices map[string]int) error
}

// DBStore stores memo indices in the probe_state table.
type DBStore struct {
	Table StateTable
	Name  string
}

func (s *DBStore) Load(ctx context.Context) (map[string]int, error) {
	if s == nil || s.Table == nil {
		return nil, nil
	}
	return s.Table.LoadProbeState(ctx, s.Name)
}

func (s *DBStore) Save(ctx context.Context, indices map[string]int) error {
	if s == nil || s.Table == nil {
		return nil
	}
	return s.Table.SaveProbeState(ctx, s.Name, indices)
}

// LoadInto restores memos from store. A failed load leaves memos at zero.
func LoadInto(ctx context.Context, store Store, memos *Memos, logger *zap.Logger) {
	if store == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	indices, err := store.Load(ctx)
	if err != nil {
		logger.Warn("load probe state failed", zap.Error(err))
		return
	}
	memos.Restore(indices)
	logger.Debug("probe state loaded", zap.Int("memos", len(indices)))
}

// SaveFrom persists the current memo indices.
func SaveFrom(ctx context.Context, store Store, memos *Memos) error {
	if store == nil {
		return nil
	}
	if err := store.Save(ctx, memos.Snapshot()); err != nil {
		return fmt.Errorf("save probe state: %w", err)
	}
	return nil
}
