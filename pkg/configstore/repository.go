package configstore

import (
	"context"
	"encoding/json"
	"sync"
)

// StoredConfig is one user's saved dashboards. Dashboards are kept as
// raw objects; the server never interprets widget contents.
type StoredConfig struct {
	Dashboards        []json.RawMessage `json:"dashboards"`
	ActiveDashboardID json.RawMessage   `json:"active_dashboard_id"`
	UpdatedAt         float64           `json:"-"`
}

// Repository persists one config per user as a whole-collection upsert.
type Repository interface {
	Get(ctx context.Context, userID string) (StoredConfig, bool, error)
	Put(ctx context.Context, userID string, cfg StoredConfig) error
	Delete(ctx context.Context, userID string) error
}

// MemoryRepository keeps configs in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	configs map[string]StoredConfig
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{configs: make(map[string]StoredConfig)}
}

func (r *MemoryRepository) Get(_ context.Context, userID string) (StoredConfig, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[userID]
	if !ok {
		return StoredConfig{}, false, nil
	}
	return cloneConfig(cfg), true, nil
}

func (r *MemoryRepository) Put(_ context.Context, userID string, cfg StoredConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[userID] = cloneConfig(cfg)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, userID)
	return nil
}

func cloneConfig(cfg StoredConfig) StoredConfig {
	out := StoredConfig{
		Dashboards:        make([]json.RawMessage, len(cfg.Dashboards)),
		ActiveDashboardID: append(json.RawMessage(nil), cfg.ActiveDashboardID...),
		UpdatedAt:         cfg.UpdatedAt,
	}
	for i, d := range cfg.Dashboards {
		out.Dashboards[i] = append(json.RawMessage(nil), d...)
	}
	return out
}
