package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	core "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	dashboardpkg "github.com/goliatone/go-mesh-dashboard/pkg/dashboard"
)

// controller builds a dashboard session from the global flags.
func (g *globals) controller() (*core.Controller, error) {
	cfg := dashboardpkg.Config{
		BaseURL:         g.BaseURL,
		APIKey:          g.APIKey,
		CacheDir:        g.CacheDir,
		Locale:          g.Locale,
		Instrumentation: core.LogInstrumentation{},
	}
	if g.Manifest != "" {
		doc, err := core.ReadManifest(g.Manifest)
		if err != nil {
			return nil, err
		}
		cfg.Manifest = doc
	}
	if g.CacheDir != "" {
		if err := os.MkdirAll(g.CacheDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create cache dir", j.KV("path", g.CacheDir))
		}
	}
	return dashboardpkg.New(cfg)
}

// loadState reads the local cache and, when signed in, syncs with the
// server before returning. No telemetry is fetched.
func loadState(ctx context.Context, ctrl *core.Controller) core.SyncOutcome {
	store := ctrl.Store()
	store.Load(ctx)
	if !store.Persistence().HasRemote() {
		return core.SyncLocalOnly
	}
	outcome := store.Sync(ctx)
	log.Info(ctx, "dashboard state synced", j.KV("outcome", outcome))
	return outcome
}

// flush pushes any debounced remote write before the process exits.
func flush(ctx context.Context, ctrl *core.Controller) error {
	if err := ctrl.Store().Persistence().Flush(ctx); err != nil {
		return errors.Wrap(err, "flush remote write")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
