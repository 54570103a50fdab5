package configstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

const (
	defaultHistoryHours = 24
	maxHistoryHours     = 168
	defaultSearchLimit  = 20
	maxSearchLimit      = 50
	maxBodyBytes        = 4 << 20
)

// Options configures a Server. Repository defaults to an in-memory
// store; a nil Auth treats every request as anonymous.
type Options struct {
	Repository Repository
	Auth       Authenticator
	Limits     dashboard.Limits
	// Telemetry and Nodes back the node endpoints. Either may be nil,
	// in which case its routes are not mounted.
	Telemetry dashboard.TelemetrySource
	Nodes     dashboard.NodeDirectory
	Now       func() time.Time
}

// Server holds the handlers for the dashboard backend contract.
type Server struct {
	repo      Repository
	auth      Authenticator
	limits    dashboard.Limits
	telemetry dashboard.TelemetrySource
	nodes     dashboard.NodeDirectory
	now       func() time.Time
}

func NewServer(opts Options) *Server {
	if opts.Repository == nil {
		opts.Repository = NewMemoryRepository()
	}
	if opts.Auth == nil {
		opts.Auth = anonymous
	}
	if opts.Limits.MaxDashboards <= 0 {
		opts.Limits.MaxDashboards = dashboard.DefaultMaxDashboards
	}
	if opts.Limits.MaxWidgets <= 0 {
		opts.Limits.MaxWidgets = dashboard.DefaultMaxWidgets
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		repo:      opts.Repository,
		auth:      opts.Auth,
		limits:    opts.Limits,
		telemetry: opts.Telemetry,
		nodes:     opts.Nodes,
		now:       opts.Now,
	}
}

// GetConfig returns the caller's saved config, 204 when none exists.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, ok := s.auth(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	ctx := r.Context()
	cfg, found, err := s.repo.Get(ctx, user)
	if err != nil {
		// A broken record reads as "nothing saved" so the client falls
		// back to its local copy.
		log.Error(ctx, errors.Wrap(err, "load dashboard config", j.KV("user", user)))
		found = false
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if cfg.Dashboards == nil {
		cfg.Dashboards = []json.RawMessage{}
	}
	if len(cfg.ActiveDashboardID) == 0 {
		cfg.ActiveDashboardID = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutConfig validates and upserts the caller's whole config.
func (s *Server) PutConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, ok := s.auth(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	ctx := r.Context()
	cfg, msg := s.parseConfig(r.Body)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	cfg.UpdatedAt = float64(s.now().UnixNano()) / float64(time.Second)
	if err := s.repo.Put(ctx, user, cfg); err != nil {
		configSaves.WithLabelValues("failed").Inc()
		log.Error(ctx, errors.Wrap(err, "save dashboard config", j.KV("user", user)))
		writeError(w, http.StatusInternalServerError, "Failed to save dashboard config")
		return
	}
	configSaves.WithLabelValues("saved").Inc()
	log.Info(ctx, "dashboard config saved", j.MKV{"user": user, "dashboards": len(cfg.Dashboards)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// DeleteConfig removes the caller's config.
func (s *Server) DeleteConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, ok := s.auth(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	ctx := r.Context()
	if err := s.repo.Delete(ctx, user); err != nil {
		log.Error(ctx, errors.Wrap(err, "delete dashboard config", j.KV("user", user)))
		writeError(w, http.StatusInternalServerError, "Failed to delete dashboard config")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseConfig returns a client-facing message when the body is rejected.
func (s *Server) parseConfig(body io.Reader) (StoredConfig, string) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return StoredConfig{}, "Missing 'dashboards' in request body"
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil || len(data) == 0 {
		return StoredConfig{}, "Missing 'dashboards' in request body"
	}
	rawDashboards, ok := data["dashboards"]
	if !ok {
		return StoredConfig{}, "Missing 'dashboards' in request body"
	}
	if !isJSONKind(rawDashboards, '[') {
		return StoredConfig{}, "'dashboards' must be a list"
	}
	var dashboards []json.RawMessage
	if err := json.Unmarshal(rawDashboards, &dashboards); err != nil {
		return StoredConfig{}, "'dashboards' must be a list"
	}
	if len(dashboards) > s.limits.MaxDashboards {
		return StoredConfig{}, fmt.Sprintf("Maximum %d dashboards allowed", s.limits.MaxDashboards)
	}
	for _, d := range dashboards {
		if !isJSONKind(d, '{') {
			return StoredConfig{}, "Each dashboard must be an object"
		}
		var shape struct {
			Widgets json.RawMessage `json:"widgets"`
		}
		if err := json.Unmarshal(d, &shape); err != nil {
			return StoredConfig{}, "Each dashboard must be an object"
		}
		if !isJSONKind(shape.Widgets, '[') {
			continue
		}
		var widgets []json.RawMessage
		if err := json.Unmarshal(shape.Widgets, &widgets); err == nil && len(widgets) > s.limits.MaxWidgets {
			return StoredConfig{}, fmt.Sprintf("Maximum %d widgets per dashboard", s.limits.MaxWidgets)
		}
	}
	active := data["active_dashboard_id"]
	if len(active) == 0 {
		active = json.RawMessage("null")
	}
	return StoredConfig{Dashboards: dashboards, ActiveDashboardID: active}, ""
}

func isJSONKind(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open
}

// BatchTelemetry serves latest telemetry for up to 50 nodes.
func (s *Server) BatchTelemetry(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	var req map[string]json.RawMessage
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || json.Unmarshal(raw, &req) != nil || req["node_ids"] == nil {
		writeError(w, http.StatusBadRequest, "Missing node_ids in request body")
		return
	}
	var nodeIDs []string
	if !isJSONKind(req["node_ids"], '[') || json.Unmarshal(req["node_ids"], &nodeIDs) != nil || len(nodeIDs) == 0 {
		writeError(w, http.StatusBadRequest, "node_ids must be a non-empty list")
		return
	}
	if len(nodeIDs) > dashboard.MaxBatchNodes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d nodes per request", dashboard.MaxBatchNodes))
		return
	}
	data, err := s.telemetry.FetchTelemetry(ctx, nodeIDs)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "batch node telemetry", j.KV("nodes", len(nodeIDs))))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": data})
}

// TelemetryHistory serves a node's series; hours defaults to 24 and is
// clamped to [1, 168].
func (s *Server) TelemetryHistory(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	ctx := r.Context()
	nodeID := p.ByName("node_id")
	hours := queryInt(r, "hours", defaultHistoryHours)
	hours = max(1, min(maxHistoryHours, hours))
	series, err := s.telemetry.FetchHistory(ctx, nodeID, hours)
	if errors.Is(err, dashboard.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if err != nil {
		log.Error(ctx, errors.Wrap(err, "node telemetry history", j.KV("node", nodeID)))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if series == nil {
		series = dashboard.HistorySeries{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": series})
}

// SearchNodes serves the node picker; limit defaults to 20 and is
// clamped to [1, 50].
func (s *Server) SearchNodes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := queryInt(r, "limit", defaultSearchLimit)
	limit = max(1, min(maxSearchLimit, limit))
	nodes, err := s.nodes.SearchNodes(ctx, query, limit)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "node search", j.KV("query", query)))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if nodes == nil {
		nodes = []dashboard.NodeSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

// queryInt falls back to def when the parameter is missing or not an integer.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
