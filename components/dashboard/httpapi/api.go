package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/queries"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"
)

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	CreateDashboard gocommand.Commander[commands.CreateDashboardInput]
	SwitchDashboard gocommand.Commander[commands.SwitchDashboardInput]
	RenameDashboard gocommand.Commander[commands.RenameDashboardInput]
	DeleteDashboard gocommand.Commander[commands.DeleteDashboardInput]
	AddWidget       gocommand.Commander[commands.AddWidgetInput]
	UpdateWidget    gocommand.Commander[commands.UpdateWidgetInput]
	RemoveWidget    gocommand.Commander[commands.RemoveWidgetInput]
	MoveWidget      gocommand.Commander[commands.MoveWidgetInput]
	ResizeWidget    gocommand.Commander[commands.ResizeWidgetInput]
	SetChartHours   gocommand.Commander[commands.SetChartHoursInput]
	Refresh         gocommand.Commander[commands.RefreshDashboardInput]

	Layout     gocommand.Querier[queries.LayoutInput, queries.Layout]
	WidgetView gocommand.Querier[queries.WidgetViewInput, queries.WidgetViewResult]
	Catalog    gocommand.Querier[queries.CatalogInput, queries.CatalogResult]
	Nodes      gocommand.Querier[queries.NodeSearchInput, []dashboard.NodeSummary]
}

func (h *Handlers) HandleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var payload commands.CreateDashboardInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.CreateDashboard.Execute(r.Context(), payload); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLayout(w, r, http.StatusCreated)
}

func (h *Handlers) HandleSwitchDashboard(w http.ResponseWriter, r *http.Request, dashboardID string) {
	if err := h.SwitchDashboard.Execute(r.Context(), commands.SwitchDashboardInput{DashboardID: dashboardID}); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLayout(w, r, http.StatusOK)
}

func (h *Handlers) HandleRenameDashboard(w http.ResponseWriter, r *http.Request) {
	var payload commands.RenameDashboardInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.RenameDashboard.Execute(r.Context(), payload); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLayout(w, r, http.StatusOK)
}

// HandleDeleteDashboard deletes the active dashboard. The caller confirms
// with ?confirm=true.
func (h *Handlers) HandleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.DeleteDashboard.Execute(r.Context(), commands.DeleteDashboardInput{Confirmed: confirmed}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleAddWidget(w http.ResponseWriter, r *http.Request) {
	var spec dashboard.WidgetSpec
	if !decode(w, r, &spec) {
		return
	}
	if err := h.AddWidget.Execute(r.Context(), commands.AddWidgetInput{Spec: spec}); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLayout(w, r, http.StatusCreated)
}

func (h *Handlers) HandleUpdateWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	var spec dashboard.WidgetSpec
	if !decode(w, r, &spec) {
		return
	}
	if err := h.UpdateWidget.Execute(r.Context(), commands.UpdateWidgetInput{WidgetID: widgetID, Spec: spec}); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLayout(w, r, http.StatusOK)
}

func (h *Handlers) HandleRemoveWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	input := commands.RemoveWidgetInput{WidgetID: widgetID}
	if err := h.RemoveWidget.Execute(r.Context(), input); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleMoveWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	var payload commands.MoveWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	payload.WidgetID = widgetID
	if err := h.MoveWidget.Execute(r.Context(), payload); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLayout(w, r, http.StatusOK)
}

func (h *Handlers) HandleResizeWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	var payload commands.ResizeWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	payload.WidgetID = widgetID
	if err := h.ResizeWidget.Execute(r.Context(), payload); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLayout(w, r, http.StatusOK)
}

func (h *Handlers) HandleSetChartHours(w http.ResponseWriter, r *http.Request, widgetID string) {
	var payload commands.SetChartHoursInput
	if !decode(w, r, &payload) {
		return
	}
	payload.WidgetID = widgetID
	if err := h.SetChartHours.Execute(r.Context(), payload); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh nudges the refresh loop, or refreshes inline with ?wait=true.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if err := h.Refresh.Execute(r.Context(), commands.RefreshDashboardInput{Wait: wait}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleLayout(w http.ResponseWriter, r *http.Request) {
	h.writeLayout(w, r, http.StatusOK)
}

// HandleWidgetView returns a widget body; ?format=html returns the
// rendered template instead of JSON.
func (h *Handlers) HandleWidgetView(w http.ResponseWriter, r *http.Request, widgetID string) {
	asHTML := r.URL.Query().Get("format") == "html"
	res, err := h.WidgetView.Query(r.Context(), queries.WidgetViewInput{WidgetID: widgetID, HTML: asHTML})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if asHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.HTML))
		return
	}
	writeJSON(w, http.StatusOK, res.View)
}

func (h *Handlers) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = dashboard.ViewerFrom(r.Context()).Locale
	}
	res, err := h.Catalog.Query(r.Context(), queries.CatalogInput{Locale: locale})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSearchNodes backs the node picker: ?q=<text>&limit=<n>.
func (h *Handlers) HandleSearchNodes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be an integer"})
			return
		}
		limit = n
	}
	nodes, err := h.Nodes.Query(r.Context(), queries.NodeSearchInput{Query: r.URL.Query().Get("q"), Limit: limit})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

func (h *Handlers) writeLayout(w http.ResponseWriter, r *http.Request, status int) {
	if h.Layout == nil {
		w.WriteHeader(status)
		return
	}
	layout, err := h.Layout.Query(r.Context(), queries.LayoutInput{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, layout)
}

type errorBody struct {
	Error  string            `json:"error"`
	Notice *dashboard.Notice `json:"notice,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	return true
}

// StatusFor maps engine errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrLimitExceeded),
		errors.Is(err, dashboard.ErrPolicy),
		errors.Is(err, dashboard.ErrOverlap),
		errors.Is(err, dashboard.ErrGestureActive):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case errors.Is(err, dashboard.ErrFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}
	if notice, ok := dashboard.NoticeFor(err); ok {
		body.Notice = &notice
	}
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), err)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
