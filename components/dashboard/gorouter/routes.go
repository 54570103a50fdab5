package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	router "github.com/goliatone/go-router"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"

	"github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-mesh-dashboard/components/dashboard/queries"
)

// ViewerResolver converts a router.Context into a dashboard.Viewer.
type ViewerResolver func(router.Context) dashboard.Viewer

// Config wires go-router with the dashboard controller and its command API.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *dashboard.Controller
	API            *httpapi.Handlers
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Layout       string
	Dashboards   string
	DashboardID  string
	Widgets      string
	WidgetID     string
	WidgetView   string
	WidgetMove   string
	WidgetResize string
	WidgetHours  string
	Refresh      string
	Catalog      string
	Nodes        string
	WebSocket    string
}

// Register mounts dashboard routes (JSON, HTML fragments, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/mesh"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = defaultViewerResolver
	}
	api := cfg.API
	if api == nil {
		api = NewHandlers(cfg.Controller, cfg.Controller.Board())
	}
	group := cfg.Router.Group(base)
	h := &routeHandlers{api: api, resolver: resolver}

	group.Get(routes.Layout, router.WrapHandler(h.layout))
	group.Post(routes.Dashboards, router.WrapHandler(h.createDashboard))
	group.Post(routes.DashboardID, router.WrapHandler(h.dashboardAction))
	group.Delete(routes.Dashboards, router.WrapHandler(h.deleteDashboard))
	group.Post(routes.Widgets, router.WrapHandler(h.addWidget))
	group.Post(routes.WidgetID, router.WrapHandler(h.updateWidget))
	group.Delete(routes.WidgetID, router.WrapHandler(h.removeWidget))
	group.Get(routes.WidgetView, router.WrapHandler(h.widgetView))
	group.Post(routes.WidgetMove, router.WrapHandler(h.moveWidget))
	group.Post(routes.WidgetResize, router.WrapHandler(h.resizeWidget))
	group.Post(routes.WidgetHours, router.WrapHandler(h.chartHours))
	group.Post(routes.Refresh, router.WrapHandler(h.refresh))
	group.Get(routes.Catalog, router.WrapHandler(h.catalog))
	group.Get(routes.Nodes, router.WrapHandler(h.searchNodes))

	registerWebSocket(group, cfg.Controller.Board(), routes.WebSocket)
	return nil
}

// NewHandlers builds the command API for a controller. Refused operations
// are reported to sink as notices.
func NewHandlers(ctrl *dashboard.Controller, sink dashboard.NoticeSink) *httpapi.Handlers {
	store := ctrl.Store()
	var instr dashboard.Instrumentation = dashboard.LogInstrumentation{}
	return &httpapi.Handlers{
		CreateDashboard: commands.NewReportingCommand[commands.CreateDashboardInput](commands.NewCreateDashboardCommand(store, instr), sink),
		SwitchDashboard: commands.NewReportingCommand[commands.SwitchDashboardInput](commands.NewSwitchDashboardCommand(store, instr), sink),
		RenameDashboard: commands.NewReportingCommand[commands.RenameDashboardInput](commands.NewRenameDashboardCommand(store, instr), sink),
		DeleteDashboard: commands.NewReportingCommand[commands.DeleteDashboardInput](commands.NewDeleteDashboardCommand(store, instr), sink),
		AddWidget:       commands.NewReportingCommand[commands.AddWidgetInput](commands.NewAddWidgetCommand(store, instr), sink),
		UpdateWidget:    commands.NewReportingCommand[commands.UpdateWidgetInput](commands.NewUpdateWidgetCommand(store, instr), sink),
		RemoveWidget:    commands.NewRemoveWidgetCommand(store, instr),
		MoveWidget:      commands.NewReportingCommand[commands.MoveWidgetInput](commands.NewMoveWidgetCommand(store, instr), sink),
		ResizeWidget:    commands.NewReportingCommand[commands.ResizeWidgetInput](commands.NewResizeWidgetCommand(store, instr), sink),
		SetChartHours:   commands.NewSetChartHoursCommand(store, instr),
		Refresh:         commands.NewRefreshDashboardCommand(ctrl.Refresh(), instr),
		Layout:          queries.NewLayoutQuery(store),
		WidgetView:      queries.NewWidgetViewQuery(ctrl.Board()),
		Catalog:         queries.NewCatalogQuery(store.Catalog()),
		Nodes:           queries.NewNodeSearchQuery(ctrl),
	}
}

type routeHandlers struct {
	api      *httpapi.Handlers
	resolver ViewerResolver
}

func (h *routeHandlers) context(ctx router.Context) context.Context {
	return dashboard.ContextWithViewer(ctx.Context(), h.resolver(ctx))
}

func (h *routeHandlers) layout(ctx router.Context) error {
	return h.respondLayout(ctx, http.StatusOK)
}

func (h *routeHandlers) respondLayout(ctx router.Context, status int) error {
	layout, err := h.api.Layout.Query(h.context(ctx), queries.LayoutInput{})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(status, layout)
}

func (h *routeHandlers) createDashboard(ctx router.Context) error {
	var payload commands.CreateDashboardInput
	if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
		return respondBadRequest(ctx, "invalid JSON body")
	}
	if err := h.api.CreateDashboard.Execute(h.context(ctx), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.respondLayout(ctx, http.StatusCreated)
}

// dashboardAction switches to the dashboard, and renames it when the body
// carries a name.
func (h *routeHandlers) dashboardAction(ctx router.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return respondBadRequest(ctx, "dashboard id is required")
	}
	c := h.context(ctx)
	if err := h.api.SwitchDashboard.Execute(c, commands.SwitchDashboardInput{DashboardID: id}); err != nil {
		return respondError(ctx, err)
	}
	if body := bytes.TrimSpace(ctx.Body()); len(body) > 0 {
		var payload commands.RenameDashboardInput
		if err := json.Unmarshal(body, &payload); err != nil {
			return respondBadRequest(ctx, "invalid JSON body")
		}
		if payload.Name != "" {
			if err := h.api.RenameDashboard.Execute(c, payload); err != nil {
				return respondError(ctx, err)
			}
		}
	}
	return h.respondLayout(ctx, http.StatusOK)
}

func (h *routeHandlers) deleteDashboard(ctx router.Context) error {
	confirmed, _ := strconv.ParseBool(ctx.Query("confirm"))
	if err := h.api.DeleteDashboard.Execute(h.context(ctx), commands.DeleteDashboardInput{Confirmed: confirmed}); err != nil {
		return respondError(ctx, err)
	}
	return h.respondLayout(ctx, http.StatusOK)
}

func (h *routeHandlers) addWidget(ctx router.Context) error {
	var spec dashboard.WidgetSpec
	if err := json.Unmarshal(ctx.Body(), &spec); err != nil {
		return respondBadRequest(ctx, "invalid JSON body")
	}
	if err := h.api.AddWidget.Execute(h.context(ctx), commands.AddWidgetInput{Spec: spec}); err != nil {
		return respondError(ctx, err)
	}
	h.queueRefresh(h.context(ctx))
	return h.respondLayout(ctx, http.StatusCreated)
}

func (h *routeHandlers) updateWidget(ctx router.Context) error {
	var spec dashboard.WidgetSpec
	if err := json.Unmarshal(ctx.Body(), &spec); err != nil {
		return respondBadRequest(ctx, "invalid JSON body")
	}
	input := commands.UpdateWidgetInput{WidgetID: ctx.Param("id"), Spec: spec}
	if err := h.api.UpdateWidget.Execute(h.context(ctx), input); err != nil {
		return respondError(ctx, err)
	}
	h.queueRefresh(h.context(ctx))
	return h.respondLayout(ctx, http.StatusOK)
}

func (h *routeHandlers) removeWidget(ctx router.Context) error {
	if err := h.api.RemoveWidget.Execute(h.context(ctx), commands.RemoveWidgetInput{WidgetID: ctx.Param("id")}); err != nil {
		return respondError(ctx, err)
	}
	return h.respondLayout(ctx, http.StatusOK)
}

func (h *routeHandlers) widgetView(ctx router.Context) error {
	asHTML := ctx.Query("format") == "html"
	res, err := h.api.WidgetView.Query(h.context(ctx), queries.WidgetViewInput{WidgetID: ctx.Param("id"), HTML: asHTML})
	if err != nil {
		return respondError(ctx, err)
	}
	if asHTML {
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send([]byte(res.HTML))
	}
	return ctx.JSON(http.StatusOK, res.View)
}

func (h *routeHandlers) moveWidget(ctx router.Context) error {
	var payload commands.MoveWidgetInput
	if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
		return respondBadRequest(ctx, "invalid JSON body")
	}
	payload.WidgetID = ctx.Param("id")
	if err := h.api.MoveWidget.Execute(h.context(ctx), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.respondLayout(ctx, http.StatusOK)
}

func (h *routeHandlers) resizeWidget(ctx router.Context) error {
	var payload commands.ResizeWidgetInput
	if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
		return respondBadRequest(ctx, "invalid JSON body")
	}
	payload.WidgetID = ctx.Param("id")
	if err := h.api.ResizeWidget.Execute(h.context(ctx), payload); err != nil {
		return respondError(ctx, err)
	}
	return h.respondLayout(ctx, http.StatusOK)
}

func (h *routeHandlers) chartHours(ctx router.Context) error {
	var payload commands.SetChartHoursInput
	if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
		return respondBadRequest(ctx, "invalid JSON body")
	}
	payload.WidgetID = ctx.Param("id")
	if err := h.api.SetChartHours.Execute(h.context(ctx), payload); err != nil {
		return respondError(ctx, err)
	}
	h.queueRefresh(h.context(ctx))
	return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

// queueRefresh nudges the refresh loop after a mutation. A failure does
// not undo the mutation, so it is only logged.
func (h *routeHandlers) queueRefresh(ctx context.Context) {
	if err := h.api.Refresh.Execute(ctx, commands.RefreshDashboardInput{}); err != nil {
		log.Error(ctx, errors.Wrap(err, "queue refresh"))
	}
}

func (h *routeHandlers) refresh(ctx router.Context) error {
	wait, _ := strconv.ParseBool(ctx.Query("wait"))
	if err := h.api.Refresh.Execute(h.context(ctx), commands.RefreshDashboardInput{Wait: wait}); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *routeHandlers) catalog(ctx router.Context) error {
	c := h.context(ctx)
	res, err := h.api.Catalog.Query(c, queries.CatalogInput{Locale: dashboard.ViewerFrom(c).Locale})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (h *routeHandlers) searchNodes(ctx router.Context) error {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return respondBadRequest(ctx, "limit must be an integer")
		}
		limit = n
	}
	nodes, err := h.api.Nodes.Query(h.context(ctx), queries.NodeSearchInput{Query: ctx.Query("q"), Limit: limit})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"nodes": nodes})
}

func registerWebSocket[T any](r router.Router[T], board *dashboard.ViewBoard, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := board.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultViewerResolver(ctx router.Context) dashboard.Viewer {
	var viewer dashboard.Viewer
	if v, ok := ctx.Locals("user_id").(string); ok && v != "" {
		viewer.UserID = v
		viewer.Authenticated = true
	}
	viewer.Locale = inferLocale(ctx)
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := ctx.Header("Accept-Language"); header != "" {
		if lang := parseAcceptLanguage(header); lang != "" {
			return lang
		}
	}
	return ""
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func respondError(ctx router.Context, err error) error {
	status := httpapi.StatusFor(err)
	body := map[string]any{"error": err.Error()}
	if notice, ok := dashboard.NoticeFor(err); ok {
		body["notice"] = notice
	}
	if status >= http.StatusInternalServerError {
		log.Error(ctx.Context(), err)
		body["error"] = http.StatusText(status)
	}
	return ctx.JSON(status, body)
}

func respondBadRequest(ctx router.Context, msg string) error {
	return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Layout == "" {
		routes.Layout = "/dashboard"
	}
	if routes.Dashboards == "" {
		routes.Dashboards = "/dashboards"
	}
	if routes.DashboardID == "" {
		routes.DashboardID = "/dashboards/:id"
	}
	if routes.Widgets == "" {
		routes.Widgets = "/widgets"
	}
	if routes.WidgetID == "" {
		routes.WidgetID = "/widgets/:id"
	}
	if routes.WidgetView == "" {
		routes.WidgetView = "/widgets/:id/view"
	}
	if routes.WidgetMove == "" {
		routes.WidgetMove = "/widgets/:id/move"
	}
	if routes.WidgetResize == "" {
		routes.WidgetResize = "/widgets/:id/resize"
	}
	if routes.WidgetHours == "" {
		routes.WidgetHours = "/widgets/:id/hours"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/refresh"
	}
	if routes.Catalog == "" {
		routes.Catalog = "/catalog"
	}
	if routes.Nodes == "" {
		routes.Nodes = "/nodes"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}
