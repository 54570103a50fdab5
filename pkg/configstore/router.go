package configstore

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is the subset of httprouter used to mount handlers.
type Router interface {
	GET(path string, handle httprouter.Handle)
	POST(path string, handle httprouter.Handle)
	PUT(path string, handle httprouter.Handle)
	DELETE(path string, handle httprouter.Handle)
}

type subRouter struct {
	r    Router
	base string
}

// SubRouter prefixes every path with basePath and times each handler.
func SubRouter(r Router, basePath string) Router {
	return subRouter{r: r, base: basePath}
}

func (r subRouter) GET(path string, handle httprouter.Handle) {
	p := r.base + path
	r.r.GET(p, wrap(p, handle))
}

func (r subRouter) POST(path string, handle httprouter.Handle) {
	p := r.base + path
	r.r.POST(p, wrap(p, handle))
}

func (r subRouter) PUT(path string, handle httprouter.Handle) {
	p := r.base + path
	r.r.PUT(p, wrap(p, handle))
}

func (r subRouter) DELETE(path string, handle httprouter.Handle) {
	p := r.base + path
	r.r.DELETE(p, wrap(p, handle))
}

func wrap(path string, handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		t0 := time.Now()
		handle(w, r, p)
		httpHandle.WithLabelValues(path).Observe(time.Since(t0).Seconds())
	}
}

// CreateRouter mounts the config and node endpoints under /api/custom-dashboard.
func CreateRouter(s *Server) *httprouter.Router {
	r := httprouter.New()
	api := SubRouter(r, "/api/custom-dashboard")

	api.GET("/config", s.GetConfig)
	api.PUT("/config", s.PutConfig)
	api.DELETE("/config", s.DeleteConfig)

	if s.telemetry != nil {
		api.POST("/nodes/telemetry", s.BatchTelemetry)
		api.GET("/node/:node_id/telemetry/history", s.TelemetryHistory)
	}
	if s.nodes != nil {
		api.GET("/nodes/search", s.SearchNodes)
	}
	return r
}

func CreateDebugRouter() *httprouter.Router {
	r := httprouter.New()
	r.Handler(http.MethodGet, "/debug/metrics", promhttp.Handler())
	r.HandlerFunc(http.MethodGet, "/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
