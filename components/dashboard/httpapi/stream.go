package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/goliatone/go-mesh-dashboard/components/dashboard"
)

// StreamRoutes names the paths of the board event streams.
type StreamRoutes struct {
	Events    string
	WebSocket string
}

// DefaultStreamRoutes mounts SSE on /events and WebSocket on /ws.
var DefaultStreamRoutes = StreamRoutes{Events: "/events", WebSocket: "/ws"}

// NewStreamRouter serves board events over net/http, for clients that
// cannot reach the go-router WebSocket route.
func NewStreamRouter(board *dashboard.ViewBoard, routes StreamRoutes) *httprouter.Router {
	if routes.Events == "" {
		routes.Events = DefaultStreamRoutes.Events
	}
	if routes.WebSocket == "" {
		routes.WebSocket = DefaultStreamRoutes.WebSocket
	}
	r := httprouter.New()
	r.HandlerFunc(http.MethodGet, routes.Events, board.ServeSSE)
	r.HandlerFunc(http.MethodGet, routes.WebSocket, board.ServeWebSocket)
	return r
}
