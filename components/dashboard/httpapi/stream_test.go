package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-mesh-dashboard/components/dashboard"
)

func TestStreamRouterSSE(t *testing.T) {
	board := dashboard.NewViewBoard(nil)
	srv := httptest.NewServer(NewStreamRouter(board, StreamRoutes{}))
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	board.Put(dashboard.WidgetView{WidgetID: "w_1", State: dashboard.ViewOK})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: view\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "), line)

	var event dashboard.BoardEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
	assert.Equal(t, "view", event.Kind)
	require.NotNil(t, event.View)
	assert.Equal(t, "w_1", event.View.WidgetID)
}

func TestStreamRouterWebSocket(t *testing.T) {
	board := dashboard.NewViewBoard(nil)
	srv := httptest.NewServer(NewStreamRouter(board, StreamRoutes{WebSocket: "/stream"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	board.Put(dashboard.WidgetView{WidgetID: "w_2", State: dashboard.ViewNoData})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event dashboard.BoardEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "view", event.Kind)
	require.NotNil(t, event.View)
	assert.Equal(t, "w_2", event.View.WidgetID)
	assert.Equal(t, dashboard.ViewNoData, event.View.State)
}

func TestStreamRouterRejectsOtherMethods(t *testing.T) {
	r := NewStreamRouter(dashboard.NewViewBoard(nil), DefaultStreamRoutes)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
