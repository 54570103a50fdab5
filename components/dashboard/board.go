package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// BoardEvent is streamed to board subscribers.
type BoardEvent struct {
	// Kind is "view", "layout" or "notice".
	Kind   string       `json:"kind"`
	View   *WidgetView  `json:"view,omitempty"`
	Change *ChangeEvent `json:"change,omitempty"`
	Notice *Notice      `json:"notice,omitempty"`
}

// ViewBoard holds the current body of every widget and fans updates out
// to in-process subscribers, WebSocket and SSE clients.
type ViewBoard struct {
	mu        sync.RWMutex
	views     map[string]WidgetView
	subs      map[int]chan BoardEvent
	next      int
	templates TemplateRenderer
	theme     *ThemeSelection
}

// NewViewBoard creates a board. A nil renderer disables HTML output.
func NewViewBoard(templates TemplateRenderer) *ViewBoard {
	return &ViewBoard{
		views:     make(map[string]WidgetView),
		subs:      make(map[int]chan BoardEvent),
		templates: templates,
	}
}

// Put replaces a widget body and broadcasts it.
func (b *ViewBoard) Put(view WidgetView) {
	b.mu.Lock()
	b.views[view.WidgetID] = view
	b.mu.Unlock()
	v := view
	b.broadcast(BoardEvent{Kind: "view", View: &v})
}

// View returns the current body of a widget.
func (b *ViewBoard) View(widgetID string) (WidgetView, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.views[widgetID]
	return v, ok
}

// Views returns the bodies of the given widgets in order, skipping
// widgets that have not rendered yet.
func (b *ViewBoard) Views(widgetIDs []string) []WidgetView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]WidgetView, 0, len(widgetIDs))
	for _, id := range widgetIDs {
		if v, ok := b.views[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Retain drops bodies of widgets not in keep.
func (b *ViewBoard) Retain(keep []string) {
	set := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		set[id] = struct{}{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.views {
		if _, ok := set[id]; !ok {
			delete(b.views, id)
		}
	}
}

// DashboardChanged implements ChangeHook so layout changes reach subscribers.
func (b *ViewBoard) DashboardChanged(ctx context.Context, event ChangeEvent) {
	if event.Reason == "widget.delete" {
		b.mu.Lock()
		delete(b.views, event.WidgetID)
		b.mu.Unlock()
	}
	e := event
	b.broadcast(BoardEvent{Kind: "layout", Change: &e})
}

func (b *ViewBoard) broadcast(event BoardEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel of board events and a cancel func. Slow
// subscribers miss events rather than block the board.
func (b *ViewBoard) Subscribe() (<-chan BoardEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan BoardEvent, 16)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// HTML renders a widget body through the embedded templates.
func (b *ViewBoard) HTML(widgetID string) (string, error) {
	if b.templates == nil {
		return "", errors.New("template renderer not configured")
	}
	view, ok := b.View(widgetID)
	if !ok {
		return "", errors.Wrap(ErrNotFound, "widget view not found", j.KV("widget_id", widgetID))
	}
	data, err := templateData(view, b.theme)
	if err != nil {
		return "", errors.Wrap(err, "encode widget view", j.KV("widget_id", widgetID))
	}
	var buf bytes.Buffer
	if _, err := b.templates.Render(viewTemplate(view), data, &buf); err != nil {
		return "", errors.Wrap(err, "render widget view", j.KV("widget_id", widgetID))
	}
	return buf.String(), nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// follow subscribes before calling ready and then hands every board event
// to send until the context ends, the board drops the subscriber or send
// fails.
func (b *ViewBoard) follow(ctx context.Context, ready func() error, send func(BoardEvent) error) error {
	events, cancel := b.Subscribe()
	defer cancel()
	if err := ready(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := send(event); err != nil {
				return err
			}
		}
	}
}

// ServeWebSocket streams board events to a WebSocket client as JSON
// frames. Frames sent by the client are discarded; reading them is how a
// closed connection is noticed.
func (b *ViewBoard) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	var conn *websocket.Conn
	upgrade := func() error {
		var err error
		conn, err = upgrader.Upgrade(w, r, nil)
		if err != nil {
			return err
		}
		go func() {
			defer stop()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()
		return nil
	}
	err := b.follow(ctx, upgrade, func(event BoardEvent) error {
		return conn.WriteJSON(event)
	})
	if conn != nil {
		conn.Close()
	}
	if err != nil {
		log.Debug(ctx, "board websocket closed", j.KV("reason", err.Error()))
	}
}

// ServeSSE streams board events as Server-Sent Events named after the
// event kind.
func (b *ViewBoard) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	open := func() error {
		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		return nil
	}
	_ = b.follow(r.Context(), open, func(event BoardEvent) error {
		data, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, "encode board event", j.KV("kind", event.Kind))
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}
