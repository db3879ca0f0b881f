package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lotas/labbook/internal/applog"
	"nhooyr.io/websocket"
)

// ChangeEvent is a push notification from the backend that some session
// or notebook state changed. It carries no payload beyond the hint — the
// client responds by running the same refresh path the poller uses.
type ChangeEvent struct {
	Type      string `json:"type"` // "sessions.changed", "notebook.changed"
	SessionID int64  `json:"session_id,omitempty"`
}

// Watcher subscribes to the backend's websocket change feed. Polling
// remains the default transport; the watcher is the optional push
// upgrade behind the same refresh interface.
type Watcher struct {
	url    string
	events chan ChangeEvent
}

// NewWatcher derives the websocket endpoint from the HTTP base URL.
func NewWatcher(baseURL string) *Watcher {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &Watcher{
		url:    strings.TrimRight(wsURL, "/") + "/ws",
		events: make(chan ChangeEvent, 16),
	}
}

// Events returns the channel of change notifications. The channel is
// closed when the connection drops, so the consumer can fall back to
// polling and retry.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Run dials the feed and pumps events until the connection drops or ctx
// is cancelled. It closes the events channel on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	conn, _, err := websocket.Dial(ctx, w.url, nil)
	if err != nil {
		applog.Error("watch.dial", err, "url", w.url)
		return err
	}
	defer conn.CloseNow()
	applog.Info("watch.connected", "url", w.url)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			applog.Info("watch.disconnected")
			return err
		}
		var ev ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			applog.Error("watch.parse", err)
			continue
		}
		select {
		case w.events <- ev:
		default:
			// Consumer is behind; drop — the next poll catches up anyway.
		}
	}
}
