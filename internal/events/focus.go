// Package events receives control messages from the embedding frontend
// over a WebSocket connection. The only message that matters today is
// window focus, which drives the session refresh-on-focus policy; an
// outbound connection per frontend tab keeps this working from remote
// and embedded hosts alike.
package events

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// controlMessage is one frame on the events channel.
type controlMessage struct {
	Type string `json:"type"`
}

// FocusTrigger is notified for each window-focus report. Implemented by
// the refresh scheduler.
type FocusTrigger interface {
	Focus()
}

// Handler accepts WebSocket connections on the events endpoint and
// forwards focus reports to the trigger. One read loop per connection;
// the loop ends when the client disconnects or the request context is
// canceled.
type Handler struct {
	trigger FocusTrigger
}

// NewHandler creates the events handler.
func NewHandler(trigger FocusTrigger) *Handler {
	return &Handler{trigger: trigger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("events: websocket accept failed")
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Normal teardown path: client went away or server shut down.
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("events: discarding malformed control message")
			continue
		}

		switch msg.Type {
		case "focus":
			h.trigger.Focus()
		default:
			// Unknown control types are ignored so frontends can evolve
			// ahead of the gateway.
			log.Debug().Str("type", msg.Type).Msg("events: ignoring control message")
		}
	}
}
