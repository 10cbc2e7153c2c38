// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xstreamhq/xstream/internal/platform/apperr"
	"github.com/xstreamhq/xstream/internal/platform/ctxutil"
	requestutil "github.com/xstreamhq/xstream/internal/platform/request"
	"github.com/xstreamhq/xstream/internal/platform/respond"
)

// Websocket keepalive tuning.
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second // Must be shorter than wsPongWait.
)

// upgrader performs the HTTP -> websocket handshake. Origin checking happens
// in the CORS middleware before the request reaches this handler.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Live handles GET /api/v1/entitlement/live: a websocket feed that pushes a
// countdown snapshot on every engine tick.
//
// It is registered outside the request-timeout group in server.go because the
// connection is long-lived. The subscription pins the user's engine alive
// (the reaper skips engines with subscribers), so a viewer watching the
// countdown always sees live numbers even while paused.
func (handler *Handler) Live(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	engine := handler.manager.Engine(userID)
	if engine == nil {
		respond.Error(writer, request, apperr.ServiceUnavailable("Shutting down"))
		return
	}

	connection, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	logger := ctxutil.GetLogger(request.Context())
	feed, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	// Reader goroutine: processes pong frames, detects disconnects, and
	// accepts inbound activity signals so a live client never needs a second
	// HTTP round trip to pause or resume.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		connection.SetReadLimit(512)
		_ = connection.SetReadDeadline(time.Now().Add(wsPongWait))
		connection.SetPongHandler(func(string) error {
			return connection.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			var inbound signalRequest
			if err := connection.ReadJSON(&inbound); err != nil {
				return
			}
			switch inbound.Signal {
			case SignalEnter, SignalLeave, SignalVisible, SignalHidden:
				if _, err := handler.manager.Signal(request.Context(), userID, inbound.Signal); err != nil {
					logger.Debug("entitlement_ws_signal_failed", slog.Any("error", err))
				}
			}
		}
	}()

	defer func() {
		_ = connection.Close()
	}()

	// Send the current state immediately so clients render without waiting
	// for the first tick.
	if snapshot, err := engine.CurrentSnapshot(request.Context()); err == nil {
		_ = connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := connection.WriteJSON(snapshot); err != nil {
			return
		}
	}

	pinger := time.NewTicker(wsPingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-disconnected:
			return

		case <-request.Context().Done():
			return

		case snapshot := <-feed:
			_ = connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := connection.WriteJSON(snapshot); err != nil {
				logger.Debug("entitlement_feed_write_failed", slog.Any("error", err))
				return
			}

		case <-pinger.C:
			_ = connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// nowUTC is the wall clock used for passive (engine-less) gate evaluations.
func nowUTC() time.Time {
	return time.Now().UTC()
}
