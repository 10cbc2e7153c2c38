// Copyright (c) 2026 XStream Media. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// chatWriteWait bounds a single WebSocket write.
	chatWriteWait = 10 * time.Second

	// chatPongWait is how long a silent peer is tolerated.
	chatPongWait = 60 * time.Second

	// chatPingPeriod must be shorter than chatPongWait.
	chatPingPeriod = 54 * time.Second

	// chatReadLimit caps an inbound frame. Messages are short text lines.
	chatReadLimit = 2048

	// clientSendBuffer is the per-client outbound queue. A client that cannot
	// drain it gets dropped rather than stalling the hub.
	clientSendBuffer = 64
)

// event is the wire envelope for everything the hub pushes to clients.
type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub owns the set of connected chat clients and fans messages out to them.
//
// All client bookkeeping happens on the Run goroutine, so the maps need no
// locking. Handlers talk to the hub exclusively through its channels.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	logger     *slog.Logger

	// done is closed when Run exits, releasing pumps that would otherwise
	// block on unregister with nobody left to receive.
	done chan struct{}
}

// NewHub constructs a chat [Hub]. Call [Hub.Run] before serving connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It exits when ctx is cancelled, closing every
// connected client on the way out.
func (hub *Hub) Run(ctx context.Context) {
	for {
		select {
		case connected := <-hub.register:
			hub.clients[connected] = struct{}{}
			hub.logger.Info("chat_client_connected",
				slog.String("user_id", connected.userID),
				slog.Int("clients", len(hub.clients)),
			)

		case departed := <-hub.unregister:
			if _, ok := hub.clients[departed]; ok {
				delete(hub.clients, departed)
				close(departed.send)
				hub.logger.Info("chat_client_disconnected",
					slog.String("user_id", departed.userID),
					slog.Int("clients", len(hub.clients)),
				)
			}

		case payload := <-hub.broadcast:
			for connected := range hub.clients {
				select {
				case connected.send <- payload:
				default:
					// The client is not draining its queue. Cut it loose.
					delete(hub.clients, connected)
					close(connected.send)
				}
			}

		case <-ctx.Done():
			for connected := range hub.clients {
				delete(hub.clients, connected)
				close(connected.send)
			}
			close(hub.done)
			return
		}
	}
}

// Broadcast fans a chat message out to every connected client.
func (hub *Hub) Broadcast(message *Message) {
	payload, err := json.Marshal(event{Type: "message", Data: message})
	if err != nil {
		hub.logger.Error("chat_broadcast_marshal_failed", slog.String("error", err.Error()))
		return
	}

	select {
	case hub.broadcast <- payload:
	default:
		hub.logger.Warn("chat_broadcast_dropped")
	}
}

// drop detaches a client. After shutdown nothing receives on unregister
// anymore, so departure falls through on the done channel instead.
func (hub *Hub) drop(connected *client) {
	select {
	case hub.unregister <- connected:
	case <-hub.done:
	}
}

// client is one WebSocket connection attached to the hub.
type client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	userID      string
	displayName string
}

// inboundMessage is what a connected viewer sends over the socket.
type inboundMessage struct {
	Body string `json:"body"`
}

// readPump consumes inbound frames until the peer goes away. Each valid line
// is recorded and broadcast; invalid ones produce an error event on this
// client's own queue.
func (connected *client) readPump(ctx context.Context, service *Service) {
	defer func() {
		connected.hub.drop(connected)
		_ = connected.conn.Close()
	}()

	connected.conn.SetReadLimit(chatReadLimit)
	_ = connected.conn.SetReadDeadline(time.Now().Add(chatPongWait))
	connected.conn.SetPongHandler(func(string) error {
		return connected.conn.SetReadDeadline(time.Now().Add(chatPongWait))
	})

	for {
		_, frame, err := connected.conn.ReadMessage()
		if err != nil {
			return
		}

		var inbound inboundMessage
		if err := json.Unmarshal(frame, &inbound); err != nil {
			connected.sendEvent(event{Type: "error", Data: "Malformed message"})
			continue
		}

		message, err := service.Post(ctx, connected.userID, connected.displayName, inbound.Body)
		if err != nil {
			connected.sendEvent(event{Type: "error", Data: err.Error()})
			continue
		}

		connected.hub.Broadcast(message)
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings.
func (connected *client) writePump() {
	pinger := time.NewTicker(chatPingPeriod)
	defer func() {
		pinger.Stop()
		_ = connected.conn.Close()
	}()

	for {
		select {
		case payload, open := <-connected.send:
			_ = connected.conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if !open {
				_ = connected.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := connected.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-pinger.C:
			_ = connected.conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if err := connected.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEvent queues an event for this client only, dropping it if the queue
// is full.
func (connected *client) sendEvent(e event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case connected.send <- payload:
	default:
	}
}
