// Copyright (c) 2026 XStream Media. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	requestutil "github.com/xstreamhq/xstream/internal/platform/request"
	"github.com/xstreamhq/xstream/internal/platform/respond"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement happens in the CORS middleware upstream.
	CheckOrigin: func(request *http.Request) bool { return true },
}

// Handler implements the chat HTTP endpoints.
type Handler struct {
	hub         *Hub
	chatService *Service
	logger      *slog.Logger
}

// NewHandler constructs a new chat [Handler].
func NewHandler(hub *Hub, service *Service, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, chatService: service, logger: logger}
}

// Routes returns the authenticated chat routes.
//
// The websocket room ([Handler.Live]) is registered separately in server.go,
// outside the request-timeout group.
//
// # Endpoints
//   - GET /messages  : Recent message history.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/messages", handler.history)

	return router
}

// history handles GET /api/v1/chat/messages.
func (handler *Handler) history(writer http.ResponseWriter, request *http.Request) {
	messages, err := handler.chatService.History(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, messages)
}

// Live handles GET /api/v1/chat/live.
//
// After the upgrade the connection joins the hub: recent history arrives
// first, then live messages as they are posted.
func (handler *Handler) Live(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	connection, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		handler.logger.Warn("chat_upgrade_failed", slog.String("error", err.Error()))
		return
	}

	connected := &client{
		hub:         handler.hub,
		conn:        connection,
		send:        make(chan []byte, clientSendBuffer),
		userID:      claims.UserID,
		displayName: claims.Username,
	}

	handler.hub.register <- connected

	// Seed the newcomer with recent history before any live traffic.
	if messages, err := handler.chatService.History(request.Context()); err == nil {
		if payload, err := json.Marshal(event{Type: "history", Data: messages}); err == nil {
			select {
			case connected.send <- payload:
			default:
			}
		}
	}

	// The request context dies when this handler returns; the pumps outlive it.
	go connected.writePump()
	go connected.readPump(context.Background(), handler.chatService)
}
