// Copyright (c) 2026 XStream Media. All rights reserved.

package chat

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_DropUnregistersLiveClient(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	connected := &client{hub: hub, send: make(chan []byte, 1), userID: "viewer-1"}
	hub.register <- connected

	hub.drop(connected)

	select {
	case _, open := <-connected.send:
		assert.False(t, open, "unregister closes the client queue")
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not process the departure")
	}
}

func TestHub_ShutdownUnblocksDeparture(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	connected := &client{hub: hub, send: make(chan []byte, 1), userID: "viewer-1"}
	hub.register <- connected

	cancel()

	select {
	case _, open := <-connected.send:
		assert.False(t, open, "shutdown closes every client queue")
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not close clients on shutdown")
	}

	// A pump departing after the loop has exited must not hang.
	departed := make(chan struct{})
	go func() {
		hub.drop(connected)
		close(departed)
	}()

	select {
	case <-departed:
	case <-time.After(2 * time.Second):
		t.Fatal("departure blocked after hub shutdown")
	}
}
