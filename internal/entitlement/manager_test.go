// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager builds a manager whose engines tick far in the future, so
// tests exercise only the command path.
func newTestManager(store *memoryStore) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, logger, EngineConfig{
		TickInterval:  time.Hour,
		FlushInterval: time.Hour,
	})
}

func TestSignal_RunsOnlyInsideVisibleContext(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := grantedStore(clock, 3*time.Hour, 24*time.Hour)
	manager := newTestManager(store)
	defer func() { _ = manager.Shutdown(context.Background()) }()

	// Entering the viewing context on a freshly loaded (visible) page starts
	// the countdown.
	snapshot, err := manager.Signal(context.Background(), "viewer-1", SignalEnter)
	require.NoError(t, err)
	assert.True(t, snapshot.Running)

	// Hiding the tab pauses even though the context is still entered.
	snapshot, err = manager.Signal(context.Background(), "viewer-1", SignalHidden)
	require.NoError(t, err)
	assert.False(t, snapshot.Running)

	// Tab comes back: both conditions hold again.
	snapshot, err = manager.Signal(context.Background(), "viewer-1", SignalVisible)
	require.NoError(t, err)
	assert.True(t, snapshot.Running)

	// Leaving the context pauses regardless of visibility.
	snapshot, err = manager.Signal(context.Background(), "viewer-1", SignalLeave)
	require.NoError(t, err)
	assert.False(t, snapshot.Running)
}

func TestSignal_VisibilityAloneDoesNotStart(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := grantedStore(clock, 3*time.Hour, 24*time.Hour)
	manager := newTestManager(store)
	defer func() { _ = manager.Shutdown(context.Background()) }()

	snapshot, err := manager.Signal(context.Background(), "viewer-1", SignalVisible)
	require.NoError(t, err)
	assert.False(t, snapshot.Running, "visible without a viewing context must not run")
}

func TestSignal_AfterShutdown(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(store)
	require.NoError(t, manager.Shutdown(context.Background()))

	_, err := manager.Signal(context.Background(), "viewer-1", SignalEnter)
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestManager_EngineCountAndPeek(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := grantedStore(clock, time.Hour, time.Hour)
	manager := newTestManager(store)
	defer func() { _ = manager.Shutdown(context.Background()) }()

	assert.Equal(t, 0, manager.EngineCount())
	assert.Nil(t, manager.Peek("viewer-1"))

	first := manager.Engine("viewer-1")
	require.NotNil(t, first)
	assert.Equal(t, 1, manager.EngineCount())
	assert.Same(t, first, manager.Engine("viewer-1"), "same user reuses the engine")
	assert.Same(t, first, manager.Peek("viewer-1"))
}
