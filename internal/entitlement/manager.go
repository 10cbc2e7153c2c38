// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// reapInterval is how often idle engines are torn down.
const reapInterval = 1 * time.Minute

// Activity signals accepted by [Manager.Signal]. The countdown runs only
// while the viewer is inside a viewing context AND the page is visible.
const (
	SignalEnter   = "enter"
	SignalLeave   = "leave"
	SignalVisible = "visible"
	SignalHidden  = "hidden"
)

// ErrShuttingDown is returned for signals arriving after [Manager.Shutdown].
var ErrShuttingDown = errors.New("entitlement: shutting down")

// Manager owns the set of live countdown engines, one per user with recent
// activity.
//
// # Lifecycle
//
// Engines are created lazily on the first signal or live-feed subscription
// and reaped once they are paused with no subscribers. Shutdown stops every
// engine and waits for their final flushes.
type Manager struct {
	store  Store
	logger *slog.Logger
	config EngineConfig

	mu      sync.Mutex
	engines map[string]*managedEngine
	closed  bool

	wg sync.WaitGroup
}

type managedEngine struct {
	engine *Engine
	cancel context.CancelFunc

	// Activity tracker state. The two flags arrive as independent signals;
	// the countdown runs only while both hold.
	mu        sync.Mutex
	inContext bool
	visible   bool
}

// NewManager constructs an engine manager. An empty config uses platform
// defaults.
func NewManager(store Store, logger *slog.Logger, config EngineConfig) *Manager {
	return &Manager{
		store:   store,
		logger:  logger,
		config:  config,
		engines: make(map[string]*managedEngine),
	}
}

// Engine returns the live engine for the user, creating and starting one if
// necessary. Returns nil after shutdown.
func (manager *Manager) Engine(userID string) *Engine {
	if managed := manager.managed(userID); managed != nil {
		return managed.engine
	}
	return nil
}

// managed returns the user's engine entry, creating and starting one if
// necessary. Returns nil after shutdown.
func (manager *Manager) managed(userID string) *managedEngine {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.closed {
		return nil
	}

	if managed, ok := manager.engines[userID]; ok {
		return managed
	}

	engine := NewEngine(userID, manager.store, manager.logger, manager.config)
	ctx, cancel := context.WithCancel(context.Background())

	// A page that just loaded is visible; the viewing context must be entered
	// explicitly.
	managed := &managedEngine{engine: engine, cancel: cancel, visible: true}
	manager.engines[userID] = managed

	manager.wg.Add(1)
	go func() {
		defer manager.wg.Done()
		engine.Run(ctx)
	}()

	return managed
}

// Signal applies one activity transition and returns the resulting snapshot.
//
// The countdown runs only while the viewer is inside a viewing context AND
// the page is visible; any transition that breaks that conjunction pauses
// unconditionally, per the activity contract.
func (manager *Manager) Signal(ctx context.Context, userID, signal string) (Snapshot, error) {
	managed := manager.managed(userID)
	if managed == nil {
		return Snapshot{}, ErrShuttingDown
	}

	managed.mu.Lock()
	switch signal {
	case SignalEnter:
		managed.inContext = true
	case SignalLeave:
		managed.inContext = false
	case SignalVisible:
		managed.visible = true
	case SignalHidden:
		managed.visible = false
	}
	wantRunning := managed.inContext && managed.visible
	managed.mu.Unlock()

	if wantRunning {
		return managed.engine.Activate(ctx)
	}
	return managed.engine.Deactivate(ctx)
}

// EngineCount reports the number of live engines. Used by the readiness probe.
func (manager *Manager) EngineCount() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.engines)
}

// Peek returns the live engine for the user without creating one.
func (manager *Manager) Peek(userID string) *Engine {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if managed, ok := manager.engines[userID]; ok {
		return managed.engine
	}
	return nil
}

// NotifyGrant tells a live engine to reload its record after a top-up grant.
// Users without a live engine need nothing: their next activation re-reads
// storage anyway.
func (manager *Manager) NotifyGrant(ctx context.Context, userID string) {
	engine := manager.Peek(userID)
	if engine == nil {
		return
	}
	if _, err := engine.Refresh(ctx); err != nil {
		manager.logger.Warn("entitlement_grant_notify_failed",
			slog.String("user_id", userID), slog.Any("error", err))
	}
}

// RunReaper periodically removes idle engines until ctx is cancelled.
// Intended to run as a background goroutine from main.
func (manager *Manager) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.reapIdle()
		}
	}
}

// reapIdle tears down engines that are paused with no live subscribers.
func (manager *Manager) reapIdle() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	for userID, managed := range manager.engines {
		if managed.engine.Active() || managed.engine.SubscriberCount() > 0 {
			continue
		}
		managed.cancel()
		delete(manager.engines, userID)
	}
}

// Shutdown stops every engine and waits for their final flushes, bounded by
// the context deadline.
func (manager *Manager) Shutdown(ctx context.Context) error {
	manager.mu.Lock()
	manager.closed = true
	for _, managed := range manager.engines {
		managed.cancel()
	}
	manager.engines = make(map[string]*managedEngine)
	manager.mu.Unlock()

	done := make(chan struct{})
	go func() {
		manager.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
