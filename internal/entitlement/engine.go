// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xstreamhq/xstream/internal/platform/constants"
)

// Engine is the single owner of one user's countdown state.
//
// # Concurrency Model
//
// All mutations flow through the run loop: HTTP signals, websocket
// subscriptions, and timer ticks are serialized onto one goroutine, so the
// record never needs a lock. Two devices activating at once simply queue two
// commands; the second sees the state the first left behind.
//
// # Accounting
//
// While running, the engine measures wall-clock elapsed time between ticks
// (not a fixed per-tick constant), so slow ticks under load never under-bill.
// Progress is buffered in memory and flushed to storage periodically; an
// ungraceful termination loses at most one flush interval of accounting.
type Engine struct {
	userID string
	store  Store
	logger *slog.Logger
	now    func() time.Time

	tickInterval  time.Duration
	flushInterval time.Duration

	commands chan engineCommand

	// Stopped is closed after the final flush when the run loop exits.
	stopped chan struct{}

	// Loop-owned state. Only the run loop (and tests driving the unexported
	// methods directly) may touch these.
	record      *Record
	running     bool
	lastTick    time.Time
	lastFlush   time.Time
	unflushedMs int64

	// active mirrors `running` for lock-free reads by the manager's reaper.
	active atomic.Bool

	subscribersMu sync.Mutex
	subscribers   map[chan Snapshot]struct{}
}

// EngineConfig tunes an engine. Zero values fall back to platform defaults,
// so production call sites pass an empty config and tests inject a fake clock
// with long intervals.
type EngineConfig struct {
	TickInterval  time.Duration
	FlushInterval time.Duration
	Now           func() time.Time
}

// NewEngine constructs an engine for one user. Call [Engine.Run] to start it.
func NewEngine(userID string, store Store, logger *slog.Logger, config EngineConfig) *Engine {
	if config.TickInterval <= 0 {
		config.TickInterval = constants.EntitlementTickInterval
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = constants.EntitlementFlushInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Engine{
		userID:        userID,
		store:         store,
		logger:        logger.With(slog.String("user_id", userID)),
		now:           config.Now,
		tickInterval:  config.TickInterval,
		flushInterval: config.FlushInterval,
		commands:      make(chan engineCommand),
		stopped:       make(chan struct{}),
		subscribers:   make(map[chan Snapshot]struct{}),
	}
}

type commandKind int

const (
	commandActivate commandKind = iota
	commandDeactivate
	commandSnapshot
	commandRefresh
)

type engineCommand struct {
	kind  commandKind
	reply chan Snapshot
}

// Run executes the engine loop until ctx is cancelled, then performs a final
// flush and closes the Stopped channel.
func (engine *Engine) Run(ctx context.Context) {
	engine.loadRecord()

	ticker := time.NewTicker(engine.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			engine.shutdown()
			close(engine.stopped)
			return

		case command := <-engine.commands:
			engine.handle(command)

		case <-ticker.C:
			engine.step(engine.now())
		}
	}
}

// Stopped returns a channel closed once the engine has fully shut down,
// including its final flush.
func (engine *Engine) Stopped() <-chan struct{} {
	return engine.stopped
}

// Active reports whether a viewing session is currently burning time.
// Safe to call from any goroutine.
func (engine *Engine) Active() bool {
	return engine.active.Load()
}

// ── Public command API (thread-safe) ─────────────────────────────────────────

// Activate starts (or confirms) a viewing session.
//
// The returned snapshot carries the gate decision: when Allowed is false the
// session did not start and DenyReason explains why.
func (engine *Engine) Activate(ctx context.Context) (Snapshot, error) {
	return engine.send(ctx, commandActivate)
}

// Deactivate pauses the viewing session and flushes progress immediately.
// Idempotent: pausing a paused session reports current state.
func (engine *Engine) Deactivate(ctx context.Context) (Snapshot, error) {
	return engine.send(ctx, commandDeactivate)
}

// CurrentSnapshot returns the engine's live view of the entitlement,
// including not-yet-flushed countdown progress.
func (engine *Engine) CurrentSnapshot(ctx context.Context) (Snapshot, error) {
	return engine.send(ctx, commandSnapshot)
}

// Refresh reloads the record from storage. Called after a grant lands so a
// live engine picks up the new balance without restarting.
func (engine *Engine) Refresh(ctx context.Context) (Snapshot, error) {
	return engine.send(ctx, commandRefresh)
}

// send queues a command on the run loop and waits for the reply.
func (engine *Engine) send(ctx context.Context, kind commandKind) (Snapshot, error) {
	command := engineCommand{kind: kind, reply: make(chan Snapshot, 1)}

	select {
	case engine.commands <- command:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-engine.stopped:
		return Snapshot{}, context.Canceled
	}

	select {
	case snapshot := <-command.reply:
		return snapshot, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Subscribe registers a snapshot feed for live clients. The returned cancel
// function must be called when the client disconnects.
func (engine *Engine) Subscribe() (<-chan Snapshot, func()) {
	channel := make(chan Snapshot, 8)

	engine.subscribersMu.Lock()
	engine.subscribers[channel] = struct{}{}
	engine.subscribersMu.Unlock()

	cancel := func() {
		engine.subscribersMu.Lock()
		delete(engine.subscribers, channel)
		engine.subscribersMu.Unlock()
	}
	return channel, cancel
}

// SubscriberCount reports how many live feeds are attached.
func (engine *Engine) SubscriberCount() int {
	engine.subscribersMu.Lock()
	defer engine.subscribersMu.Unlock()
	return len(engine.subscribers)
}

// ── Run-loop internals ───────────────────────────────────────────────────────

func (engine *Engine) handle(command engineCommand) {
	now := engine.now()

	var snapshot Snapshot
	switch command.kind {
	case commandActivate:
		snapshot = engine.activate(now)
	case commandDeactivate:
		snapshot = engine.deactivate(now)
	case commandRefresh:
		snapshot = engine.refresh(now)
		engine.publish(snapshot)
	default:
		// Bring the countdown up to date before reporting.
		engine.step(now)
		snapshot = engine.snapshot(now)
	}

	command.reply <- snapshot
}

// loadRecord fetches the authoritative record. On storage failure the engine
// keeps its previous state (or a zero record), which the gate denies.
func (engine *Engine) loadRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.EntitlementFinalFlushTimeout)
	defer cancel()

	record, err := engine.store.Find(ctx, engine.userID)
	if err != nil {
		engine.logger.Error("entitlement_load_failed", slog.Any("error", err))
		if engine.record == nil {
			engine.record = &Record{UserID: engine.userID}
		}
		return
	}
	engine.record = record
}

// refresh reloads the record after a grant landed. Buffered progress belongs
// to the balance the grant just replaced; carrying it forward would debit the
// fresh balance for pre-grant viewing, so the buffer and the measurement
// baseline are reset.
func (engine *Engine) refresh(now time.Time) Snapshot {
	engine.unflushedMs = 0
	if engine.running {
		engine.lastTick = now
		engine.lastFlush = now
	}
	engine.loadRecord()
	return engine.snapshot(now)
}

// activate starts the countdown if the gate allows it. Activating an already
// running session is a no-op that reports current state.
func (engine *Engine) activate(now time.Time) Snapshot {
	if engine.running {
		// Duplicate signal (e.g. two tabs). Keep the existing measurement
		// baseline so elapsed time is not double counted.
		return engine.snapshot(now)
	}

	// Re-read storage so grants approved since the last load are honored.
	engine.loadRecord()

	decision := Evaluate(engine.record, now)
	if !decision.Allowed {
		snapshot := engine.snapshot(now)
		engine.publish(snapshot)
		return snapshot
	}

	engine.running = true
	engine.active.Store(true)
	engine.lastTick = now
	engine.lastFlush = now
	engine.persistRunning(true)

	engine.logger.Info("viewing_session_started",
		slog.Int64("remaining_ms", engine.record.RemainingUsableMs))

	snapshot := engine.snapshot(now)
	engine.publish(snapshot)
	return snapshot
}

// deactivate pauses the countdown and flushes progress immediately, so a
// pause survives even an abrupt process exit right after.
func (engine *Engine) deactivate(now time.Time) Snapshot {
	if engine.running {
		engine.burn(now)
		engine.running = false
		engine.active.Store(false)
		engine.flush(now)
		engine.persistRunning(false)

		engine.logger.Info("viewing_session_paused",
			slog.Int64("remaining_ms", engine.record.RemainingUsableMs))
	}

	snapshot := engine.snapshot(now)
	engine.publish(snapshot)
	return snapshot
}

// step advances the countdown by the measured elapsed time since the last
// tick, self-pausing the session the moment the gate starts denying.
func (engine *Engine) step(now time.Time) {
	if !engine.running {
		return
	}

	engine.burn(now)

	decision := Evaluate(engine.record, now)
	if !decision.Allowed {
		engine.selfPause(now, decision)
		return
	}

	if now.Sub(engine.lastFlush) >= engine.flushInterval {
		engine.flush(now)
	}

	engine.publish(engine.snapshot(now))
}

// burn debits the wall-clock time elapsed since the previous measurement.
func (engine *Engine) burn(now time.Time) {
	elapsed := now.Sub(engine.lastTick)
	if elapsed <= 0 {
		return
	}
	engine.lastTick = now

	elapsedMs := elapsed.Milliseconds()
	engine.unflushedMs += elapsedMs
	engine.record.RemainingUsableMs -= elapsedMs
	if engine.record.RemainingUsableMs < 0 {
		engine.record.RemainingUsableMs = 0
	}
}

// selfPause stops the session when time runs out or validity lapses, flushes
// the final accounting, and pushes the denial to live clients.
func (engine *Engine) selfPause(now time.Time, decision Decision) {
	engine.running = false
	engine.active.Store(false)
	engine.flush(now)
	engine.persistRunning(false)

	engine.logger.Info("viewing_session_exhausted",
		slog.String("deny_reason", string(decision.Reason)))

	engine.publish(engine.snapshot(now))
}

// flush persists buffered countdown progress. On failure the buffer is kept
// and carried into the next attempt, so no watched time is ever forgiven.
func (engine *Engine) flush(now time.Time) {
	if engine.unflushedMs <= 0 {
		engine.lastFlush = now
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.EntitlementFinalFlushTimeout)
	defer cancel()

	remaining, err := engine.store.Decrement(ctx, engine.userID, engine.unflushedMs)
	if err != nil {
		engine.logger.Warn("entitlement_flush_failed",
			slog.Int64("unflushed_ms", engine.unflushedMs),
			slog.Any("error", err))
		return
	}

	engine.unflushedMs = 0
	engine.lastFlush = now
	// Storage is authoritative: it clamps at zero and absorbs racing flushes.
	engine.record.RemainingUsableMs = remaining
}

// persistRunning records the activity flag, best effort.
func (engine *Engine) persistRunning(running bool) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.EntitlementFinalFlushTimeout)
	defer cancel()

	if err := engine.store.SetRunning(ctx, engine.userID, running); err != nil {
		engine.logger.Warn("entitlement_running_flag_failed", slog.Any("error", err))
	}
}

// shutdown performs the final flush when the engine is being torn down.
func (engine *Engine) shutdown() {
	now := engine.now()
	if engine.running {
		engine.burn(now)
		engine.running = false
		engine.active.Store(false)
		engine.persistRunning(false)
	}
	engine.flush(now)
}

// snapshot builds the client-facing view of loop-owned state.
func (engine *Engine) snapshot(now time.Time) Snapshot {
	return SnapshotOf(engine.record, engine.running, now)
}

// publish fans a snapshot out to live subscribers. Slow consumers are
// skipped: a fresher snapshot arrives within a tick anyway.
func (engine *Engine) publish(snapshot Snapshot) {
	engine.subscribersMu.Lock()
	defer engine.subscribersMu.Unlock()

	for channel := range engine.subscribers {
		select {
		case channel <- snapshot:
		default:
		}
	}
}
