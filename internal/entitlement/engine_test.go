// Copyright (c) 2026 XStream Media. All rights reserved.

package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory [Store] for driving the engine synchronously.
type memoryStore struct {
	mu            sync.Mutex
	records       map[string]*Record
	failDecrement bool
	decrements    []int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*Record)}
}

func (store *memoryStore) put(record *Record) {
	store.mu.Lock()
	defer store.mu.Unlock()
	clone := *record
	store.records[record.UserID] = &clone
}

func (store *memoryStore) Find(_ context.Context, userID string) (*Record, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if record, ok := store.records[userID]; ok {
		clone := *record
		return &clone, nil
	}
	return &Record{UserID: userID}, nil
}

func (store *memoryStore) Decrement(_ context.Context, userID string, elapsedMs int64) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failDecrement {
		return 0, errors.New("storage down")
	}
	store.decrements = append(store.decrements, elapsedMs)
	record, ok := store.records[userID]
	if !ok {
		return 0, nil
	}
	record.RemainingUsableMs -= elapsedMs
	if record.RemainingUsableMs < 0 {
		record.RemainingUsableMs = 0
	}
	return record.RemainingUsableMs, nil
}

func (store *memoryStore) SetRunning(_ context.Context, userID string, running bool) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if record, ok := store.records[userID]; ok {
		record.Running = running
	}
	return nil
}

func (store *memoryStore) remaining(userID string) int64 {
	store.mu.Lock()
	defer store.mu.Unlock()
	if record, ok := store.records[userID]; ok {
		return record.RemainingUsableMs
	}
	return 0
}

// fakeClock is a manually advanced wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

// newTestEngine builds an engine with a fake clock whose loop is NOT running;
// tests drive the unexported step/activate/deactivate methods directly.
func newTestEngine(t *testing.T, store *memoryStore, clock *fakeClock) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine("viewer-1", store, logger, EngineConfig{
		Now:           clock.Now,
		TickInterval:  time.Second,
		FlushInterval: 10 * time.Second,
	})
	engine.loadRecord()
	return engine
}

func grantedStore(clock *fakeClock, usable time.Duration, validity time.Duration) *memoryStore {
	store := newMemoryStore()
	expiry := clock.Now().Add(validity)
	store.put(&Record{
		UserID:            "viewer-1",
		RemainingUsableMs: usable.Milliseconds(),
		ValidityExpiry:    &expiry,
	})
	return store
}

func TestEngine_CountdownBurnsMeasuredTime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, 3*time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	snapshot := engine.activate(clock.Now())
	require.True(t, snapshot.Allowed)
	require.True(t, snapshot.Running)

	// Five regular ticks burn exactly five seconds of balance.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		engine.step(clock.Now())
	}

	snapshot = engine.snapshot(clock.Now())
	assert.Equal(t, (3 * time.Hour).Milliseconds()-5000, snapshot.RemainingUsableMs)

	// Below the flush interval nothing has been persisted yet.
	assert.Equal(t, (3 * time.Hour).Milliseconds(), store.remaining("viewer-1"))
}

func TestEngine_SlowTicksBillActualElapsedTime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())

	// One delayed tick worth 3.5s must bill 3.5s, not one tick interval.
	clock.Advance(3500 * time.Millisecond)
	engine.step(clock.Now())

	snapshot := engine.snapshot(clock.Now())
	assert.Equal(t, time.Hour.Milliseconds()-3500, snapshot.RemainingUsableMs)
}

func TestEngine_FlushesAtInterval(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())

	// Cross the 10s flush interval tick by tick.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		engine.step(clock.Now())
	}

	assert.Equal(t, time.Hour.Milliseconds()-10_000, store.remaining("viewer-1"))
	assert.Equal(t, []int64{10_000}, store.decrements)
}

func TestEngine_ExhaustionSelfPauses(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, 3*time.Second, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	feed, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	engine.activate(clock.Now())

	clock.Advance(2 * time.Second)
	engine.step(clock.Now())
	assert.True(t, engine.running)

	// The tick that crosses zero stops the session and flushes the remainder.
	clock.Advance(2 * time.Second)
	engine.step(clock.Now())

	assert.False(t, engine.running)
	assert.Equal(t, int64(0), store.remaining("viewer-1"))

	// Clients learn about the denial on the live feed.
	var last Snapshot
	for len(feed) > 0 {
		last = <-feed
	}
	assert.False(t, last.Allowed)
	assert.Equal(t, DenyTimeExhausted, last.DenyReason)
	assert.False(t, last.Running)
}

func TestEngine_ValidityExpiryMidPlaybackSelfPauses(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}

	// Plenty of usable time, but the window closes in 3 seconds.
	store := grantedStore(clock, time.Hour, 3*time.Second)
	engine := newTestEngine(t, store, clock)

	snapshot := engine.activate(clock.Now())
	require.True(t, snapshot.Allowed)

	clock.Advance(5 * time.Second)
	engine.step(clock.Now())

	assert.False(t, engine.running)
	snapshot = engine.snapshot(clock.Now())
	assert.False(t, snapshot.Allowed)
	assert.Equal(t, DenyValidityExpired, snapshot.DenyReason)

	// The five watched seconds still got billed.
	assert.Equal(t, time.Hour.Milliseconds()-5000, store.remaining("viewer-1"))
}

func TestEngine_DeactivateFlushesImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())

	clock.Advance(4 * time.Second)
	engine.step(clock.Now())

	// Pause after only 4s: well below the flush interval, yet the balance
	// must be persisted right away.
	snapshot := engine.deactivate(clock.Now())

	assert.False(t, snapshot.Running)
	assert.Equal(t, time.Hour.Milliseconds()-4000, store.remaining("viewer-1"))
}

func TestEngine_DeactivateIsIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())
	clock.Advance(2 * time.Second)
	engine.step(clock.Now())

	first := engine.deactivate(clock.Now())
	second := engine.deactivate(clock.Now())

	assert.Equal(t, first.RemainingUsableMs, second.RemainingUsableMs)
	assert.Len(t, store.decrements, 1)
}

func TestEngine_ActivateWhileRunningKeepsBaseline(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())
	clock.Advance(3 * time.Second)

	// A duplicate activate (second tab) must not reset the measurement
	// baseline and forgive the elapsed 3 seconds.
	engine.activate(clock.Now())
	engine.step(clock.Now())

	snapshot := engine.snapshot(clock.Now())
	assert.Equal(t, time.Hour.Milliseconds()-3000, snapshot.RemainingUsableMs)
}

func TestEngine_ActivateDeniedWithoutGrant(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := newMemoryStore() // Never granted.
	engine := newTestEngine(t, store, clock)

	snapshot := engine.activate(clock.Now())

	assert.False(t, snapshot.Allowed)
	assert.Equal(t, DenyNoEntitlement, snapshot.DenyReason)
	assert.False(t, engine.running)
}

func TestEngine_FlushFailureCarriesBalanceForward(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())

	store.failDecrement = true
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		engine.step(clock.Now())
	}

	// The failed flush kept the buffer.
	assert.Equal(t, int64(10_000), engine.unflushedMs)
	assert.Equal(t, time.Hour.Milliseconds(), store.remaining("viewer-1"))

	// Storage recovers: the next pause settles the full debt in one write.
	store.failDecrement = false
	engine.deactivate(clock.Now())

	assert.Zero(t, engine.unflushedMs)
	assert.Equal(t, time.Hour.Milliseconds()-10_000, store.remaining("viewer-1"))
}

func TestEngine_MonotonicNonIncreasingBetweenGrants(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Minute, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())

	previous := engine.snapshot(clock.Now()).RemainingUsableMs
	for i := 0; i < 90; i++ {
		clock.Advance(time.Second)
		engine.step(clock.Now())
		current := engine.snapshot(clock.Now()).RemainingUsableMs
		assert.LessOrEqual(t, current, previous)
		assert.GreaterOrEqual(t, current, int64(0))
		previous = current
	}
}

func TestEngine_RunLoopServesCommands(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Long intervals so the ticker stays out of the way: this test exercises
	// the command path only.
	engine := NewEngine("viewer-1", store, logger, EngineConfig{
		Now:           clock.Now,
		TickInterval:  time.Hour,
		FlushInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)

	snapshot, err := engine.Activate(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.Allowed)
	assert.True(t, snapshot.Running)
	assert.True(t, engine.Active())

	clock.Advance(7 * time.Second)
	snapshot, err = engine.CurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Hour.Milliseconds()-7000, snapshot.RemainingUsableMs)

	snapshot, err = engine.Deactivate(context.Background())
	require.NoError(t, err)
	assert.False(t, snapshot.Running)

	cancel()
	select {
	case <-engine.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	// The pause flush made storage authoritative before shutdown.
	assert.Equal(t, time.Hour.Milliseconds()-7000, store.remaining("viewer-1"))
}

func TestEngine_RefreshForgivesPreGrantBuffer(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := grantedStore(clock, time.Hour, 24*time.Hour)
	engine := newTestEngine(t, store, clock)

	engine.activate(clock.Now())
	clock.Advance(6 * time.Second)
	engine.step(clock.Now())
	require.Equal(t, int64(6000), engine.unflushedMs)

	// A top-up approval resets the stored balance mid-playback.
	expiry := clock.Now().Add(48 * time.Hour)
	store.put(&Record{
		UserID:            "viewer-1",
		RemainingUsableMs: (7 * time.Hour).Milliseconds(),
		ValidityExpiry:    &expiry,
	})

	snapshot := engine.refresh(clock.Now())

	assert.Zero(t, engine.unflushedMs)
	assert.Equal(t, (7 * time.Hour).Milliseconds(), snapshot.RemainingUsableMs)
	assert.True(t, snapshot.Running, "refresh never interrupts playback")

	// Pausing right away must not debit pre-grant viewing from the new balance.
	engine.deactivate(clock.Now())
	assert.Equal(t, (7 * time.Hour).Milliseconds(), store.remaining("viewer-1"))
	assert.Empty(t, store.decrements)
}

func TestEngine_RefreshPicksUpNewGrant(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	store := newMemoryStore()
	engine := newTestEngine(t, store, clock)

	denied := engine.activate(clock.Now())
	require.False(t, denied.Allowed)

	// A top-up lands while the engine is alive.
	expiry := clock.Now().Add(24 * time.Hour)
	store.put(&Record{
		UserID:            "viewer-1",
		RemainingUsableMs: (3 * time.Hour).Milliseconds(),
		ValidityExpiry:    &expiry,
	})
	engine.loadRecord()

	snapshot := engine.activate(clock.Now())
	assert.True(t, snapshot.Allowed)
	assert.Equal(t, (3 * time.Hour).Milliseconds(), snapshot.RemainingUsableMs)
}
