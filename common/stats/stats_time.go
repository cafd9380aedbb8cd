package stats

import (
	"sync"
	"time"
)

// StatsTicker wraps time.Ticker so tests can drive ticks by hand.
type StatsTicker interface {
	C() <-chan time.Time
	Stop()
}

type statsTicker struct {
	*time.Ticker
}

func (s *statsTicker) C() <-chan time.Time { return s.Ticker.C }

func NewStatsTicker(dur time.Duration) StatsTicker {
	return &statsTicker{time.NewTicker(dur)}
}

// StatsTime is the clock used by latencies and by the scheduler watchdog.
type StatsTime interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) StatsTicker
}

type defaultStatsTime struct{}

func (defaultStatsTime) Now() time.Time                        { return time.Now() }
func (defaultStatsTime) Since(t time.Time) time.Duration       { return time.Since(t) }
func (defaultStatsTime) NewTicker(d time.Duration) StatsTicker { return NewStatsTicker(d) }

func DefaultStatsTime() StatsTime { return defaultStatsTime{} }

// TestTime is a manually advanced clock. Tickers it creates fire only when
// Tick is called.
type TestTime struct {
	mu  sync.Mutex
	now time.Time
	ch  chan time.Time
}

func NewTestTime(now time.Time) *TestTime {
	return &TestTime{now: now, ch: make(chan time.Time, 1)}
}

func (t *TestTime) Now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

func (t *TestTime) Since(s time.Time) time.Duration { return t.Now().Sub(s) }

func (t *TestTime) NewTicker(time.Duration) StatsTicker { return &testStatsTicker{ch: t.ch} }

// Advance moves the clock forward without firing any ticker.
func (t *TestTime) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = t.now.Add(d)
}

// Tick advances the clock and delivers one tick to tickers made by this clock.
func (t *TestTime) Tick(d time.Duration) {
	t.Advance(d)
	t.ch <- t.Now()
}

type testStatsTicker struct {
	ch <-chan time.Time
}

func (t *testStatsTicker) C() <-chan time.Time { return t.ch }
func (t *testStatsTicker) Stop()               {}
