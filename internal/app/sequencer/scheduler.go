package sequencer

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Scheduler runs callbacks after a delay. The returned cancel function stops
// a callback that has not fired yet; calling it more than once is safe.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
	Now() time.Time
}

// WallClock schedules callbacks against the wall clock, polling at Resolution.
type WallClock struct {
	Resolution time.Duration
}

// Now returns the current wall-clock time.
func (w WallClock) Now() time.Time {
	return toWallTime(time.Now())
}

// Schedule starts a timer that calls fn after d.
func (w WallClock) Schedule(d time.Duration, fn func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	resolution := w.Resolution
	if resolution <= 0 {
		resolution = 50 * time.Millisecond
	}

	endTime := toWallTime(time.Now()).Add(d)
	go func() {
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(time.Now()).Before(endTime) {
					fn()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}

// ManualClock is a Scheduler whose time only moves on Advance.
type ManualClock struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	at       time.Time
	seq      int
	fn       func()
	canceled bool
}

// NewManualClock creates a manual clock starting at a fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)}
}

// Now returns the manual time.
func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Schedule registers fn to run once the clock reaches now+d.
func (m *ManualClock) Schedule(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	task := &manualTask{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, task)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		task.canceled = true
	}
}

// Advance moves the clock forward and runs every due callback in deadline
// order. Callbacks run without the clock lock held and may schedule more work.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.tasks, func(i, j int) bool {
			if m.tasks[i].at.Equal(m.tasks[j].at) {
				return m.tasks[i].seq < m.tasks[j].seq
			}
			return m.tasks[i].at.Before(m.tasks[j].at)
		})

		var due *manualTask
		remaining := m.tasks[:0]
		for _, t := range m.tasks {
			if t.canceled {
				continue
			}
			if due == nil && !t.at.After(target) {
				due = t
				continue
			}
			remaining = append(remaining, t)
		}
		m.tasks = remaining

		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = due.at
		m.mu.Unlock()

		due.fn()
	}
}

// Pending returns the number of callbacks that have not fired or been cancelled.
func (m *ManualClock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.tasks {
		if !t.canceled {
			n++
		}
	}
	return n
}
