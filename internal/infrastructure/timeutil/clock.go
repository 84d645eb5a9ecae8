// Package timeutil provides time-related utilities for testability and convenience.
package timeutil

import (
	"sort"
	"sync"
	"time"
)

// Clock provides an abstraction over time.Now() for testability.
// Use RealClock in production and MockClock in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or the timer was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	Clock

	// AfterFunc calls f in its own goroutine (RealClock) or synchronously
	// from Advance (MockClock) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock uses the actual system time.
type RealClock struct{}

// NewRealClock creates a new RealClock instance.
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc delegates to time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// MockClock is a virtual clock for tests. Time only moves when Advance or Set is called,
// and due callbacks fire synchronously on the advancing goroutine.
type MockClock struct {
	mu        sync.Mutex
	fixedTime time.Time
	timers    []*mockTimer
	nextID    int
}

// NewMockClock creates a mock clock with the given fixed time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{fixedTime: t}
}

// NewMockClockFromString creates a mock clock from an RFC3339 time string.
// Panics if the time string is invalid (for use in tests only).
func NewMockClockFromString(timeStr string) *MockClock {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		panic("invalid time string: " + err.Error())
	}
	return NewMockClock(t)
}

// Now returns the fixed time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fixedTime
}

// Set sets the mock clock to a specific time, firing any timers that became due.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.fixedTime = t
	m.mu.Unlock()
	m.fireDue()
}

// Advance moves the mock clock forward by the given duration, firing due timers in order.
func (m *MockClock) Advance(d time.Duration) {
	m.Set(m.Now().Add(d))
}

// AfterFunc registers f to run once the virtual time reaches now+d.
func (m *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	t := &mockTimer{clock: m, id: m.nextID, due: m.fixedTime.Add(d), fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *MockClock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// fireDue runs due timers one at a time, outside the lock, so callbacks may schedule new timers.
func (m *MockClock) fireDue() {
	for {
		m.mu.Lock()
		sort.SliceStable(m.timers, func(i, j int) bool {
			if m.timers[i].due.Equal(m.timers[j].due) {
				return m.timers[i].id < m.timers[j].id
			}
			return m.timers[i].due.Before(m.timers[j].due)
		})
		if len(m.timers) == 0 || m.timers[0].due.After(m.fixedTime) {
			m.mu.Unlock()
			return
		}
		next := m.timers[0]
		m.timers = m.timers[1:]
		m.mu.Unlock()

		next.fn()
	}
}

func (m *MockClock) remove(t *mockTimer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type mockTimer struct {
	clock *MockClock
	id    int
	due   time.Time
	fn    func()
}

// Stop removes the timer if it has not fired yet.
func (t *mockTimer) Stop() bool {
	return t.clock.remove(t)
}

// Ensure interfaces are implemented.
var (
	_ Scheduler = (*RealClock)(nil)
	_ Scheduler = (*MockClock)(nil)
)
