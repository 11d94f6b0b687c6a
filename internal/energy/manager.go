// Package energy implements the process-wide cognitive energy budget.
// Energy is consumed by expensive reasoning pipelines and recovers over
// wall-clock time; the resource arbiter reads the level to decide whether a
// high-cost pipeline may run.
package energy

import (
	"sync"
	"time"
)

const (
	// DefaultMaxEnergy is the full budget.
	DefaultMaxEnergy = 100.0
	// DefaultRecoveryRate is the recovery per second of elapsed time.
	DefaultRecoveryRate = 1.0
)

// Manager is the process-wide energy budget. All operations are atomic with
// respect to each other; Consume never blocks.
type Manager struct {
	mu           sync.Mutex
	maxEnergy    float64
	current      float64
	recoveryRate float64
	lastUpdate   time.Time
	now          func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithInitialEnergy seeds the starting level, clamped to [0, max].
func WithInitialEnergy(level float64) Option {
	return func(m *Manager) { m.current = clamp(level, 0, m.maxEnergy) }
}

// NewManager creates a Manager with the given budget parameters.
// Non-positive arguments fall back to the defaults.
func NewManager(maxEnergy, recoveryRate float64, opts ...Option) *Manager {
	if maxEnergy <= 0 {
		maxEnergy = DefaultMaxEnergy
	}
	if recoveryRate <= 0 {
		recoveryRate = DefaultRecoveryRate
	}
	m := &Manager{
		maxEnergy:    maxEnergy,
		current:      maxEnergy,
		recoveryRate: recoveryRate,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastUpdate = m.now()
	return m
}

// Consume recovers elapsed energy, then debits cost if the budget allows.
// It returns false, without debiting, when the budget is insufficient.
func (m *Manager) Consume(cost float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoverLocked()

	if m.current < cost {
		return false
	}
	m.current -= cost
	return true
}

// Level recovers elapsed energy and returns the current level.
func (m *Manager) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoverLocked()
	return m.current
}

// Recover applies elapsed-time recovery and returns the resulting level.
// Idempotent; the governor calls this on every tick.
func (m *Manager) Recover() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoverLocked()
	return m.current
}

// Max returns the configured budget ceiling.
func (m *Manager) Max() float64 {
	return m.maxEnergy
}

func (m *Manager) recoverLocked() {
	now := m.now()
	elapsed := now.Sub(m.lastUpdate).Seconds()
	if elapsed > 0 {
		m.current = clamp(m.current+elapsed*m.recoveryRate, 0, m.maxEnergy)
	}
	m.lastUpdate = now
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
