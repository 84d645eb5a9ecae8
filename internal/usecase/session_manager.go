package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// SlotFactory returns the cache slot of a session.
type SlotFactory func(sessionID string) SearchCache

// SessionManager keeps one Session per browser session and evicts idle ones.
type SessionManager struct {
	backend   domain.FlightBackend
	slots     SlotFactory
	scheduler timeutil.Scheduler
	cfg       Config
	log       zerolog.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager. If config is nil, defaults are used.
func NewSessionManager(
	backend domain.FlightBackend,
	slots SlotFactory,
	scheduler timeutil.Scheduler,
	config *Config,
	log zerolog.Logger,
	m *metrics.Metrics,
) *SessionManager {
	if scheduler == nil {
		scheduler = timeutil.NewRealClock()
	}
	return &SessionManager{
		backend:   backend,
		slots:     slots,
		scheduler: scheduler,
		cfg:       resolveConfig(config),
		log:       log,
		metrics:   m,
		sessions:  make(map[string]*Session),
	}
}

// Get returns an existing session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s.Touch()
	return s, nil
}

// GetOrCreate returns the session for id, creating it when needed. An empty id
// gets a fresh UUID. A new session picks up any search persisted under its id
// before other callers can see it.
func (m *SessionManager) GetOrCreate(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		id = uuid.NewString()
	}

	if s, ok := m.lookup(id); ok {
		return s, false
	}

	s := NewSession(id, m.backend, m.slots(id), m.scheduler, m.cfg, m.log, m.metrics)
	if err := s.Restore(ctx); err != nil {
		m.log.Warn().Err(err).Str("session_id", id).Msg("Failed to restore session")
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.Close()
		existing.Touch()
		return existing, false
	}
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SessionsActive(count)
	m.log.Debug().Str("session_id", id).Msg("Session created")
	return s, true
}

func (m *SessionManager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if ok {
		s.Touch()
	}
	return s, ok
}

// Remove ends a session and clears its cached search.
func (m *SessionManager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	m.metrics.SessionsActive(count)
	return m.end(ctx, s)
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for at least the configured IdleTTL and returns
// how many were removed.
func (m *SessionManager) Sweep(ctx context.Context) int {
	now := m.scheduler.Now()

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) >= m.cfg.IdleTTL {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if len(idle) == 0 {
		return 0
	}

	m.metrics.SessionsActive(count)
	for _, s := range idle {
		if err := m.end(ctx, s); err != nil {
			m.log.Warn().Err(err).Str("session_id", s.ID()).Msg("Failed to clear evicted session")
		}
	}
	m.log.Info().Int("evicted", len(idle)).Int("active", count).Msg("Idle sessions evicted")
	return len(idle)
}

// Run sweeps every interval until ctx is done.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Shutdown stops the timers of every session. Cached searches are kept so a
// durable store can restore them after a restart.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		s.Close()
	}
}

func (m *SessionManager) end(ctx context.Context, s *Session) error {
	s.Close()
	return s.Executor().Clear(ctx)
}
