package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mentehub/circled/internal/clock"
	"github.com/mentehub/circled/internal/events"
	"github.com/mentehub/circled/internal/facilitator"
	"github.com/mentehub/circled/internal/participants"
	"github.com/mentehub/circled/internal/store"
)

// Manager owns every live session runner, keyed by session id. Completed
// sessions stay registered (their terminal snapshot remains readable) until
// explicitly deleted.
type Manager struct {
	clk       clock.Clock
	generator facilitator.Generator
	pool      []participants.Participant
	bus       *events.Publisher
	archive   *store.Store
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Runner
}

func NewManager(clk clock.Clock, gen facilitator.Generator, pool []participants.Participant, bus *events.Publisher, archive *store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		clk:       clk,
		generator: gen,
		pool:      pool,
		bus:       bus,
		archive:   archive,
		logger:    logger,
		sessions:  make(map[string]*Runner),
	}
}

// Create registers and starts a session. The id is client-generated
// ("{theme}-{slot}-{epochMillis}"); creating an id that is already live is
// an error.
func (m *Manager) Create(id, mode string) (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already exists", id)
	}

	r := NewRunner(Config{
		ID:        id,
		Mode:      mode,
		Clock:     m.clk,
		Generator: m.generator,
		Pool:      m.pool,
		Bus:       m.bus,
		Archive:   m.archive,
		Logger:    m.logger,
	})
	m.sessions[id] = r
	r.Start()
	return r, nil
}

// Get returns a live or completed session runner.
func (m *Manager) Get(id string) (*Runner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sessions[id]
	return r, ok
}

// Stop unmounts a session: its timers stop, in-flight work is abandoned,
// and the runner is removed from the registry.
func (m *Manager) Stop(id string) bool {
	m.mu.Lock()
	r, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		r.Stop()
	}
	return ok
}

// StopAll stops every registered session, used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.sessions))
	for _, r := range m.sessions {
		runners = append(runners, r)
	}
	m.sessions = make(map[string]*Runner)
	m.mu.Unlock()

	for _, r := range runners {
		r.Stop()
	}
}

// Len is the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
