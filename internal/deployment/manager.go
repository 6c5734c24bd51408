package deployment

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager hands out one workflow per operator. Sessions live for the whole
// login and are dropped wholesale on logout.
type Manager struct {
	mu        sync.Mutex
	workflows map[uuid.UUID]*Workflow

	col      Collaborators
	timeouts Timeouts
	log      zerolog.Logger
}

// NewManager creates a session manager.
func NewManager(col Collaborators, timeouts Timeouts, logger zerolog.Logger) *Manager {
	return &Manager{
		workflows: make(map[uuid.UUID]*Workflow),
		col:       col,
		timeouts:  timeouts,
		log:       logger.With().Str("component", "session_manager").Logger(),
	}
}

// GetOrCreate returns the operator's workflow, creating it on first use.
func (m *Manager) GetOrCreate(operatorID uuid.UUID) *Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.workflows[operatorID]; ok {
		return w
	}
	w := NewWorkflow(operatorID, m.col, m.timeouts, m.log)
	m.workflows[operatorID] = w
	m.log.Info().Stringer("operator_id", operatorID).Msg("deployment session created")
	return w
}

// Drop wipes and removes the operator's session on logout. In-flight remote
// completions against the old session become stale and are discarded.
func (m *Manager) Drop(operatorID uuid.UUID) {
	m.mu.Lock()
	w, ok := m.workflows[operatorID]
	delete(m.workflows, operatorID)
	m.mu.Unlock()

	if ok {
		if err := w.Reset(); err != nil {
			m.log.Warn().Err(err).Msg("error resetting dropped session")
		}
		m.log.Info().Stringer("operator_id", operatorID).Msg("deployment session dropped")
	}
}
