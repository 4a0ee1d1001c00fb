package interview

import (
	"context"
	"sync"

	"github.com/northharbor/sage/internal/model"
)

// Manager serializes turn processing per session. The engine mutates one
// plan per turn with no internal locking; the manager guarantees that two
// turns for the same session never interleave, while turns for different
// sessions run concurrently.
type Manager struct {
	engine *Engine

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager wraps an engine with per-session serialization.
func NewManager(engine *Engine) *Manager {
	return &Manager{engine: engine, locks: make(map[string]*sync.Mutex)}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	return l
}

// Start begins or resumes an interview.
func (m *Manager) Start(ctx context.Context, ownerID, planID string) (*StartResult, error) {
	return m.engine.Start(ctx, ownerID, planID)
}

// Respond processes one user turn, serialized against other turns for the
// same session.
func (m *Manager) Respond(ctx context.Context, in RespondInput) (*TurnResult, error) {
	l := m.sessionLock(in.SessionID)
	l.Lock()
	defer l.Unlock()
	return m.engine.Respond(ctx, in)
}

// Correct replaces an earlier answer, serialized like a turn.
func (m *Manager) Correct(ctx context.Context, in CorrectInput) (*TurnResult, error) {
	l := m.sessionLock(in.SessionID)
	l.Lock()
	defer l.Unlock()
	return m.engine.Correct(ctx, in)
}

// AdvancePhase moves a session through the analysis lifecycle.
func (m *Manager) AdvancePhase(ctx context.Context, sessionID string, to string) (*TurnResult, error) {
	l := m.sessionLock(sessionID)
	l.Lock()
	defer l.Unlock()

	sess, err := m.engine.AdvancePhase(ctx, sessionID, model.Phase(to))
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		SessionID: sess.ID,
		PlanID:    sess.PlanID,
		Warnings:  sess.Warnings,
		Phase:     sess.Phase,
		Turn:      sess.Turn,
	}, nil
}
