package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/northharbor/sage/internal/model"
)

// MemoryStore is a process-local Store for development and tests. Plans
// live in a plain map; sessions live in a TTL cache so abandoned interviews
// are garbage-collected by the store's own lifecycle rather than an
// explicit destroy.
type MemoryStore struct {
	mu       sync.RWMutex
	plans    map[string]*model.PlanSchema
	sessions *gocache.Cache
}

// NewMemory creates a MemoryStore. sessionTTL of 0 keeps sessions forever.
func NewMemory(sessionTTL time.Duration) *MemoryStore {
	ttl := sessionTTL
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{
		plans:    make(map[string]*model.PlanSchema),
		sessions: gocache.New(ttl, 10*time.Minute),
	}
}

func (m *MemoryStore) LoadPlan(_ context.Context, planID string) (*model.PlanSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[planID]
	if !ok {
		return nil, ErrNotFound
	}
	return plan.Clone(), nil
}

func (m *MemoryStore) SavePlan(_ context.Context, plan *model.PlanSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.plans[plan.PlanID]; ok && existing.Version != plan.Version {
		return ErrConflict
	}
	plan.Version++
	plan.UpdatedAt = time.Now().UTC()
	m.plans[plan.PlanID] = plan.Clone()
	return nil
}

func (m *MemoryStore) UpdateFields(ctx context.Context, planID string, patches []FieldPatch) (*model.PlanSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[planID]
	if !ok {
		return nil, ErrNotFound
	}
	updated := plan.Clone()
	if err := ApplyFieldPatches(updated, patches); err != nil {
		return nil, err
	}
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()
	m.plans[planID] = updated
	return updated.Clone(), nil
}

func (m *MemoryStore) LoadSession(_ context.Context, sessionID string) (*model.Session, error) {
	v, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*model.Session), nil
}

func (m *MemoryStore) SessionForPlan(_ context.Context, planID string) (*model.Session, error) {
	var latest *model.Session
	for _, item := range m.sessions.Items() {
		sess := item.Object.(*model.Session)
		if sess.PlanID != planID {
			continue
		}
		if latest == nil || sess.UpdatedAt.After(latest.UpdatedAt) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, sess *model.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	m.sessions.SetDefault(sess.ID, sess)
	return nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
