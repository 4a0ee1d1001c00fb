// Package store delegates plan and session persistence. The engine never
// manages durability itself: it loads, mutates in memory, and saves with an
// optimistic version check.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/registry"
	"github.com/northharbor/sage/internal/validate"
)

var (
	// ErrNotFound signals a missing plan or session; callers recover by
	// starting fresh.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict signals an optimistic version mismatch on save. The
	// store never retries on its own; retry policy belongs to the caller.
	ErrConflict = eris.New("store: version conflict")
)

// FieldPatch is one out-of-band direct edit, e.g. from a review UI.
type FieldPatch struct {
	Path       string  `json:"path"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// PlanStore persists plan schemas keyed by plan id.
type PlanStore interface {
	LoadPlan(ctx context.Context, planID string) (*model.PlanSchema, error)
	// SavePlan writes the plan iff the stored version matches
	// plan.Version, then bumps the version. Returns ErrConflict otherwise.
	SavePlan(ctx context.Context, plan *model.PlanSchema) error
	// UpdateFields applies validated direct edits and returns the updated
	// plan.
	UpdateFields(ctx context.Context, planID string, patches []FieldPatch) (*model.PlanSchema, error)
}

// SessionStore persists interview sessions keyed by session id.
type SessionStore interface {
	LoadSession(ctx context.Context, sessionID string) (*model.Session, error)
	// SessionForPlan returns the most recent session attached to a plan,
	// or ErrNotFound.
	SessionForPlan(ctx context.Context, planID string) (*model.Session, error)
	SaveSession(ctx context.Context, sess *model.Session) error
}

// Store is the combined persistence surface.
type Store interface {
	PlanStore
	SessionStore
	Migrate(ctx context.Context) error
	Close() error
}

// ApplyFieldPatches validates and applies direct edits to a plan in place.
// Every patch must name a registered field; values are coerced through the
// deterministic validator, so a review UI cannot write a type error into
// the schema.
func ApplyFieldPatches(plan *model.PlanSchema, patches []FieldPatch) error {
	for _, p := range patches {
		if !registry.Known(p.Path) {
			return eris.Errorf("store: unknown field path %q", p.Path)
		}
		spec := registry.Describe(p.Path)
		value, err := validate.Coerce(spec, p.Value)
		if err != nil {
			return eris.Wrapf(err, "store: patch %s", p.Path)
		}
		confidence := p.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 1.0
		}
		plan.Field(p.Path).Set(value, confidence, model.SourceCorrection)
	}
	return nil
}
