package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northharbor/sage/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "sage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLitePlanRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	plan := model.NewPlanSchema("plan-1", "owner-1")
	plan.Field("client.birth_year").Set(1985, 1.0, model.SourceDeterministic)
	plan.Field("client.retirement_window").Set(model.NumericRange{Min: 62, Max: 67}, 1.0, model.SourceDeterministic)
	require.NoError(t, s.SavePlan(ctx, plan))

	loaded, err := s.LoadPlan(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, plan.Version, loaded.Version)

	n, ok := loaded.NumberAt("client.birth_year")
	require.True(t, ok)
	assert.Equal(t, float64(1985), n)

	// Range values survive the JSON round trip as maps.
	r, ok := loaded.RangeAt("client.retirement_window")
	require.True(t, ok)
	assert.Equal(t, model.NumericRange{Min: 62, Max: 67}, r)
}

func TestSQLitePlanNotFound(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	_, err := s.LoadPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteOptimisticSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	plan := model.NewPlanSchema("plan-1", "owner-1")
	require.NoError(t, s.SavePlan(ctx, plan))

	first, err := s.LoadPlan(ctx, "plan-1")
	require.NoError(t, err)
	second, err := s.LoadPlan(ctx, "plan-1")
	require.NoError(t, err)

	require.NoError(t, s.SavePlan(ctx, first))

	err = s.SavePlan(ctx, second)
	require.ErrorIs(t, err, ErrConflict)
	// A failed save must not advance the caller's version.
	assert.Equal(t, first.Version-1, second.Version)
}

func TestSQLiteUpdateFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	plan := model.NewPlanSchema("plan-1", "owner-1")
	require.NoError(t, s.SavePlan(ctx, plan))

	updated, err := s.UpdateFields(ctx, "plan-1", []FieldPatch{
		{Path: "spending.retirement_monthly_real", Value: float64(8000), Confidence: 0.9},
	})
	require.NoError(t, err)

	f := updated.Field("spending.retirement_monthly_real")
	assert.Equal(t, float64(8000), f.Value)
	assert.Equal(t, 0.9, f.Confidence)
	assert.Equal(t, model.SourceCorrection, f.Source)
}

func TestSQLiteSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	plan := model.NewPlanSchema("plan-1", "owner-1")
	require.NoError(t, s.SavePlan(ctx, plan))

	sess := &model.Session{ID: "s1", PlanID: "plan-1", Phase: model.PhaseInterviewing}
	sess.Append(model.Message{Role: model.RoleAssistant, Content: "hello"})
	require.NoError(t, s.SaveSession(ctx, sess))

	t.Run("round trip", func(t *testing.T) {
		got, err := s.LoadSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseInterviewing, got.Phase)
		require.Len(t, got.History, 1)
		assert.Equal(t, "hello", got.History[0].Content)
	})

	t.Run("upsert replaces the document", func(t *testing.T) {
		sess.Phase = model.PhaseReadyForAnalysis
		require.NoError(t, s.SaveSession(ctx, sess))
		got, err := s.LoadSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseReadyForAnalysis, got.Phase)
	})

	t.Run("latest session for plan", func(t *testing.T) {
		later := &model.Session{ID: "s2", PlanID: "plan-1", Phase: model.PhaseInterviewing}
		require.NoError(t, s.SaveSession(ctx, later))
		got, err := s.SessionForPlan(ctx, "plan-1")
		require.NoError(t, err)
		assert.Equal(t, "s2", got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.LoadSession(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
