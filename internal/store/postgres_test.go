package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northharbor/sage/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_LoadPlan(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	plan := model.NewPlanSchema("plan-1", "owner-1")
	plan.Field("client.name").Set("Jane Doe", 1.0, model.SourceDeterministic)
	doc, err := json.Marshal(plan)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc FROM plans WHERE id = \$1`).
		WithArgs("plan-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	got, err := s.LoadPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Field("client.name").Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadPlan_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM plans WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LoadPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePlan(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	plan := model.NewPlanSchema("plan-1", "owner-1")

	mock.ExpectExec(`INSERT INTO plans`).
		WithArgs("plan-1", "owner-1", 2, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SavePlan(context.Background(), plan))
	assert.Equal(t, 2, plan.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePlan_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	plan := model.NewPlanSchema("plan-1", "owner-1")

	mock.ExpectExec(`INSERT INTO plans`).
		WithArgs("plan-1", "owner-1", 2, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := s.SavePlan(context.Background(), plan)
	require.ErrorIs(t, err, ErrConflict)
	// A failed save restores the caller's version.
	assert.Equal(t, 1, plan.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SessionRoundTrip(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	sess := &model.Session{ID: "s1", PlanID: "plan-1", Phase: model.PhaseInterviewing}

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("s1", "plan-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveSession(context.Background(), sess))

	doc, err := json.Marshal(sess)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT doc FROM sessions WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

	got, err := s.LoadSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseInterviewing, got.Phase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SessionForPlan_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM sessions WHERE plan_id = \$1`).
		WithArgs("plan-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.SessionForPlan(context.Background(), "plan-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS plans`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
