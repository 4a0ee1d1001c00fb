package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/northharbor/sage/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: new pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS plans (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	version    INTEGER NOT NULL,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	plan_id    TEXT NOT NULL REFERENCES plans(id),
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_plans_owner ON plans(owner_id);
CREATE INDEX IF NOT EXISTS idx_sessions_plan_id ON sessions(plan_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LoadPlan(ctx context.Context, planID string) (*model.PlanSchema, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM plans WHERE id = $1`, planID,
	).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load plan")
	}
	var plan model.PlanSchema
	if err := json.Unmarshal(doc, &plan); err != nil {
		return nil, eris.Wrap(err, "postgres: decode plan")
	}
	return &plan, nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, plan *model.PlanSchema) error {
	now := time.Now().UTC()
	expected := plan.Version
	plan.Version++
	plan.UpdatedAt = now
	doc, err := json.Marshal(plan)
	if err != nil {
		plan.Version = expected
		return eris.Wrap(err, "postgres: encode plan")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO plans (id, owner_id, version, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET doc = excluded.doc, version = excluded.version, updated_at = excluded.updated_at
		 WHERE plans.version = $7`,
		plan.PlanID, plan.OwnerID, plan.Version, doc, plan.CreatedAt, now, expected,
	)
	if err != nil {
		plan.Version = expected
		return eris.Wrap(err, "postgres: save plan")
	}
	if tag.RowsAffected() == 0 {
		plan.Version = expected
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, planID string, patches []FieldPatch) (*model.PlanSchema, error) {
	plan, err := s.LoadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := ApplyFieldPatches(plan, patches); err != nil {
		return nil, err
	}
	if err := s.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PostgresStore) LoadSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM sessions WHERE id = $1`, sessionID,
	).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load session")
	}
	var sess model.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return nil, eris.Wrap(err, "postgres: decode session")
	}
	return &sess, nil
}

func (s *PostgresStore) SessionForPlan(ctx context.Context, planID string) (*model.Session, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM sessions WHERE plan_id = $1 ORDER BY updated_at DESC LIMIT 1`, planID,
	).Scan(&doc)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: session for plan")
	}
	var sess model.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return nil, eris.Wrap(err, "postgres: decode session")
	}
	return &sess, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "postgres: encode session")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, plan_id, doc, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		sess.ID, sess.PlanID, doc, sess.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save session")
}
