package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/northharbor/sage/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Plans and
// sessions are stored as JSON documents; the plan version column backs the
// optimistic save check.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS plans (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	version    INTEGER NOT NULL,
	doc        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	plan_id    TEXT NOT NULL REFERENCES plans(id),
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_plans_owner ON plans(owner_id);
CREATE INDEX IF NOT EXISTS idx_sessions_plan_id ON sessions(plan_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadPlan(ctx context.Context, planID string) (*model.PlanSchema, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM plans WHERE id = ?`, planID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load plan")
	}
	var plan model.PlanSchema
	if err := json.Unmarshal([]byte(doc), &plan); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode plan")
	}
	return &plan, nil
}

func (s *SQLiteStore) SavePlan(ctx context.Context, plan *model.PlanSchema) error {
	now := time.Now().UTC()
	expected := plan.Version
	plan.Version++
	plan.UpdatedAt = now
	doc, err := json.Marshal(plan)
	if err != nil {
		plan.Version = expected
		return eris.Wrap(err, "sqlite: encode plan")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE plans SET doc = ?, version = ?, updated_at = ? WHERE id = ? AND version = ?`,
		string(doc), plan.Version, now, plan.PlanID, expected,
	)
	if err != nil {
		plan.Version = expected
		return eris.Wrap(err, "sqlite: save plan")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}

	// Either the plan is new or the version moved underneath us.
	var existing int
	err = s.db.QueryRowContext(ctx, `SELECT version FROM plans WHERE id = ?`, plan.PlanID).Scan(&existing)
	if err == sql.ErrNoRows {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO plans (id, owner_id, version, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			plan.PlanID, plan.OwnerID, plan.Version, string(doc), plan.CreatedAt, now,
		)
		if err != nil {
			plan.Version = expected
			return eris.Wrap(err, "sqlite: insert plan")
		}
		return nil
	}
	plan.Version = expected
	if err != nil {
		return eris.Wrap(err, "sqlite: check plan version")
	}
	return ErrConflict
}

func (s *SQLiteStore) UpdateFields(ctx context.Context, planID string, patches []FieldPatch) (*model.PlanSchema, error) {
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

func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM sessions WHERE id = ?`, sessionID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load session")
	}
	return decodeSession(doc)
}

func (s *SQLiteStore) SessionForPlan(ctx context.Context, planID string) (*model.Session, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM sessions WHERE plan_id = ? ORDER BY updated_at DESC LIMIT 1`, planID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: session for plan")
	}
	return decodeSession(doc)
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode session")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, plan_id, doc, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		sess.ID, sess.PlanID, string(doc), sess.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save session")
}

func decodeSession(doc string) (*model.Session, error) {
	var sess model.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode session")
	}
	return &sess, nil
}
