// File: internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vxkeys/puppetry/api/schemas"
)

const scenarioSchema = `
CREATE TABLE IF NOT EXISTS scenarios (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    session_id     TEXT NOT NULL DEFAULT '',
    steps_json     TEXT NOT NULL DEFAULT '[]',
    variables_json TEXT NOT NULL DEFAULT 'null',
    total_steps    INTEGER NOT NULL DEFAULT 0,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    created_at     INTEGER NOT NULL,
    last_modified  INTEGER NOT NULL,
    last_played    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_scenarios_name ON scenarios(name);
CREATE INDEX IF NOT EXISTS idx_scenarios_modified ON scenarios(last_modified DESC);
`

// SQLiteStore keeps scenarios in a single database file at
// <dataDir>/scenarios.db, steps and variables as JSON text columns and
// timestamps as millisecond integers.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database and applies the WAL and
// busy-timeout pragmas before the schema.
func NewSQLiteStore(dataDir string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	expanded, err := homedir.Expand(dataDir)
	if err != nil {
		return nil, wrapStorage(err, "expanding data dir %q", dataDir)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, wrapStorage(err, "creating data dir %q", expanded)
	}
	path := filepath.Join(expanded, "scenarios.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapStorage(err, "opening database %q", path)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, wrapStorage(err, "applying %s", p)
		}
	}
	if _, err := db.Exec(scenarioSchema); err != nil {
		db.Close()
		return nil, wrapStorage(err, "applying scenario schema")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, wrapStorage(err, "pinging database %q", path)
	}
	return &SQLiteStore{db: db, logger: logger.Named("sqlite_store")}, nil
}

// millis flattens a timestamp to milliseconds; the zero time stores as 0.
func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (s *SQLiteStore) Save(ctx context.Context, sc *schemas.Scenario) error {
	if sc.ID == "" {
		return fmt.Errorf("%w: scenario id is empty", schemas.ErrStorage)
	}
	steps, err := json.Marshal(sc.Steps)
	if err != nil {
		return wrapStorage(err, "encoding steps of scenario %q", sc.ID)
	}
	vars, err := json.Marshal(sc.Variables)
	if err != nil {
		return wrapStorage(err, "encoding variables of scenario %q", sc.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenarios
			(id, name, description, session_id, steps_json, variables_json,
			 total_steps, duration_ms, created_at, last_modified, last_played)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name           = excluded.name,
			description    = excluded.description,
			session_id     = excluded.session_id,
			steps_json     = excluded.steps_json,
			variables_json = excluded.variables_json,
			total_steps    = excluded.total_steps,
			duration_ms    = excluded.duration_ms,
			last_modified  = excluded.last_modified,
			last_played    = excluded.last_played`,
		sc.ID, sc.Name, sc.Description, sc.SessionID, string(steps), string(vars),
		sc.Meta.TotalSteps, sc.Meta.DurationMillis,
		millis(sc.Meta.CreatedAt), millis(sc.Meta.LastModified), millis(sc.Meta.LastPlayed),
	)
	if err != nil {
		return wrapStorage(err, "upserting scenario %q", sc.ID)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*schemas.Scenario, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, session_id, steps_json, variables_json,
		       total_steps, duration_ms, created_at, last_modified, last_played
		FROM scenarios WHERE id = ?`, id)

	sc, err := scanScenario(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorage(err, "reading scenario %q", id)
	}
	return sc, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*schemas.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, session_id, steps_json, variables_json,
		       total_steps, duration_ms, created_at, last_modified, last_played
		FROM scenarios ORDER BY last_modified DESC`)
	if err != nil {
		return nil, wrapStorage(err, "listing scenarios")
	}
	defer rows.Close()

	var out []*schemas.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows.Scan)
		if err != nil {
			return nil, wrapStorage(err, "scanning scenario row")
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err, "iterating scenario rows")
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id); err != nil {
		return wrapStorage(err, "deleting scenario %q", id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanScenario rebuilds one scenario from a row; scan is either row.Scan or
// rows.Scan so Get and List share the column order in one place.
func scanScenario(scan func(dest ...any) error) (*schemas.Scenario, error) {
	var (
		sc                       schemas.Scenario
		stepsJSON, varsJSON      string
		created, modified, plays int64
	)
	if err := scan(
		&sc.ID, &sc.Name, &sc.Description, &sc.SessionID, &stepsJSON, &varsJSON,
		&sc.Meta.TotalSteps, &sc.Meta.DurationMillis, &created, &modified, &plays,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stepsJSON), &sc.Steps); err != nil {
		return nil, fmt.Errorf("decoding steps of scenario %q: %w", sc.ID, err)
	}
	if err := json.Unmarshal([]byte(varsJSON), &sc.Variables); err != nil {
		return nil, fmt.Errorf("decoding variables of scenario %q: %w", sc.ID, err)
	}
	sc.Meta.CreatedAt = fromMillis(created)
	sc.Meta.LastModified = fromMillis(modified)
	sc.Meta.LastPlayed = fromMillis(plays)
	return &sc, nil
}
