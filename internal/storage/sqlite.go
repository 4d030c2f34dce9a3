package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/inheritance"
	"symgraph/internal/reference"
	"symgraph/internal/resolution"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to init schema")
	}

	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			policy TEXT,
			type_count INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS types (
			build_id TEXT NOT NULL,
			id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT,
			name TEXT,
			filepath TEXT,
			start_line INTEGER,
			end_line INTEGER,
			data JSON,
			PRIMARY KEY (build_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS diamonds (
			build_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			base_id TEXT,
			data JSON,
			PRIMARY KEY (build_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			build_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT,
			severity TEXT,
			entity_id TEXT,
			data JSON,
			PRIMARY KEY (build_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS refs (
			build_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT,
			name TEXT,
			filepath TEXT,
			resolved_id TEXT,
			confidence TEXT,
			score REAL,
			reason TEXT,
			reference JSON,
			resolution JSON,
			PRIMARY KEY (build_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_types_file ON types(build_id, filepath);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_created ON builds(created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot stores the snapshot under a new build id and returns it. The
// build is written in one transaction: either all of it is visible or none.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *Snapshot) (string, error) {
	if snap == nil {
		return "", errors.New("nil snapshot")
	}
	buildID := uuid.NewString()
	createdAt := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, created_at, policy, type_count) VALUES (?, ?, ?, ?)`,
		buildID, createdAt.Format(timeLayout), string(snap.Policy), len(snap.Types),
	); err != nil {
		return "", errors.Wrap(err, "insert build")
	}

	// Member ids repeat across references; encode each once.
	keys := ids.NewTable()
	if err := saveTypes(ctx, tx, keys, buildID, snap.Types); err != nil {
		return "", err
	}
	if err := saveDiamonds(ctx, tx, buildID, snap.Diamonds); err != nil {
		return "", err
	}
	if err := saveDiagnostics(ctx, tx, buildID, snap.Diagnostics); err != nil {
		return "", err
	}
	if err := saveReferences(ctx, tx, keys, buildID, snap.References); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	snap.BuildID = buildID
	snap.CreatedAt = createdAt
	return buildID, nil
}

func saveTypes(ctx context.Context, tx *sql.Tx, keys *ids.Table, buildID string, types []*graph.TypeEntity) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO types (build_id, id, seq, kind, name, filepath, start_line, end_line, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range types {
		key, err := keys.Intern(t.ID)
		if err != nil {
			return errors.Wrapf(err, "type %d", i)
		}
		data, err := json.Marshal(t)
		if err != nil {
			return errors.Wrapf(err, "encode type %s", key)
		}
		if _, err := stmt.ExecContext(ctx, buildID, key, i, string(t.Kind), t.ID.Name, t.ID.FilePath, t.ID.StartLine, t.ID.EndLine, data); err != nil {
			return errors.Wrapf(err, "insert type %s", key)
		}
	}
	return nil
}

func saveDiamonds(ctx context.Context, tx *sql.Tx, buildID string, diamonds []graph.DiamondProblem) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO diamonds (build_id, seq, base_id, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range diamonds {
		data, err := json.Marshal(d)
		if err != nil {
			return errors.Wrapf(err, "encode diamond %d", i)
		}
		if _, err := stmt.ExecContext(ctx, buildID, i, d.Base.String(), data); err != nil {
			return errors.Wrapf(err, "insert diamond %d", i)
		}
	}
	return nil
}

func saveDiagnostics(ctx context.Context, tx *sql.Tx, buildID string, diags []inheritance.Diagnostic) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (build_id, seq, kind, severity, entity_id, data) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range diags {
		data, err := json.Marshal(d)
		if err != nil {
			return errors.Wrapf(err, "encode diagnostic %d", i)
		}
		if _, err := stmt.ExecContext(ctx, buildID, i, string(d.Kind), string(d.Severity), d.Entity.String(), data); err != nil {
			return errors.Wrapf(err, "insert diagnostic %d", i)
		}
	}
	return nil
}

func saveReferences(ctx context.Context, tx *sql.Tx, keys *ids.Table, buildID string, refs []ResolvedReference) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO refs (build_id, seq, kind, name, filepath, resolved_id, confidence, score, reason, reference, resolution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rr := range refs {
		data, err := reference.Marshal(rr.Reference)
		if err != nil {
			return errors.Wrapf(err, "encode reference %d", i)
		}
		res, err := json.Marshal(rr.Resolution)
		if err != nil {
			return errors.Wrapf(err, "encode resolution %d", i)
		}
		var resolved sql.NullString
		if id, ok := rr.Resolution.Value(); ok {
			key, err := keys.Intern(id)
			if err != nil {
				return errors.Wrapf(err, "reference %d resolved id", i)
			}
			resolved = sql.NullString{String: key, Valid: true}
		}
		common := rr.Reference.Common()
		if _, err := stmt.ExecContext(ctx, buildID, i, string(rr.Reference.Kind()), common.Name, common.Location.FilePath,
			resolved, rr.Resolution.Confidence.String(), rr.Resolution.Confidence.Score(), string(rr.Resolution.Reason), data, res); err != nil {
			return errors.Wrapf(err, "insert reference %d", i)
		}
	}
	return nil
}

// LatestBuildID returns the most recently saved build.
func (s *SQLiteStore) LatestBuildID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM builds ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrBuildNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListBuilds returns every build, newest first.
func (s *SQLiteStore) ListBuilds(ctx context.Context) ([]BuildInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, policy, type_count FROM builds ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query builds")
	}
	defer rows.Close()

	var out []BuildInfo
	for rows.Next() {
		info, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (BuildInfo, error) {
	var (
		info      BuildInfo
		createdAt string
		policy    sql.NullString
	)
	if err := row.Scan(&info.ID, &createdAt, &policy, &info.TypeCount); err != nil {
		return BuildInfo{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return BuildInfo{}, errors.Wrapf(err, "build %s has bad timestamp", info.ID)
	}
	info.CreatedAt = t
	info.Policy = inheritance.Policy(policy.String)
	return info, nil
}

// LoadSnapshot reads a saved build back. It returns ErrBuildNotFound for an
// unknown id.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, buildID string) (*Snapshot, error) {
	info, err := scanBuild(s.db.QueryRowContext(ctx, `SELECT id, created_at, policy, type_count FROM builds WHERE id = ?`, buildID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrBuildNotFound, "%s", buildID)
	}
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{BuildID: info.ID, CreatedAt: info.CreatedAt, Policy: info.Policy}

	if snap.Types, err = s.queryTypes(ctx, `SELECT data FROM types WHERE build_id = ? ORDER BY seq`, buildID); err != nil {
		return nil, err
	}
	if snap.Diamonds, err = loadDiamonds(ctx, s.db, buildID); err != nil {
		return nil, err
	}
	if snap.Diagnostics, err = loadDiagnostics(ctx, s.db, buildID); err != nil {
		return nil, err
	}
	if snap.References, err = loadReferences(ctx, s.db, buildID); err != nil {
		return nil, err
	}
	return snap, nil
}

// TypesInFile returns the build's types defined in filePath.
func (s *SQLiteStore) TypesInFile(ctx context.Context, buildID, filePath string) ([]*graph.TypeEntity, error) {
	return s.queryTypes(ctx, `SELECT data FROM types WHERE build_id = ? AND filepath = ? ORDER BY seq`, buildID, filePath)
}

func (s *SQLiteStore) queryTypes(ctx context.Context, query string, args ...any) ([]*graph.TypeEntity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query types")
	}
	defer rows.Close()

	var out []*graph.TypeEntity
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, "failed to scan type")
		}
		var t graph.TypeEntity
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, errors.Wrap(err, "failed to decode type")
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func loadDiamonds(ctx context.Context, db *sql.DB, buildID string) ([]graph.DiamondProblem, error) {
	rows, err := db.QueryContext(ctx, `SELECT data FROM diamonds WHERE build_id = ? ORDER BY seq`, buildID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query diamonds")
	}
	defer rows.Close()

	var out []graph.DiamondProblem
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var d graph.DiamondProblem
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, errors.Wrap(err, "failed to decode diamond")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func loadDiagnostics(ctx context.Context, db *sql.DB, buildID string) ([]inheritance.Diagnostic, error) {
	rows, err := db.QueryContext(ctx, `SELECT data FROM diagnostics WHERE build_id = ? ORDER BY seq`, buildID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query diagnostics")
	}
	defer rows.Close()

	var out []inheritance.Diagnostic
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var d inheritance.Diagnostic
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, errors.Wrap(err, "failed to decode diagnostic")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func loadReferences(ctx context.Context, db *sql.DB, buildID string) ([]ResolvedReference, error) {
	rows, err := db.QueryContext(ctx, `SELECT reference, resolution FROM refs WHERE build_id = ? ORDER BY seq`, buildID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query references")
	}
	defer rows.Close()

	var out []ResolvedReference
	for rows.Next() {
		var refData, resData []byte
		if err := rows.Scan(&refData, &resData); err != nil {
			return nil, err
		}
		ref, err := reference.Unmarshal(refData)
		if err != nil {
			return nil, err
		}
		var res resolution.Resolution[ids.SymbolID]
		if err := json.Unmarshal(resData, &res); err != nil {
			return nil, errors.Wrap(err, "failed to decode resolution")
		}
		out = append(out, ResolvedReference{Reference: ref, Resolution: res})
	}
	return out, rows.Err()
}

// DeleteBuild removes one build and everything stored under it.
func (s *SQLiteStore) DeleteBuild(ctx context.Context, buildID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, buildID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrBuildNotFound, "%s", buildID)
	}
	for _, table := range []string{"types", "diamonds", "diagnostics", "refs"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE build_id = ?`, buildID); err != nil {
			return errors.Wrapf(err, "delete %s", table)
		}
	}
	return tx.Commit()
}
