package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/grnrefine/internal/network"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection. It is a query cache rebuilt from
// runs.jsonl and never the source of truth.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			network_path TEXT NOT NULL,
			digest TEXT NOT NULL,
			library_name TEXT NOT NULL,
			options_json TEXT NOT NULL,
			input_keys_json TEXT NOT NULL,
			output_keys_json TEXT NOT NULL,
			filtered_edges INTEGER NOT NULL,
			subnetwork_edges INTEGER NOT NULL,
			edge_count INTEGER NOT NULL,
			path_count INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest);

		CREATE TABLE IF NOT EXISTS run_edges (
			run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			tf TEXT NOT NULL,
			target TEXT NOT NULL,
			importance REAL NOT NULL,
			PRIMARY KEY (run_id, rank)
		);

		CREATE INDEX IF NOT EXISTS idx_run_edges_tf ON run_edges(tf);
		CREATE INDEX IF NOT EXISTS idx_run_edges_target ON run_edges(target);

		CREATE TABLE IF NOT EXISTS run_paths (
			run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			path TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			tf TEXT NOT NULL,
			total REAL NOT NULL,
			sd REAL,
			mean REAL NOT NULL,
			cv REAL,
			PRIMARY KEY (run_id, rank)
		);

		CREATE INDEX IF NOT EXISTS idx_run_paths_output ON run_paths(output);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a runs file.
// It returns the number of runs loaded.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	runs, err := ReadAllRuns(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"runs", "run_edges", "run_paths"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}
	for i := range runs {
		if err := insertRun(tx, &runs[i]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(runs), nil
}

// InsertRun adds or replaces a single run.
func (d *DB) InsertRun(r Run) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"run_edges", "run_paths"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", r.ID); err != nil {
			return fmt.Errorf("clearing %s for run: %w", table, err)
		}
	}
	if err := insertRun(tx, &r); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRun(tx *sql.Tx, r *Run) error {
	optionsJSON, err := json.Marshal(r.Options)
	if err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}
	inputsJSON, err := json.Marshal(r.InputKeys)
	if err != nil {
		return fmt.Errorf("encoding input keys: %w", err)
	}
	outputsJSON, err := json.Marshal(r.OutputKeys)
	if err != nil {
		return fmt.Errorf("encoding output keys: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs (
			id, created_at, network_path, digest, library_name,
			options_json, input_keys_json, output_keys_json,
			filtered_edges, subnetwork_edges, edge_count, path_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.CreatedAt, r.NetworkPath, r.Digest, r.Options.LibraryName,
		string(optionsJSON), string(inputsJSON), string(outputsJSON),
		r.FilteredEdges, r.SubnetworkEdges, len(r.Edges), len(r.Paths))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	edgeStmt, err := tx.Prepare(`
		INSERT INTO run_edges (run_id, rank, tf, target, importance)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for i, e := range r.Edges {
		if _, err := edgeStmt.Exec(r.ID, i, e.TF, e.Target, e.Importance); err != nil {
			return fmt.Errorf("inserting edge %d of run %s: %w", i, r.ID, err)
		}
	}

	pathStmt, err := tx.Prepare(`
		INSERT INTO run_paths (run_id, rank, path, input, output, tf, total, sd, mean, cv)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing path insert: %w", err)
	}
	defer pathStmt.Close()

	for i, p := range r.Paths {
		_, err := pathStmt.Exec(r.ID, i, p.String(), p.Input, p.Output, p.TF,
			p.Total, nullFloat(p.SD), p.Mean, nullFloat(p.CV))
		if err != nil {
			return fmt.Errorf("inserting path %d of run %s: %w", i, r.ID, err)
		}
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// RunSummary is a run without its edge and path tables.
type RunSummary struct {
	ID              string   `json:"id"`
	CreatedAt       string   `json:"created_at"`
	NetworkPath     string   `json:"network_path"`
	Digest          string   `json:"digest"`
	LibraryName     string   `json:"library_name"`
	InputKeys       []string `json:"input_keys"`
	OutputKeys      []string `json:"output_keys"`
	FilteredEdges   int      `json:"filtered_edges"`
	SubnetworkEdges int      `json:"subnetwork_edges"`
	EdgeCount       int      `json:"edge_count"`
	PathCount       int      `json:"path_count"`
}

// ListRuns returns all runs, newest first. A non-empty digest restricts the
// list to runs of that network.
func (d *DB) ListRuns(digest string) ([]RunSummary, error) {
	query := `
		SELECT id, created_at, network_path, digest, library_name,
			input_keys_json, output_keys_json,
			filtered_edges, subnetwork_edges, edge_count, path_count
		FROM runs`
	var args []any
	if digest != "" {
		query += " WHERE digest = ?"
		args = append(args, digest)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]RunSummary, 0)
	for rows.Next() {
		var s RunSummary
		var inputsJSON, outputsJSON string
		err := rows.Scan(&s.ID, &s.CreatedAt, &s.NetworkPath, &s.Digest, &s.LibraryName,
			&inputsJSON, &outputsJSON,
			&s.FilteredEdges, &s.SubnetworkEdges, &s.EdgeCount, &s.PathCount)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(inputsJSON), &s.InputKeys); err != nil {
			return nil, fmt.Errorf("decoding input keys of run %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(outputsJSON), &s.OutputKeys); err != nil {
			return nil, fmt.Errorf("decoding output keys of run %s: %w", s.ID, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// EdgeQuery selects refined edges across runs. Empty fields match anything.
type EdgeQuery struct {
	RunID         string
	TF            string
	Target        string
	MinImportance float64
	Limit         int
}

// EdgeHit is a refined edge and the run it belongs to.
type EdgeHit struct {
	RunID string `json:"run_id"`
	Rank  int    `json:"rank"`
	network.Row
}

// QueryEdges returns refined edges matching q, by importance descending.
func (d *DB) QueryEdges(q EdgeQuery) ([]EdgeHit, error) {
	var where []string
	var args []any
	if q.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, q.RunID)
	}
	if q.TF != "" {
		where = append(where, "tf = ?")
		args = append(args, q.TF)
	}
	if q.Target != "" {
		where = append(where, "target = ?")
		args = append(args, q.Target)
	}
	if q.MinImportance > 0 {
		where = append(where, "importance >= ?")
		args = append(args, q.MinImportance)
	}

	query := "SELECT run_id, rank, tf, target, importance FROM run_edges"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY importance DESC, run_id, rank"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	hits := make([]EdgeHit, 0)
	for rows.Next() {
		var h EdgeHit
		if err := rows.Scan(&h.RunID, &h.Rank, &h.TF, &h.Target, &h.Importance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// PathsForRun returns the scored paths of a run in discovery order.
func (d *DB) PathsForRun(runID string) ([]PathRecord, error) {
	rows, err := d.db.Query(`
		SELECT path, input, output, tf, total, sd, mean, cv
		FROM run_paths
		WHERE run_id = ?
		ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying paths: %w", err)
	}
	defer rows.Close()

	records := make([]PathRecord, 0)
	for rows.Next() {
		var p PathRecord
		var path string
		var sd, cv sql.NullFloat64
		if err := rows.Scan(&path, &p.Input, &p.Output, &p.TF, &p.Total, &sd, &p.Mean, &cv); err != nil {
			return nil, err
		}
		p.Path = strings.Split(path, "->")
		if sd.Valid {
			p.SD = &sd.Float64
		}
		if cv.Valid {
			p.CV = &cv.Float64
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// CountRuns returns the number of cached runs.
func (d *DB) CountRuns() (int, error) {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
