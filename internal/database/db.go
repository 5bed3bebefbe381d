package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jgoulah/capplot/pkg/models"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when no run matches the requested id
var ErrRunNotFound = errors.New("run not found")

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		checksum TEXT NOT NULL,
		imported_at TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		published INTEGER DEFAULT 0,
		UNIQUE(checksum)
	);
	CREATE TABLE IF NOT EXISTS records (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		time REAL NOT NULL,
		capacity REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_imported_at ON runs(imported_at);
	CREATE INDEX IF NOT EXISTS idx_runs_published ON runs(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Checksum identifies a record sequence by content
func Checksum(records []models.Record) string {
	h := sha256.New()
	for _, r := range records {
		h.Write(strconv.AppendFloat(nil, r.Time, 'g', -1, 64))
		h.Write([]byte{' '})
		h.Write(strconv.AppendFloat(nil, r.Capacity, 'g', -1, 64))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// InsertRun stores records as a new run. When a run with the same content
// already exists it is returned instead and created is false.
func (db *DB) InsertRun(source string, records []models.Record) (run *models.Run, created bool, err error) {
	checksum := Checksum(records)

	existing, err := db.getRunByChecksum(checksum)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	run = &models.Run{
		ID:         uuid.NewString(),
		Source:     source,
		Checksum:   checksum,
		ImportedAt: time.Now().UTC().Truncate(time.Second),
		Count:      len(records),
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
	INSERT INTO runs (id, source, checksum, imported_at, record_count)
	VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Checksum, run.ImportedAt.Format(time.RFC3339), run.Count)
	if err != nil {
		return nil, false, fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO records (run_id, seq, time, capacity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, false, fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(run.ID, i, r.Time, r.Capacity); err != nil {
			return nil, false, fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing run: %w", err)
	}

	return run, true, nil
}

const runColumns = `id, source, checksum, imported_at, record_count, published`

func scanRun(row interface{ Scan(...any) error }) (*models.Run, error) {
	var run models.Run
	var importedAt string
	var published int

	if err := row.Scan(&run.ID, &run.Source, &run.Checksum, &importedAt, &run.Count, &published); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing imported_at: %w", err)
	}
	run.ImportedAt = t
	run.Published = published != 0

	return &run, nil
}

func (db *DB) getRunByChecksum(checksum string) (*models.Run, error) {
	row := db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE checksum = ?`, checksum)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by id or by a unique id prefix
func (db *DB) GetRun(id string) (*models.Run, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}

	// plain prefix compare; LIKE would treat % and _ in id as wildcards
	rows, err := db.conn.Query(`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, id, id)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var matches []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.ID == id {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListRuns retrieves all runs, newest first
func (db *DB) ListRuns() ([]models.Run, error) {
	return db.listRuns(`SELECT ` + runColumns + ` FROM runs ORDER BY imported_at DESC, id`)
}

// ListUnpublishedRuns retrieves runs that have not been published yet, oldest first
func (db *DB) ListUnpublishedRuns() ([]models.Run, error) {
	return db.listRuns(`SELECT ` + runColumns + ` FROM runs WHERE published = 0 ORDER BY imported_at, id`)
}

func (db *DB) listRuns(query string) ([]models.Run, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *run)
	}

	return results, rows.Err()
}

// ListRecords retrieves the records of a run in insertion order
func (db *DB) ListRecords(runID string) ([]models.Record, error) {
	rows, err := db.conn.Query(`SELECT time, capacity FROM records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	results := make([]models.Record, 0)
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.Time, &r.Capacity); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// MarkPublished marks a run as published
func (db *DB) MarkPublished(runID string) error {
	query := `UPDATE runs SET published = 1 WHERE id = ?`
	_, err := db.conn.Exec(query, runID)
	if err != nil {
		return fmt.Errorf("marking run as published: %w", err)
	}
	return nil
}
